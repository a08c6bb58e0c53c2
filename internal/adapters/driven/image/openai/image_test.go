package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": 1700000000, "data": [
			{"url": "https://img.example.com/a.png", "revised_prompt": "a tidy desk"}
		]}`))
	}))
	defer srv.Close()

	gen, err := NewImageGenerator(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	img, err := gen.Generate(t.Context(), "a desk")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/a.png", img.URL)
	assert.Equal(t, "a tidy desk", img.RevisedPrompt)
	assert.Equal(t, DefaultModel, img.Model)
	assert.Equal(t, int64(1), img.Usage.InputUnits)

	assert.Equal(t, "a desk", body["prompt"])
	assert.Equal(t, DefaultSize, body["size"])
	assert.EqualValues(t, 1, body["n"])
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	gen, err := NewImageGenerator(Config{APIKey: "k"})
	require.NoError(t, err)
	_, err = gen.Generate(t.Context(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	gen, err := NewImageGenerator(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = gen.Generate(t.Context(), "a desk")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestGenerate_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created": 1, "data": []}`))
	}))
	defer srv.Close()

	gen, err := NewImageGenerator(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = gen.Generate(t.Context(), "a desk")
	assert.ErrorIs(t, err, domain.ErrProvider)
}
