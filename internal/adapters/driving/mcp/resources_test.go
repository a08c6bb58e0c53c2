package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		kind     string
		expected string
	}{
		{name: "job URI", uri: "postsmith://jobs/job_1", kind: "jobs/", expected: "job_1"},
		{name: "newsletter URI", uri: "postsmith://newsletters/n-1", kind: "newsletters/", expected: "n-1"},
		{name: "wrong kind", uri: "postsmith://jobs/job_1", kind: "newsletters/", expected: ""},
		{name: "invalid scheme", uri: "file://jobs/job_1", kind: "jobs/", expected: ""},
		{name: "nested path", uri: "postsmith://jobs/job_1/events", kind: "jobs/", expected: ""},
		{name: "empty URI", uri: "", kind: "jobs/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractID(tt.uri, tt.kind))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleContextsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil context service returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})

		result, err := server.handleContextsResource(ctx, makeReadResourceRequest("postsmith://contexts"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns contexts", func(t *testing.T) {
		contexts := &mockContextService{contexts: []domain.GenerationContext{
			{ID: "trend_42", Kind: domain.ContextKindTrend, Title: "AI agents", Topics: []string{"agents"}},
		}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Contexts: contexts})

		result, err := server.handleContextsResource(ctx, makeReadResourceRequest("postsmith://contexts"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "trend_42")
		assert.Contains(t, result.Contents[0].Text, `"kind": "trend"`)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		contexts := &mockContextService{err: errors.New("database error")}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Contexts: contexts})

		_, err := server.handleContextsResource(ctx, makeReadResourceRequest("postsmith://contexts"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing contexts")
	})
}

func TestServer_handleJobResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns job record", func(t *testing.T) {
		job := domain.NewJob("job_1", "u1", "trend_42", time.Now())
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: &mockJobService{job: &job}})

		result, err := server.handleJobResource(ctx, makeReadResourceRequest("postsmith://jobs/job_1"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"id": "job_1"`)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	})

	t.Run("nil job service returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})
		_, err := server.handleJobResource(ctx, makeReadResourceRequest("postsmith://jobs/job_1"))
		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: &mockJobService{}})
		_, err := server.handleJobResource(ctx, makeReadResourceRequest("postsmith://invalid"))
		require.Error(t, err)
	})
}

func TestServer_handleNewsletterResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns composite text", func(t *testing.T) {
		news := &mockNewsletterService{newsletter: &domain.Newsletter{
			ID: "n1", Subject: "Weekly AI", From: "ai@example.com", Body: "Agents everywhere",
		}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Newsletters: news})

		result, err := server.handleNewsletterResource(ctx, makeReadResourceRequest("postsmith://newsletters/n1"))

		require.NoError(t, err)
		assert.Equal(t, "Subject: Weekly AI\nFrom: ai@example.com\n\nAgents everywhere", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("returns error on lookup failure", func(t *testing.T) {
		news := &mockNewsletterService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Newsletters: news})

		_, err := server.handleNewsletterResource(ctx, makeReadResourceRequest("postsmith://newsletters/n1"))

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
