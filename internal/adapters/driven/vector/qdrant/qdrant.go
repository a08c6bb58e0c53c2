// Package qdrant provides a VectorStore backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Config holds connection settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration

	// HTTPClient replaces the default client. Used by tests.
	HTTPClient *http.Client
}

// Store is a minimal Qdrant REST client. Collections use cosine distance.
type Store struct {
	url    string
	apiKey string
	client *http.Client

	mu      sync.Mutex
	ensured map[string]int
}

// NewStore creates a Qdrant-backed vector store.
func NewStore(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Store{
		url:     strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		ensured: make(map[string]int),
	}
}

// point is the Qdrant wire format of a vector point.
type point struct {
	ID      string              `json:"id"`
	Vector  []float32           `json:"vector"`
	Payload domain.ChunkPayload `json:"payload"`
}

type scoredPoint struct {
	ID      any                 `json:"id"`
	Score   float64             `json:"score"`
	Payload domain.ChunkPayload `json:"payload"`
}

type matchCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filterBody struct {
	Must []matchCondition `json:"must"`
}

// EnsureCollection creates the collection if it does not exist. An existing
// collection with a different vector size is an error.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimensions)
	}
	s.mu.Lock()
	known, ok := s.ensured[name]
	s.mu.Unlock()
	if ok {
		if known != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, want %d", domain.ErrPersistence, name, known, dimensions)
		}
		return nil
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(name), nil, &info)
	switch {
	case err == nil:
		size := info.Result.Config.Params.Vectors.Size
		if size != 0 && size != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, want %d", domain.ErrPersistence, name, size, dimensions)
		}
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimensions,
				"distance": "Cosine",
			},
		}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL(name), body, nil); err != nil {
			return err
		}
	default:
		return err
	}

	s.mu.Lock()
	s.ensured[name] = dimensions
	s.mu.Unlock()
	return nil
}

// Upsert writes all points in one request and waits for the write to apply.
func (s *Store) Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	wire := make([]point, len(points))
	for i, p := range points {
		wire[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL(collection)+"/points?wait=true",
		map[string]any{"points": wire}, nil)
	return err
}

// Search returns the nearest points matching the filter.
func (s *Store) Search(
	ctx context.Context,
	collection string,
	vector []float32,
	limit int,
	filter domain.Filter,
) ([]domain.VectorHit, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, s.collectionURL(collection)+"/points/search", req, &resp)
	if status == http.StatusNotFound {
		// A collection that was never created has no hits.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.VectorHit{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// DeleteByFilter removes every point matching the filter. An empty filter
// is rejected so a bug cannot wipe the collection.
func (s *Store) DeleteByFilter(ctx context.Context, collection string, filter domain.Filter) error {
	f := buildFilter(filter)
	if f == nil {
		return fmt.Errorf("%w: delete requires a filter", domain.ErrInvalidInput)
	}
	status, err := s.do(ctx, http.MethodPost, s.collectionURL(collection)+"/points/delete?wait=true",
		map[string]any{"filter": f}, nil)
	if status == http.StatusNotFound {
		// Nothing to delete in a collection that was never created.
		return nil
	}
	return err
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func (s *Store) collectionURL(name string) string {
	return s.url + "/collections/" + url.PathEscape(name)
}

// buildFilter converts a domain filter into Qdrant "must" match conditions,
// sorted by key for stable requests.
func buildFilter(filter domain.Filter) *filterBody {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &filterBody{}
	for _, k := range keys {
		var c matchCondition
		c.Key = k
		c.Match.Value = filter[k]
		f.Must = append(f.Must, c)
	}
	return f
}

// do sends a JSON request and decodes the response into out when non-nil.
// Non-2xx responses are persistence errors; the status is returned either way.
func (s *Store) do(ctx context.Context, method, target string, body, out any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrPersistence, method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("%w: qdrant %s %s: status %d: %s",
			domain.ErrPersistence, method, target, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: qdrant: decode response: %w", domain.ErrPersistence, err)
		}
	}
	return resp.StatusCode, nil
}
