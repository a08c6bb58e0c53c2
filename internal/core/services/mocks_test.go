package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// mockEmbedder returns a fixed vector per text, or embedErr.
type mockEmbedder struct {
	mu       sync.Mutex
	dims     int
	embedErr error
	vectors  map[string][]float32
	calls    int
	batches  [][]string
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims, vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	v := make([]float32, m.dims)
	v[len(text)%m.dims] = 1
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) ModelName() string          { return "text-embedding-3-small" }
func (m *mockEmbedder) Ping(context.Context) error { return m.embedErr }
func (m *mockEmbedder) Close() error               { return nil }

// mockVectorStore records writes and returns scripted hits.
type mockVectorStore struct {
	mu        sync.Mutex
	hits      []domain.VectorHit
	searchErr error
	upsertErr error
	ensured   map[string]int
	points    map[string]domain.VectorPoint
	searches  []domain.Filter
	limits    []int
	deleted   []domain.Filter
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		ensured: make(map[string]int),
		points:  make(map[string]domain.VectorPoint),
	}
}

func (m *mockVectorStore) EnsureCollection(_ context.Context, name string, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured[name] = dims
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, _ string, points []domain.VectorPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, p := range points {
		m.points[p.ID] = p
	}
	return nil
}

func (m *mockVectorStore) Search(
	_ context.Context,
	_ string,
	_ []float32,
	limit int,
	filter domain.Filter,
) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, filter)
	m.limits = append(m.limits, limit)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []domain.VectorHit
	for _, h := range m.hits {
		if h.Payload.Matches(filter) {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockVectorStore) DeleteByFilter(_ context.Context, _ string, filter domain.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, filter)
	for id, p := range m.points {
		if p.Payload.Matches(filter) {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *mockVectorStore) Close() error { return nil }

func (m *mockVectorStore) pointCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points)
}

// mockLLM replays scripted responses in order.
type mockLLM struct {
	mu        sync.Mutex
	responses []mockCompletion
	requests  []driven.CompletionRequest
}

type mockCompletion struct {
	text  string
	usage domain.Usage
	err   error
}

func (m *mockLLM) Complete(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return driven.Completion{}, errors.New("no scripted response")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	if r.err != nil {
		return driven.Completion{}, r.err
	}
	return driven.Completion{Text: r.text, Model: "gpt-4o-mini", Usage: r.usage}, nil
}

func (m *mockLLM) ModelName() string          { return "gpt-4o-mini" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockImages returns a fixed image or err.
type mockImages struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockImages) Generate(_ context.Context, prompt string) (driven.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return driven.GeneratedImage{}, m.err
	}
	return driven.GeneratedImage{
		URL:           "https://images.example.com/1.png",
		RevisedPrompt: "revised: " + prompt,
		Model:         "dall-e-3",
		Usage:         domain.Usage{InputUnits: 1},
	}, nil
}

func (m *mockImages) ModelName() string { return "dall-e-3" }
func (m *mockImages) Close() error      { return nil }

// mockRetrieval records which retrieval variant the pipeline used.
type mockRetrieval struct {
	mu     sync.Mutex
	result domain.RetrievalResult
	err    error
	calls  []string
	opts   []driving.RecencyOptions
}

func (m *mockRetrieval) Retrieve(_ context.Context, _ domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "retrieve")
	return m.result, m.err
}

func (m *mockRetrieval) RetrieveTopics(
	_ context.Context,
	topics []string,
	_ domain.RetrievalQuery,
) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "topics:"+strings.Join(topics, ","))
	return m.result, m.err
}

func (m *mockRetrieval) RetrieveRecent(
	_ context.Context,
	q domain.RetrievalQuery,
	opts driving.RecencyOptions,
) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "recent:"+q.Query)
	m.opts = append(m.opts, opts)
	return m.result, m.err
}

// failingLedger rejects every append.
type failingLedger struct{}

func (failingLedger) Append(context.Context, domain.CostEntry) error {
	return fmt.Errorf("%w: disk full", domain.ErrPersistence)
}

func (failingLedger) List(context.Context, string, time.Time) ([]domain.CostEntry, error) {
	return nil, nil
}

func (failingLedger) Summarise(context.Context, string, time.Time) ([]domain.CostSummaryRow, error) {
	return nil, fmt.Errorf("%w: disk full", domain.ErrPersistence)
}

// words returns n space-separated words.
func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

// draftJSON builds a generation response with an n-word post.
func draftJSON(n int) string {
	return fmt.Sprintf(`{"title":"Title","post":%q,"hashtags":["AI","#Newsletters"],"imagePrompt":"a robot reading mail"}`, words(n))
}
