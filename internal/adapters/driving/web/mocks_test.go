package web

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// mockJobService is a mock implementation of driving.JobService.
type mockJobService struct {
	mu       sync.Mutex
	created  []domain.CreateJobRequest
	resp     domain.CreateJobResponse
	job      *domain.Job
	jobs     []domain.Job
	updates  []domain.Job
	err      error
	listArgs struct {
		ownerID string
		limit   int
	}
}

func (m *mockJobService) CreateJob(_ context.Context, req domain.CreateJobRequest) (domain.CreateJobResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	return m.resp, m.err
}

func (m *mockJobService) GetJob(_ context.Context, _ string) (*domain.Job, error) {
	return m.job, m.err
}

func (m *mockJobService) ListJobs(_ context.Context, ownerID string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listArgs.ownerID = ownerID
	m.listArgs.limit = limit
	return m.jobs, m.err
}

func (m *mockJobService) WatchJob(_ context.Context, _ string) (<-chan domain.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.Job, len(m.updates))
	for _, j := range m.updates {
		ch <- j
	}
	close(ch)
	return ch, nil
}

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	saved    []domain.GenerationContext
	gen      *domain.GenerationContext
	contexts []domain.GenerationContext
	err      error
}

func (m *mockContextService) SaveContext(_ context.Context, c domain.GenerationContext) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, c)
	return nil
}

func (m *mockContextService) GetContext(_ context.Context, _ string) (*domain.GenerationContext, error) {
	return m.gen, m.err
}

func (m *mockContextService) ListContexts(_ context.Context, _ string) ([]domain.GenerationContext, error) {
	return m.contexts, m.err
}

// mockNewsletterService is a mock implementation of driving.NewsletterService.
type mockNewsletterService struct {
	ingested    []domain.Newsletter
	result      domain.IndexingResult
	newsletter  *domain.Newsletter
	newsletters []domain.Newsletter
	err         error
}

func (m *mockNewsletterService) Ingest(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	m.ingested = append(m.ingested, n)
	return m.result, m.err
}

func (m *mockNewsletterService) GetNewsletter(_ context.Context, _ string) (*domain.Newsletter, error) {
	return m.newsletter, m.err
}

func (m *mockNewsletterService) ListNewsletters(_ context.Context, _ string) ([]domain.Newsletter, error) {
	return m.newsletters, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result  domain.IndexingResult
	batch   domain.BatchIndexingResult
	removed []string
	err     error
}

func (m *mockIndexService) IndexNewsletter(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	r := m.result
	r.NewsletterID = n.ID
	return r, m.err
}

func (m *mockIndexService) IndexBatch(_ context.Context, _ []domain.Newsletter) domain.BatchIndexingResult {
	return m.batch
}

func (m *mockIndexService) IndexUnindexed(_ context.Context, _ string) (domain.BatchIndexingResult, error) {
	return m.batch, m.err
}

func (m *mockIndexService) RemoveNewsletter(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result    domain.RetrievalResult
	err       error
	lastCall  string
	lastQuery domain.RetrievalQuery
	topics    []string
	recency   driving.RecencyOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.lastCall, m.lastQuery = "retrieve", q
	return m.result, m.err
}

func (m *mockRetrievalService) RetrieveTopics(
	_ context.Context,
	topics []string,
	q domain.RetrievalQuery,
) (domain.RetrievalResult, error) {
	m.lastCall, m.lastQuery, m.topics = "topics", q, topics
	return m.result, m.err
}

func (m *mockRetrievalService) RetrieveRecent(
	_ context.Context,
	q domain.RetrievalQuery,
	opts driving.RecencyOptions,
) (domain.RetrievalResult, error) {
	m.lastCall, m.lastQuery, m.recency = "recent", q, opts
	return m.result, m.err
}

// mockCostService is a mock implementation of driving.CostService.
type mockCostService struct {
	rows  []domain.CostSummaryRow
	since time.Time
	err   error
}

func (m *mockCostService) Summary(_ context.Context, _ string, since time.Time) ([]domain.CostSummaryRow, error) {
	m.since = since
	return m.rows, m.err
}
