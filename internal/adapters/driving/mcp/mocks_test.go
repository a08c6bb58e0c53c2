package mcp

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result  domain.RetrievalResult
	err     error
	called  string
	query   domain.RetrievalQuery
	topics  []string
	recency driving.RecencyOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.called, m.query = "retrieve", q
	return m.result, m.err
}

func (m *mockRetrievalService) RetrieveTopics(
	_ context.Context,
	topics []string,
	q domain.RetrievalQuery,
) (domain.RetrievalResult, error) {
	m.called, m.query, m.topics = "topics", q, topics
	return m.result, m.err
}

func (m *mockRetrievalService) RetrieveRecent(
	_ context.Context,
	q domain.RetrievalQuery,
	opts driving.RecencyOptions,
) (domain.RetrievalResult, error) {
	m.called, m.query, m.recency = "recent", q, opts
	return m.result, m.err
}

// mockJobService is a mock implementation of driving.JobService.
type mockJobService struct {
	resp    domain.CreateJobResponse
	job     *domain.Job
	err     error
	created []domain.CreateJobRequest
}

func (m *mockJobService) CreateJob(_ context.Context, req domain.CreateJobRequest) (domain.CreateJobResponse, error) {
	m.created = append(m.created, req)
	return m.resp, m.err
}

func (m *mockJobService) GetJob(_ context.Context, _ string) (*domain.Job, error) {
	return m.job, m.err
}

func (m *mockJobService) ListJobs(_ context.Context, _ string, _ int) ([]domain.Job, error) {
	return nil, m.err
}

func (m *mockJobService) WatchJob(_ context.Context, _ string) (<-chan domain.Job, error) {
	return nil, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result  domain.IndexingResult
	err     error
	indexed []string
}

func (m *mockIndexService) IndexNewsletter(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	m.indexed = append(m.indexed, n.ID)
	return m.result, m.err
}

func (m *mockIndexService) IndexBatch(_ context.Context, _ []domain.Newsletter) domain.BatchIndexingResult {
	return domain.BatchIndexingResult{}
}

func (m *mockIndexService) IndexUnindexed(_ context.Context, _ string) (domain.BatchIndexingResult, error) {
	return domain.BatchIndexingResult{}, m.err
}

func (m *mockIndexService) RemoveNewsletter(_ context.Context, _ string) error {
	return m.err
}

// mockNewsletterService is a mock implementation of driving.NewsletterService.
type mockNewsletterService struct {
	newsletter *domain.Newsletter
	err        error
}

func (m *mockNewsletterService) Ingest(_ context.Context, _ domain.Newsletter) (domain.IndexingResult, error) {
	return domain.IndexingResult{}, m.err
}

func (m *mockNewsletterService) GetNewsletter(_ context.Context, _ string) (*domain.Newsletter, error) {
	return m.newsletter, m.err
}

func (m *mockNewsletterService) ListNewsletters(_ context.Context, _ string) ([]domain.Newsletter, error) {
	return nil, m.err
}

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	contexts []domain.GenerationContext
	err      error
}

func (m *mockContextService) SaveContext(_ context.Context, _ domain.GenerationContext) error {
	return m.err
}

func (m *mockContextService) GetContext(_ context.Context, _ string) (*domain.GenerationContext, error) {
	return nil, m.err
}

func (m *mockContextService) ListContexts(_ context.Context, _ string) ([]domain.GenerationContext, error) {
	return m.contexts, m.err
}
