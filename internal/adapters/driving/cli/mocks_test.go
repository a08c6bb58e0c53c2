package cli

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/inbox"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

type mockJobService struct {
	mu        sync.Mutex
	jobs      map[string]domain.Job
	snapshots []domain.Job
	created   []domain.CreateJobRequest
	createErr error
	watchErr  error
}

var _ driving.JobService = (*mockJobService)(nil)

func newMockJobService() *mockJobService {
	return &mockJobService{jobs: make(map[string]domain.Job)}
}

func (m *mockJobService) CreateJob(_ context.Context, req domain.CreateJobRequest) (domain.CreateJobResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	if m.createErr != nil {
		return domain.CreateJobResponse{Success: false, Message: m.createErr.Error()}, m.createErr
	}
	return domain.CreateJobResponse{Success: true, JobID: "job_new", Message: "Job created"}, nil
}

func (m *mockJobService) GetJob(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *mockJobService) ListJobs(_ context.Context, ownerID string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.OwnerID == ownerID && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockJobService) WatchJob(_ context.Context, _ string) (<-chan domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	ch := make(chan domain.Job, len(m.snapshots))
	for _, s := range m.snapshots {
		ch <- s
	}
	close(ch)
	return ch, nil
}

type mockContextService struct {
	mu      sync.Mutex
	saved   []domain.GenerationContext
	saveErr error
}

func (m *mockContextService) SaveContext(_ context.Context, c domain.GenerationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := c.Validate(); err != nil {
		return err
	}
	m.saved = append(m.saved, c)
	return nil
}

func (m *mockContextService) GetContext(_ context.Context, id string) (*domain.GenerationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.saved {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockContextService) ListContexts(_ context.Context, ownerID string) ([]domain.GenerationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GenerationContext
	for _, c := range m.saved {
		if ownerID == "" || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockNewsletterService struct {
	mu          sync.Mutex
	newsletters map[string]domain.Newsletter
	ingested    []domain.Newsletter
}

func newMockNewsletterService() *mockNewsletterService {
	return &mockNewsletterService{newsletters: make(map[string]domain.Newsletter)}
}

func (m *mockNewsletterService) Ingest(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, n)
	n.Indexed = true
	n.ChunkCount = 2
	m.newsletters[n.ID] = n
	return domain.IndexingResult{NewsletterID: n.ID, Success: true, ChunksCreated: 2, Cost: 0.0001}, nil
}

func (m *mockNewsletterService) GetNewsletter(_ context.Context, id string) (*domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.newsletters[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (m *mockNewsletterService) ListNewsletters(_ context.Context, ownerID string) ([]domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Newsletter
	for _, n := range m.newsletters {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

type mockIndexService struct {
	mu       sync.Mutex
	indexed  []string
	removed  []string
	batch    domain.BatchIndexingResult
	indexErr error
}

func (m *mockIndexService) IndexNewsletter(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, n.ID)
	if m.indexErr != nil {
		return domain.IndexingResult{NewsletterID: n.ID, Error: m.indexErr.Error()}, m.indexErr
	}
	return domain.IndexingResult{NewsletterID: n.ID, Success: true, ChunksCreated: 3, Cost: 0.00002}, nil
}

func (m *mockIndexService) IndexBatch(_ context.Context, _ []domain.Newsletter) domain.BatchIndexingResult {
	return m.batch
}

func (m *mockIndexService) IndexUnindexed(_ context.Context, _ string) (domain.BatchIndexingResult, error) {
	return m.batch, nil
}

func (m *mockIndexService) RemoveNewsletter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
	return nil
}

type mockRetrievalService struct {
	mu     sync.Mutex
	calls  []string
	query  domain.RetrievalQuery
	topics []string
	recent driving.RecencyOptions
	result domain.RetrievalResult
}

func (m *mockRetrievalService) Retrieve(_ context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "retrieve")
	m.query = q
	return m.result, nil
}

func (m *mockRetrievalService) RetrieveTopics(_ context.Context, topics []string, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "topics")
	m.topics = topics
	m.query = q
	return m.result, nil
}

func (m *mockRetrievalService) RetrieveRecent(_ context.Context, q domain.RetrievalQuery, opts driving.RecencyOptions) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "recent")
	m.query = q
	m.recent = opts
	return m.result, nil
}

type mockCostService struct {
	ownerID string
	since   time.Time
	rows    []domain.CostSummaryRow
}

func (m *mockCostService) Summary(_ context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error) {
	m.ownerID = ownerID
	m.since = since
	return m.rows, nil
}

type mockSettingsService struct {
	settings domain.Settings
	set      map[string]any
	setErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultSettings(), set: make(map[string]any)}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.settings.Validate()
}

// testServices bundles the mocks installed by setupTestServices.
type testServices struct {
	jobs        *mockJobService
	contexts    *mockContextService
	newsletters *mockNewsletterService
	index       *mockIndexService
	retrieval   *mockRetrievalService
	costs       *mockCostService
	settings    *mockSettingsService
}

// setupTestServices installs mock services and resets flag state.
// The returned function restores the previous services.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		jobs:        newMockJobService(),
		contexts:    &mockContextService{},
		newsletters: newMockNewsletterService(),
		index:       &mockIndexService{},
		retrieval:   &mockRetrievalService{},
		costs:       &mockCostService{},
		settings:    newMockSettingsService(),
	}

	prev, prevOwned := current, owned
	current = &Services{
		Settings:    ts.settings,
		Jobs:        ts.jobs,
		Contexts:    ts.contexts,
		Newsletters: ts.newsletters,
		Index:       ts.index,
		Retrieval:   ts.retrieval,
		Costs:       ts.costs,
		Config:      domain.DefaultSettings(),
	}
	owned = false
	resetFlags()

	return ts, func() {
		current, owned = prev, prevOwned
		resetFlags()
	}
}

func resetFlags() {
	verbose, homeDir, ephemeral, ownerID = false, "", false, ""
	jobJSON, jobDetach, jobPlain, jobLimit = false, false, false, 20
	contextID, contextKind, contextSummary, contextTopics = "", string(domain.ContextKindIdea), "", nil
	indexAll = false
	searchLimit, searchMinScore, searchTopics, searchRecent, searchJSON = 0, -1, nil, false, false
	inboxReindex, inboxDebounce = false, inbox.DefaultDebounce
	costsSince, costsJSON = "", false
	serveAddr = ""
}
