package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/adapters/driven/storage/watch"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[string]domain.Job
	broker *watch.Broker
	now    func() time.Time
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:   make(map[string]domain.Job),
		broker: watch.NewBroker(),
		now:    time.Now,
	}
}

// Create stores a new job. Existing IDs are rejected.
func (s *JobStore) Create(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job = cloneJob(job)
	return &job, nil
}

// Update applies the patch under the store lock and publishes the result.
func (s *JobStore) Update(_ context.Context, id string, patch domain.JobPatch) (domain.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return domain.Job{}, domain.ErrNotFound
	}
	if err := job.Apply(patch, s.now().UTC()); err != nil {
		s.mu.Unlock()
		return domain.Job{}, err
	}
	s.jobs[id] = job
	out := cloneJob(job)
	s.mu.Unlock()

	s.broker.Publish(out)
	return out, nil
}

// List returns an owner's jobs, newest first.
func (s *JobStore) List(_ context.Context, ownerID string, limit int) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []domain.Job
	for _, job := range s.jobs {
		if ownerID == "" || job.OwnerID == ownerID {
			jobs = append(jobs, cloneJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Subscribe streams the job's current record and every later update.
func (s *JobStore) Subscribe(ctx context.Context, id string) (<-chan domain.Job, error) {
	// Holding the read lock keeps Update from publishing between the
	// snapshot and the registration.
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.broker.Subscribe(ctx, cloneJob(job)), nil
}

func cloneJob(j domain.Job) domain.Job {
	if j.Result != nil {
		r := *j.Result
		r.Hashtags = append([]string(nil), r.Hashtags...)
		r.Citations = append([]domain.Citation(nil), r.Citations...)
		j.Result = &r
	}
	return j
}
