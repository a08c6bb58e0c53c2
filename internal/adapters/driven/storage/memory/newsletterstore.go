package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure NewsletterStore implements the interface.
var _ driven.NewsletterStore = (*NewsletterStore)(nil)

// NewsletterStore is an in-memory implementation of driven.NewsletterStore.
type NewsletterStore struct {
	mu          sync.RWMutex
	newsletters map[string]domain.Newsletter
	records     map[string][]domain.ChunkRecord
}

// NewNewsletterStore creates a new in-memory newsletter store.
func NewNewsletterStore() *NewsletterStore {
	return &NewsletterStore{
		newsletters: make(map[string]domain.Newsletter),
		records:     make(map[string][]domain.ChunkRecord),
	}
}

// Save stores or updates a newsletter.
func (s *NewsletterStore) Save(_ context.Context, n domain.Newsletter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newsletters[n.ID] = n
	return nil
}

// Get retrieves a newsletter by ID.
func (s *NewsletterStore) Get(_ context.Context, id string) (*domain.Newsletter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.newsletters[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

// List returns an owner's newsletters, newest first.
func (s *NewsletterStore) List(_ context.Context, ownerID string) ([]domain.Newsletter, error) {
	return s.filter(ownerID, func(domain.Newsletter) bool { return true }), nil
}

// ListUnindexed returns an owner's newsletters that are not indexed.
func (s *NewsletterStore) ListUnindexed(_ context.Context, ownerID string) ([]domain.Newsletter, error) {
	return s.filter(ownerID, func(n domain.Newsletter) bool { return !n.Indexed }), nil
}

func (s *NewsletterStore) filter(ownerID string, keep func(domain.Newsletter) bool) []domain.Newsletter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Newsletter
	for _, n := range s.newsletters {
		if (ownerID == "" || n.OwnerID == ownerID) && keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// MarkIndexed records a successful indexing.
func (s *NewsletterStore) MarkIndexed(_ context.Context, id string, chunkCount int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.newsletters[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Indexed = true
	n.IndexedAt = &at
	n.ChunkCount = chunkCount
	s.newsletters[id] = n
	return nil
}

// ResetIndexed clears the indexing state.
func (s *NewsletterStore) ResetIndexed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.newsletters[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Indexed = false
	n.IndexedAt = nil
	n.ChunkCount = 0
	s.newsletters[id] = n
	return nil
}

// SaveChunkRecords appends chunk tracking records.
func (s *NewsletterStore) SaveChunkRecords(_ context.Context, records []domain.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.NewsletterID] = append(s.records[r.NewsletterID], r)
	}
	return nil
}

// ListChunkRecords returns a newsletter's records ordered by chunk index.
func (s *NewsletterStore) ListChunkRecords(_ context.Context, newsletterID string) ([]domain.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.ChunkRecord(nil), s.records[newsletterID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

// DeleteChunkRecords removes all of a newsletter's records.
func (s *NewsletterStore) DeleteChunkRecords(_ context.Context, newsletterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, newsletterID)
	return nil
}
