package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure ContextStore implements the interface.
var _ driven.ContextStore = (*ContextStore)(nil)

// ContextStore is an in-memory implementation of driven.ContextStore.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]domain.GenerationContext
}

// NewContextStore creates a new in-memory context store.
func NewContextStore() *ContextStore {
	return &ContextStore{contexts: make(map[string]domain.GenerationContext)}
}

// Save stores or updates a context.
func (s *ContextStore) Save(_ context.Context, c domain.GenerationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Topics = append([]string(nil), c.Topics...)
	s.contexts[c.ID] = c
	return nil
}

// Get retrieves a context by ID.
func (s *ContextStore) Get(_ context.Context, id string) (*domain.GenerationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// List returns an owner's contexts, newest first.
func (s *ContextStore) List(_ context.Context, ownerID string) ([]domain.GenerationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GenerationContext
	for _, c := range s.contexts {
		if ownerID == "" || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
