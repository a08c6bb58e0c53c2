package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// Ensure ContextService implements the interface.
var _ driving.ContextService = (*ContextService)(nil)

// ContextService manages generation contexts.
type ContextService struct {
	store driven.ContextStore
	now   func() time.Time
}

// NewContextService creates a context service.
func NewContextService(store driven.ContextStore) *ContextService {
	return &ContextService{store: store, now: time.Now}
}

// SaveContext validates and stores a context.
func (s *ContextService) SaveContext(ctx context.Context, c domain.GenerationContext) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if err := s.store.Save(ctx, c); err != nil {
		return persistenceErr(fmt.Sprintf("save context %s", c.ID), err)
	}
	return nil
}

// GetContext retrieves a context by ID.
func (s *ContextService) GetContext(ctx context.Context, id string) (*domain.GenerationContext, error) {
	return s.store.Get(ctx, id)
}

// ListContexts returns an owner's contexts.
func (s *ContextService) ListContexts(ctx context.Context, ownerID string) ([]domain.GenerationContext, error) {
	return s.store.List(ctx, ownerID)
}
