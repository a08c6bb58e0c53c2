package driven

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// ContextStore persists trends, ideas and sessions referenced by jobs.
type ContextStore interface {
	// Save creates or updates a context.
	Save(ctx context.Context, c domain.GenerationContext) error

	// Get retrieves a context by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.GenerationContext, error)

	// List returns an owner's contexts. Empty owner lists all.
	List(ctx context.Context, ownerID string) ([]domain.GenerationContext, error)
}
