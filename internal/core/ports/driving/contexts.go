package driving

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// ContextService manages the trends, ideas and sessions jobs are built from.
type ContextService interface {
	SaveContext(ctx context.Context, c domain.GenerationContext) error
	GetContext(ctx context.Context, id string) (*domain.GenerationContext, error)
	ListContexts(ctx context.Context, ownerID string) ([]domain.GenerationContext, error)
}
