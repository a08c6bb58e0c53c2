package driving

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// NewsletterService stores incoming newsletters and indexes them.
type NewsletterService interface {
	// Ingest stores a newsletter and indexes it.
	Ingest(ctx context.Context, n domain.Newsletter) (domain.IndexingResult, error)

	// GetNewsletter retrieves a newsletter by ID.
	GetNewsletter(ctx context.Context, id string) (*domain.Newsletter, error)

	// ListNewsletters returns an owner's newsletters.
	ListNewsletters(ctx context.Context, ownerID string) ([]domain.Newsletter, error)
}
