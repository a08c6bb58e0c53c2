package driving

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// IndexService turns newsletters into searchable chunks.
type IndexService interface {
	// IndexNewsletter indexes one newsletter, replacing any previous chunks.
	// Failures are returned and also recorded in the result.
	IndexNewsletter(ctx context.Context, n domain.Newsletter) (domain.IndexingResult, error)

	// IndexBatch indexes newsletters in bounded sub-batches.
	// Per-newsletter failures are recorded in the result, never returned.
	IndexBatch(ctx context.Context, newsletters []domain.Newsletter) domain.BatchIndexingResult

	// IndexUnindexed batches every unindexed newsletter of an owner.
	IndexUnindexed(ctx context.Context, ownerID string) (domain.BatchIndexingResult, error)

	// RemoveNewsletter deletes a newsletter's points and tracking records
	// and resets its indexed flag.
	RemoveNewsletter(ctx context.Context, newsletterID string) error
}
