package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// NewsletterStore persists newsletters and their chunk tracking records.
type NewsletterStore interface {
	// Save creates or updates a newsletter.
	Save(ctx context.Context, n domain.Newsletter) error

	// Get retrieves a newsletter by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Newsletter, error)

	// List returns an owner's newsletters, newest first. Empty owner lists all.
	List(ctx context.Context, ownerID string) ([]domain.Newsletter, error)

	// ListUnindexed returns newsletters with indexed=false.
	ListUnindexed(ctx context.Context, ownerID string) ([]domain.Newsletter, error)

	// MarkIndexed sets indexed=true with the chunk count.
	MarkIndexed(ctx context.Context, id string, chunkCount int, at time.Time) error

	// ResetIndexed sets indexed=false and clears the chunk count.
	ResetIndexed(ctx context.Context, id string) error

	// SaveChunkRecords writes tracking records for written points.
	SaveChunkRecords(ctx context.Context, records []domain.ChunkRecord) error

	// ListChunkRecords returns a newsletter's records ordered by chunk index.
	ListChunkRecords(ctx context.Context, newsletterID string) ([]domain.ChunkRecord, error)

	// DeleteChunkRecords removes all records for a newsletter.
	DeleteChunkRecords(ctx context.Context, newsletterID string) error
}
