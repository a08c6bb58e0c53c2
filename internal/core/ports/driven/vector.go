package driven

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// VectorStore is a typed wrapper over a vector database.
// Scores are cosine similarities in [-1, 1], sorted descending.
type VectorStore interface {
	// EnsureCollection creates the collection with cosine distance if absent.
	// Calling it for an existing collection is a no-op.
	EnsureCollection(ctx context.Context, name string, dimensions int) error

	// Upsert writes all points in one call. A point is never partially stored.
	Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error

	// Search returns up to limit hits matching every filter constraint.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter domain.Filter) ([]domain.VectorHit, error)

	// DeleteByFilter removes every point matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter domain.Filter) error

	// Close releases resources.
	Close() error
}
