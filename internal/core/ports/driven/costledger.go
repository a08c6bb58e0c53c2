package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// CostLedger is an append-only sink for cost entries.
type CostLedger interface {
	// Append writes one entry. Entries are never mutated or deleted.
	Append(ctx context.Context, entry domain.CostEntry) error

	// List returns an owner's entries since the given time, oldest first.
	List(ctx context.Context, ownerID string, since time.Time) ([]domain.CostEntry, error)

	// Summarise aggregates entries by operation and model.
	Summarise(ctx context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error)
}
