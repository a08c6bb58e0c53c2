package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// CostService reports spending recorded in the cost ledger.
type CostService interface {
	// Summary aggregates an owner's ledger entries since the given time.
	Summary(ctx context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error)
}
