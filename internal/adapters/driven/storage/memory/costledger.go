package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure CostLedger implements the interface.
var _ driven.CostLedger = (*CostLedger)(nil)

// CostLedger is an in-memory append-only implementation of driven.CostLedger.
type CostLedger struct {
	mu      sync.RWMutex
	entries []domain.CostEntry
}

// NewCostLedger creates a new in-memory cost ledger.
func NewCostLedger() *CostLedger {
	return &CostLedger{}
}

// Append adds one entry.
func (l *CostLedger) Append(_ context.Context, entry domain.CostEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// List returns an owner's entries at or after since, oldest first.
func (l *CostLedger) List(_ context.Context, ownerID string, since time.Time) ([]domain.CostEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.CostEntry
	for _, e := range l.entries {
		if (ownerID == "" || e.OwnerID == ownerID) && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Summarise groups entries by operation and model, highest cost first.
func (l *CostLedger) Summarise(ctx context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error) {
	entries, err := l.List(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}
	return SummariseEntries(entries), nil
}

// SummariseEntries aggregates entries by operation and model.
func SummariseEntries(entries []domain.CostEntry) []domain.CostSummaryRow {
	type key struct {
		op    domain.Operation
		model string
	}
	index := make(map[key]int)
	var rows []domain.CostSummaryRow
	for _, e := range entries {
		k := key{e.Operation, e.Model}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, domain.CostSummaryRow{Operation: e.Operation, Model: e.Model})
		}
		rows[i].Entries++
		rows[i].TotalUnits += e.TotalUnits
		rows[i].Cost += e.Cost
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Cost > rows[j].Cost })
	return rows
}
