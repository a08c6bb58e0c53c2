package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// costLedger implements driven.CostLedger. Rows are only ever inserted.
type costLedger struct {
	store *Store
}

var _ driven.CostLedger = (*costLedger)(nil)

// Append inserts one entry. Entries without an ID get a random one.
func (l *costLedger) Append(ctx context.Context, e domain.CostEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	metadata, err := marshalJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = l.store.db.ExecContext(ctx, `
		INSERT INTO cost_ledger
			(id, owner_id, operation, model, input_units, output_units, total_units, cost, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.OwnerID, string(e.Operation), e.Model, e.InputUnits, e.OutputUnits,
		e.TotalUnits, e.Cost, metadata, toUnix(e.Timestamp))
	if err != nil {
		return wrapErr("appending cost entry", err)
	}
	return nil
}

// List returns an owner's entries at or after since, oldest first.
func (l *costLedger) List(ctx context.Context, ownerID string, since time.Time) ([]domain.CostEntry, error) {
	where, args := ledgerWhere(ownerID, since)
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, owner_id, operation, model, input_units, output_units, total_units, cost, metadata, created_at
		FROM cost_ledger`+where+` ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, wrapErr("querying cost ledger", err)
	}
	defer rows.Close()

	var entries []domain.CostEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			e         domain.CostEntry
			op        string
			metadata  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &op, &e.Model, &e.InputUnits, &e.OutputUnits,
			&e.TotalUnits, &e.Cost, &metadata, &createdAt); err != nil {
			return nil, wrapErr("scanning cost entry", err)
		}
		e.Operation = domain.Operation(op)
		e.Timestamp = fromUnix(createdAt)
		if err := unmarshalJSON(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating cost ledger", err)
	}
	return entries, nil
}

// Summarise aggregates entries by operation and model, highest cost first.
func (l *costLedger) Summarise(ctx context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error) {
	where, args := ledgerWhere(ownerID, since)
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT operation, model, COUNT(*), COALESCE(SUM(total_units), 0), COALESCE(SUM(cost), 0)
		FROM cost_ledger`+where+`
		GROUP BY operation, model
		ORDER BY SUM(cost) DESC, operation, model`, args...)
	if err != nil {
		return nil, wrapErr("summarising cost ledger", err)
	}
	defer rows.Close()

	var out []domain.CostSummaryRow //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r  domain.CostSummaryRow
			op string
		)
		if err := rows.Scan(&op, &r.Model, &r.Entries, &r.TotalUnits, &r.Cost); err != nil {
			return nil, wrapErr("scanning cost summary", err)
		}
		r.Operation = domain.Operation(op)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating cost summary", err)
	}
	return out, nil
}

func ledgerWhere(ownerID string, since time.Time) (string, []any) {
	where := ` WHERE created_at >= ?`
	args := []any{toUnix(since)}
	if ownerID != "" {
		where += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	return where, args
}
