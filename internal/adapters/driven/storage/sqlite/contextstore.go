package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// contextStore implements driven.ContextStore.
type contextStore struct {
	store *Store
}

var _ driven.ContextStore = (*contextStore)(nil)

// Save stores or updates a generation context.
func (s *contextStore) Save(ctx context.Context, c domain.GenerationContext) error {
	topics, err := marshalJSON(c.Topics)
	if err != nil {
		return fmt.Errorf("marshalling topics: %w", err)
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO contexts (id, owner_id, kind, title, summary, topics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			kind = excluded.kind,
			title = excluded.title,
			summary = excluded.summary,
			topics = excluded.topics
	`, c.ID, c.OwnerID, string(c.Kind), c.Title, nullString(c.Summary), topics, toUnix(createdAt))
	if err != nil {
		return wrapErr("saving context", err)
	}
	return nil
}

// Get retrieves a context by ID.
func (s *contextStore) Get(ctx context.Context, id string) (*domain.GenerationContext, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, title, summary, topics, created_at FROM contexts WHERE id = ?
	`, id)
	c, err := scanContext(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns an owner's contexts, newest first. Empty owner lists all.
func (s *contextStore) List(ctx context.Context, ownerID string) ([]domain.GenerationContext, error) {
	query := `SELECT id, owner_id, kind, title, summary, topics, created_at FROM contexts`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying contexts", err)
	}
	defer rows.Close()

	var out []domain.GenerationContext //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating contexts", err)
	}
	return out, nil
}

func scanContext(row scanner) (domain.GenerationContext, error) {
	var (
		c               domain.GenerationContext
		kind            string
		summary, topics sql.NullString
		createdAt       int64
	)
	err := row.Scan(&c.ID, &c.OwnerID, &kind, &c.Title, &summary, &topics, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GenerationContext{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.GenerationContext{}, wrapErr("scanning context", err)
	}

	c.Kind = domain.ContextKind(kind)
	c.Summary = summary.String
	c.CreatedAt = fromUnix(createdAt)
	if err := unmarshalJSON(topics, &c.Topics); err != nil {
		return domain.GenerationContext{}, fmt.Errorf("unmarshalling topics: %w", err)
	}
	return c, nil
}
