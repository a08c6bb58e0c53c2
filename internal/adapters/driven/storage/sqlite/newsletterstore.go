package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// newsletterStore implements driven.NewsletterStore.
type newsletterStore struct {
	store *Store
}

var _ driven.NewsletterStore = (*newsletterStore)(nil)

const newsletterColumns = `id, owner_id, subject, sender, sent_at, body, indexed, indexed_at, chunk_count, created_at`

// Save stores or updates a newsletter.
func (s *newsletterStore) Save(ctx context.Context, n domain.Newsletter) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO newsletters (`+newsletterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			subject = excluded.subject,
			sender = excluded.sender,
			sent_at = excluded.sent_at,
			body = excluded.body,
			indexed = excluded.indexed,
			indexed_at = excluded.indexed_at,
			chunk_count = excluded.chunk_count
	`, n.ID, n.OwnerID, n.Subject, n.From, toUnix(n.Date), n.Body,
		boolToInt(n.Indexed), nullUnix(n.IndexedAt), n.ChunkCount, toUnix(createdAt))
	if err != nil {
		return wrapErr("saving newsletter", err)
	}
	return nil
}

// Get retrieves a newsletter by ID.
func (s *newsletterStore) Get(ctx context.Context, id string) (*domain.Newsletter, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+newsletterColumns+` FROM newsletters WHERE id = ?`, id)
	n, err := scanNewsletter(row)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns an owner's newsletters, newest first.
func (s *newsletterStore) List(ctx context.Context, ownerID string) ([]domain.Newsletter, error) {
	return s.query(ctx, ownerID, false)
}

// ListUnindexed returns newsletters that have not been indexed.
func (s *newsletterStore) ListUnindexed(ctx context.Context, ownerID string) ([]domain.Newsletter, error) {
	return s.query(ctx, ownerID, true)
}

func (s *newsletterStore) query(ctx context.Context, ownerID string, unindexedOnly bool) ([]domain.Newsletter, error) {
	query := `SELECT ` + newsletterColumns + ` FROM newsletters WHERE 1 = 1`
	var args []any
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	if unindexedOnly {
		query += ` AND indexed = 0`
	}
	query += ` ORDER BY sent_at DESC, id`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying newsletters", err)
	}
	defer rows.Close()

	var out []domain.Newsletter //nolint:prealloc // size unknown from query
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating newsletters", err)
	}
	return out, nil
}

// MarkIndexed sets indexed=true with the chunk count.
func (s *newsletterStore) MarkIndexed(ctx context.Context, id string, chunkCount int, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE newsletters SET indexed = 1, indexed_at = ?, chunk_count = ? WHERE id = ?
	`, toUnix(at), chunkCount, id)
	return checkAffected(res, err, "marking newsletter indexed")
}

// ResetIndexed sets indexed=false and clears the chunk count.
func (s *newsletterStore) ResetIndexed(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE newsletters SET indexed = 0, indexed_at = NULL, chunk_count = 0 WHERE id = ?
	`, id)
	return checkAffected(res, err, "resetting newsletter")
}

// SaveChunkRecords writes tracking records in one transaction.
func (s *newsletterStore) SaveChunkRecords(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_records (id, newsletter_id, owner_id, chunk_index, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			newsletter_id = excluded.newsletter_id,
			owner_id = excluded.owner_id,
			chunk_index = excluded.chunk_index,
			created_at = excluded.created_at
	`)
	if err != nil {
		return wrapErr("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.NewsletterID, r.OwnerID, r.ChunkIndex, toUnix(r.CreatedAt)); err != nil {
			return wrapErr("saving chunk record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("committing chunk records", err)
	}
	return nil
}

// ListChunkRecords returns a newsletter's records ordered by chunk index.
func (s *newsletterStore) ListChunkRecords(ctx context.Context, newsletterID string) ([]domain.ChunkRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, newsletter_id, owner_id, chunk_index, created_at
		FROM chunk_records WHERE newsletter_id = ? ORDER BY chunk_index
	`, newsletterID)
	if err != nil {
		return nil, wrapErr("querying chunk records", err)
	}
	defer rows.Close()

	var records []domain.ChunkRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r         domain.ChunkRecord
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.NewsletterID, &r.OwnerID, &r.ChunkIndex, &createdAt); err != nil {
			return nil, wrapErr("scanning chunk record", err)
		}
		r.CreatedAt = fromUnix(createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating chunk records", err)
	}
	return records, nil
}

// DeleteChunkRecords removes all records for a newsletter.
func (s *newsletterStore) DeleteChunkRecords(ctx context.Context, newsletterID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM chunk_records WHERE newsletter_id = ?`, newsletterID); err != nil {
		return wrapErr("deleting chunk records", err)
	}
	return nil
}

func scanNewsletter(row scanner) (domain.Newsletter, error) {
	var (
		n                 domain.Newsletter
		subject, sender   sql.NullString
		body              sql.NullString
		sentAt, createdAt int64
		indexed           int
		indexedAt         sql.NullInt64
	)
	err := row.Scan(&n.ID, &n.OwnerID, &subject, &sender, &sentAt, &body,
		&indexed, &indexedAt, &n.ChunkCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Newsletter{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Newsletter{}, wrapErr("scanning newsletter", err)
	}

	n.Subject = subject.String
	n.From = sender.String
	n.Body = body.String
	n.Date = fromUnix(sentAt)
	n.CreatedAt = fromUnix(createdAt)
	n.Indexed = indexed != 0
	if indexedAt.Valid {
		t := fromUnix(indexedAt.Int64)
		n.IndexedAt = &t
	}
	return n, nil
}

// checkAffected maps an update that matched no rows to ErrNotFound.
func checkAffected(res sql.Result, err error, op string) error {
	if err != nil {
		return wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
