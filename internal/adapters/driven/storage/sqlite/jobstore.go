package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

const jobColumns = `id, owner_id, status, context_id, context_title, stage, percentage, message,
	result, cost_generation, cost_asset, total_cost, error, created_at, updated_at`

// Create inserts a new job. Existing IDs are rejected.
func (s *jobStore) Create(ctx context.Context, job domain.Job) error {
	result, err := marshalJSON(job.Result)
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.OwnerID, string(job.Status), job.ContextID, nullString(job.ContextTitle),
		string(job.Progress.Stage), job.Progress.Percentage, nullString(job.Progress.Message),
		result, job.Costs.Generation, job.Costs.Asset, job.TotalCost, nullString(job.Error),
		toUnix(job.CreatedAt), toUnix(job.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("job %s: %w", job.ID, domain.ErrAlreadyExists)
		}
		return wrapErr("inserting job", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Update loads the job, applies the patch and writes it back in one
// transaction, then publishes the merged record.
func (s *jobStore) Update(ctx context.Context, id string, patch domain.JobPatch) (domain.Job, error) {
	s.store.jobMu.Lock()
	defer s.store.jobMu.Unlock()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, wrapErr("beginning job update", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		return domain.Job{}, err
	}
	if err := job.Apply(patch, s.store.now().UTC()); err != nil {
		return domain.Job{}, err
	}

	result, err := marshalJSON(job.Result)
	if err != nil {
		return domain.Job{}, fmt.Errorf("marshalling result: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, context_title = ?, stage = ?, percentage = ?, message = ?,
			result = ?, cost_generation = ?, cost_asset = ?, total_cost = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(job.Status), nullString(job.ContextTitle), string(job.Progress.Stage),
		job.Progress.Percentage, nullString(job.Progress.Message), result,
		job.Costs.Generation, job.Costs.Asset, job.TotalCost, nullString(job.Error),
		toUnix(job.UpdatedAt), id)
	if err != nil {
		return domain.Job{}, wrapErr("updating job", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, wrapErr("committing job update", err)
	}

	s.store.broker.Publish(job)
	return job, nil
}

// List returns an owner's jobs, newest first. Empty owner lists all.
func (s *jobStore) List(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying jobs", err)
	}
	defer rows.Close()

	var jobs []domain.Job //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating jobs", err)
	}
	return jobs, nil
}

// Subscribe streams the job's current record and every later update made
// through this store.
func (s *jobStore) Subscribe(ctx context.Context, id string) (<-chan domain.Job, error) {
	// Holding jobMu keeps Update from publishing between the snapshot and
	// the registration.
	s.store.jobMu.Lock()
	defer s.store.jobMu.Unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.broker.Subscribe(ctx, *job), nil
}

func scanJob(row scanner) (domain.Job, error) {
	var (
		job                         domain.Job
		status, stage               string
		contextTitle, message, errS sql.NullString
		result                      sql.NullString
		createdAt, updatedAt        int64
	)
	err := row.Scan(&job.ID, &job.OwnerID, &status, &job.ContextID, &contextTitle, &stage,
		&job.Progress.Percentage, &message, &result, &job.Costs.Generation, &job.Costs.Asset,
		&job.TotalCost, &errS, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Job{}, wrapErr("scanning job", err)
	}

	job.Status = domain.JobStatus(status)
	job.Progress.Stage = domain.Stage(stage)
	job.Progress.Message = message.String
	job.ContextTitle = contextTitle.String
	job.Error = errS.String
	job.CreatedAt = fromUnix(createdAt)
	job.UpdatedAt = fromUnix(updatedAt)

	if result.Valid {
		var r domain.JobResult
		if err := unmarshalJSON(result, &r); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshalling result: %w", err)
		}
		job.Result = &r
	}
	return job, nil
}
