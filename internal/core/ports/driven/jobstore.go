package driven

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// JobStore persists job records and publishes changes.
// Each job has a single writer, so Update is a last-write-wins merge.
type JobStore interface {
	// Create writes a new job record.
	Create(ctx context.Context, job domain.Job) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// Update applies a validated patch and returns the merged record.
	Update(ctx context.Context, id string, patch domain.JobPatch) (domain.Job, error)

	// List returns an owner's jobs, newest first.
	List(ctx context.Context, ownerID string, limit int) ([]domain.Job, error)

	// Subscribe streams the current record and every later update.
	// The channel is closed when ctx is done or the job reaches a terminal state.
	Subscribe(ctx context.Context, id string) (<-chan domain.Job, error)
}
