package driving

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// JobService owns the generation job lifecycle.
type JobService interface {
	// CreateJob validates the request, writes a pending job and dispatches it.
	// It returns before any pipeline work is done. Validation failures
	// return domain.ErrValidation and no job is created.
	CreateJob(ctx context.Context, req domain.CreateJobRequest) (domain.CreateJobResponse, error)

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// ListJobs returns an owner's most recent jobs.
	ListJobs(ctx context.Context, ownerID string, limit int) ([]domain.Job, error)

	// WatchJob streams job snapshots until the job is terminal or ctx is done.
	WatchJob(ctx context.Context, id string) (<-chan domain.Job, error)
}
