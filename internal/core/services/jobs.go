package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Ensure JobOrchestrator implements the interface.
var _ driving.JobService = (*JobOrchestrator)(nil)

const (
	// DefaultJobTimeout is the wall-clock ceiling for one job.
	DefaultJobTimeout = 5 * time.Minute

	// finalWriteTimeout bounds the terminal record write, which runs on a
	// fresh context so it still happens after the job deadline.
	finalWriteTimeout = 10 * time.Second
)

// Runner executes the generation stages for a job.
type Runner interface {
	Run(ctx context.Context, job domain.Job, report ProgressFunc) (domain.JobResult, domain.CostBreakdown, error)
}

// Dispatcher hands a task to a background worker.
type Dispatcher interface {
	Enqueue(ctx context.Context, task JobTask) error
}

// JobObserver is notified of job outcomes. Used for metrics.
type JobObserver interface {
	JobStarted()
	JobFinished(status domain.JobStatus, duration time.Duration, cost float64)
}

// JobOrchestrator creates job records synchronously and runs the pipeline
// in the background. Each job's record is written only by its own worker.
type JobOrchestrator struct {
	jobs     driven.JobStore
	runner   Runner
	dispatch Dispatcher
	observer JobObserver
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*JobOrchestrator)

// WithJobTimeout sets the wall-clock ceiling for one job.
func WithJobTimeout(d time.Duration) OrchestratorOption {
	return func(o *JobOrchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithObserver registers a job outcome observer.
func WithObserver(obs JobObserver) OrchestratorOption {
	return func(o *JobOrchestrator) {
		o.observer = obs
	}
}

// NewJobOrchestrator creates an orchestrator. Call SetDispatcher before
// CreateJob; the dispatcher usually wraps Process.
func NewJobOrchestrator(jobs driven.JobStore, runner Runner, opts ...OrchestratorOption) *JobOrchestrator {
	o := &JobOrchestrator{
		jobs:    jobs,
		runner:  runner,
		timeout: DefaultJobTimeout,
		now:     time.Now,
		newID: func() string {
			return "job_" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetDispatcher sets where created jobs are sent.
func (o *JobOrchestrator) SetDispatcher(d Dispatcher) {
	o.dispatch = d
}

// CreateJob validates the request, writes a pending job, dispatches it and
// returns the job ID without waiting for any stage.
func (o *JobOrchestrator) CreateJob(ctx context.Context, req domain.CreateJobRequest) (domain.CreateJobResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.CreateJobResponse{Success: false, Message: err.Error()}, err
	}
	if o.dispatch == nil {
		return domain.CreateJobResponse{}, fmt.Errorf("%w: no job dispatcher configured", domain.ErrQueueClosed)
	}

	job := domain.NewJob(o.newID(), req.OwnerID, req.ContextID, o.now().UTC())
	if err := o.jobs.Create(ctx, job); err != nil {
		err = persistenceErr("create job", err)
		return domain.CreateJobResponse{Success: false, Message: err.Error()}, err
	}

	if err := o.dispatch.Enqueue(ctx, JobTask{JobID: job.ID}); err != nil {
		o.finish(ctx, job.ID, domain.JobResult{}, domain.CostBreakdown{}, fmt.Errorf("dispatch: %w", err))
		return domain.CreateJobResponse{Success: false, JobID: job.ID, Message: err.Error()}, err
	}

	logger.Info("job %s created for context %s", job.ID, job.ContextID)
	return domain.CreateJobResponse{
		Success: true,
		JobID:   job.ID,
		Message: "Job created, generation started",
	}, nil
}

// GetJob retrieves a job by ID.
func (o *JobOrchestrator) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return o.jobs.Get(ctx, id)
}

// ListJobs returns an owner's most recent jobs.
func (o *JobOrchestrator) ListJobs(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	return o.jobs.List(ctx, ownerID, limit)
}

// WatchJob streams job snapshots until the job is terminal or ctx is done.
func (o *JobOrchestrator) WatchJob(ctx context.Context, id string) (<-chan domain.Job, error) {
	return o.jobs.Subscribe(ctx, id)
}

// Process runs one job to completion or failure. It is the worker-side
// entry point and never returns an error: every failure ends up in the
// job record. Cancellation of ctx is ignored; only the job timeout stops it.
func (o *JobOrchestrator) Process(ctx context.Context, task JobTask) {
	start := o.now()
	base := context.WithoutCancel(ctx)
	if o.observer != nil {
		o.observer.JobStarted()
	}

	runCtx, cancel := context.WithTimeout(base, o.timeout)
	defer cancel()

	result, costs, err := o.execute(runCtx, task.JobID)
	if err == nil && runCtx.Err() != nil {
		err = runCtx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: job exceeded %s", domain.ErrTimeout, o.timeout)
	}

	status := o.finish(base, task.JobID, result, costs, err)
	if o.observer != nil {
		o.observer.JobFinished(status, o.now().Sub(start), costs.Total())
	}
}

type outcome struct {
	result domain.JobResult
	costs  domain.CostBreakdown
	err    error
}

// execute runs the pipeline in its own goroutine so the deadline is
// enforced even when a provider ignores cancellation.
func (o *JobOrchestrator) execute(ctx context.Context, jobID string) (domain.JobResult, domain.CostBreakdown, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return domain.JobResult{}, domain.CostBreakdown{}, fmt.Errorf("load job: %w", err)
	}

	processing := domain.JobStatusProcessing
	if _, err := o.jobs.Update(ctx, jobID, domain.JobPatch{
		Status:  &processing,
		Message: domain.Ptr("Starting generation"),
	}); err != nil {
		return domain.JobResult{}, domain.CostBreakdown{}, fmt.Errorf("start job: %w", err)
	}
	logger.Debug("job %s processing", jobID)

	report := func(ctx context.Context, patch domain.JobPatch) error {
		if _, err := o.jobs.Update(ctx, jobID, patch); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("pipeline panic: %v", r)}
			}
		}()
		res, costs, err := o.runner.Run(ctx, *job, report)
		done <- outcome{result: res, costs: costs, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.costs, out.err
	case <-ctx.Done():
		return domain.JobResult{}, domain.CostBreakdown{}, ctx.Err()
	}
}

// finish writes the terminal record on a fresh context and returns the
// terminal status.
func (o *JobOrchestrator) finish(
	base context.Context,
	jobID string,
	result domain.JobResult,
	costs domain.CostBreakdown,
	runErr error,
) domain.JobStatus {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(base), finalWriteTimeout)
	defer cancel()

	var patch domain.JobPatch
	status := domain.JobStatusCompleted
	if runErr == nil {
		patch = domain.JobPatch{
			Status:     &status,
			Stage:      domain.Ptr(domain.StageFinalizing),
			Percentage: domain.Ptr(100),
			Message:    domain.Ptr("Post generated"),
			Result:     &result,
			Costs:      &costs,
		}
	} else {
		status = domain.JobStatusFailed
		patch = domain.JobPatch{
			Status:     &status,
			Percentage: domain.Ptr(100),
			Message:    domain.Ptr("Generation failed"),
			Costs:      &costs,
			Error:      domain.Ptr(runErr.Error()),
		}
	}

	if _, err := o.jobs.Update(ctx, jobID, patch); err != nil {
		logger.Error("job %s: failed to write %s state: %v", jobID, status, err)
		return status
	}
	if runErr != nil {
		logger.Error("job %s failed: %v", jobID, runErr)
	} else {
		logger.Info("job %s completed: %d words, $%.4f", jobID, result.WordCount, costs.Total())
	}
	return status
}
