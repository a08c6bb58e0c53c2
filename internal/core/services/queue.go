package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Default queue settings.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// JobTask is the self-contained job description handed to a worker.
type JobTask struct {
	JobID string
}

// TaskHandler processes one task. It owns the task's whole lifecycle.
type TaskHandler func(ctx context.Context, task JobTask)

// JobQueue is a bounded worker pool. Enqueue returns as soon as the task is
// buffered; workers run handlers with a background context.
type JobQueue struct {
	handler TaskHandler
	workers int

	ch   chan JobTask
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// QueueOption configures the queue.
type QueueOption func(*JobQueue)

// WithWorkers sets the number of workers.
func WithWorkers(n int) QueueOption {
	return func(q *JobQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the buffer capacity.
func WithQueueSize(n int) QueueOption {
	return func(q *JobQueue) {
		if n > 0 {
			q.ch = make(chan JobTask, n)
		}
	}
}

// NewJobQueue creates a queue. Call Start before enqueuing.
func NewJobQueue(handler TaskHandler, opts ...QueueOption) *JobQueue {
	q := &JobQueue{
		handler: handler,
		workers: DefaultWorkers,
		ch:      make(chan JobTask, DefaultQueueSize),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Start launches the workers. Calling it more than once has no effect.
func (q *JobQueue) Start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				logger.Debug("worker %d started", workerID)
				for task := range q.ch {
					q.handler(context.Background(), task)
				}
				logger.Debug("worker %d stopped", workerID)
			}(i + 1)
		}
	})
}

// Enqueue buffers a task. When the buffer is full it blocks until a worker
// frees a slot or ctx is done.
func (q *JobQueue) Enqueue(ctx context.Context, task JobTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("enqueue %s: %w", task.JobID, domain.ErrQueueClosed)
	}
	select {
	case q.ch <- task:
		logger.Debug("queued job %s", task.JobID)
		return nil
	default:
	}

	logger.Warn("job queue full, waiting for a free slot (job %s)", task.JobID)
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", task.JobID, ctx.Err())
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or
// ctx to expire.
func (q *JobQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		logger.Warn("job queue shutdown interrupted, some jobs may still be running")
	case <-done:
		logger.Debug("job queue drained")
	}
}
