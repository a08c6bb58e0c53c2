package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrValidation indicates a request is missing required fields.
	// Requests failing validation never create a job.
	ErrValidation = errors.New("validation failed")

	// ErrProvider indicates an embedding, completion or image provider
	// was unreachable, rate-limited or returned malformed output.
	ErrProvider = errors.New("provider error")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity with the same ID already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTimeout indicates the job's wall-clock budget was exceeded.
	ErrTimeout = errors.New("timeout exceeded")

	// ErrPersistence indicates a document or vector store write failed.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidTransition indicates a job patch would regress status or progress.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrConfigNotFound indicates no configuration file exists yet.
	ErrConfigNotFound = errors.New("config not found")

	// ErrQueueClosed indicates the job queue is shutting down.
	ErrQueueClosed = errors.New("job queue closed")
)
