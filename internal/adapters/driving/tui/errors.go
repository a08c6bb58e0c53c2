package tui

import "errors"

// ErrMissingJobService is returned when the job service is not provided.
var ErrMissingJobService = errors.New("tui: job service is required")

// ErrMissingJobID is returned when no job is given to watch.
var ErrMissingJobID = errors.New("tui: job id is required")

// ErrDisconnected is returned when the snapshot stream ends before the job
// reaches a terminal state.
var ErrDisconnected = errors.New("tui: stream closed before the job finished")
