// Package messages defines Bubbletea message types for the job watcher.
// Messages carry subscription events through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// Subscribed carries the snapshot stream opened for a job.
type Subscribed struct {
	JobID   string
	Updates <-chan domain.Job
	Err     error
}

// JobUpdated carries one job snapshot from the stream.
type JobUpdated struct {
	Job domain.Job
}

// Terminal reports whether the snapshot is the job's last.
func (m JobUpdated) Terminal() bool {
	return m.Job.Status.IsTerminal()
}

// StreamClosed signals the snapshot stream ended.
type StreamClosed struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the watcher should exit.
type Quit struct{}
