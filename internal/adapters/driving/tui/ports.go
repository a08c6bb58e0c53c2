// Package tui provides a terminal progress watcher for generation jobs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// Ports aggregates the driving ports the watcher needs.
type Ports struct {
	// Jobs streams job snapshots.
	Jobs driving.JobService
}

// NewPorts creates a new Ports aggregate.
func NewPorts(jobs driving.JobService) *Ports {
	return &Ports{Jobs: jobs}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Jobs == nil {
		return ErrMissingJobService
	}
	return nil
}
