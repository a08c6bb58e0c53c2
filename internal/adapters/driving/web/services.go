// Package web serves the postsmith HTTP API on gin.
package web

import (
	"context"
	"errors"

	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// ErrMissingJobService is returned when the job service is not provided.
var ErrMissingJobService = errors.New("web: job service is required")

// Services aggregates the driving ports the API exposes.
type Services struct {
	Jobs        driving.JobService
	Contexts    driving.ContextService
	Newsletters driving.NewsletterService
	Index       driving.IndexService
	Retrieval   driving.RetrievalService
	Costs       driving.CostService
}

// Validate ensures the required ports are set. Routes backed by a nil
// optional port answer 501.
func (s *Services) Validate() error {
	if s.Jobs == nil {
		return ErrMissingJobService
	}
	return nil
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error
