package mcp

import (
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval runs semantic search over indexed newsletters.
	Retrieval driving.RetrievalService

	// Jobs creates and reads generation jobs.
	Jobs driving.JobService

	// Index re-indexes stored newsletters.
	Index driving.IndexService

	// Newsletters reads stored newsletters.
	Newsletters driving.NewsletterService

	// Contexts lists generation contexts.
	Contexts driving.ContextService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// The rest are optional; their tools answer errUnavailable.
	return nil
}
