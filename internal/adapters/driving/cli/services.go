package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/web"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
	"github.com/custodia-labs/postsmith/internal/metrics"
)

// drainGrace is added to the job timeout when draining workers on exit.
const drainGrace = 10 * time.Second

// errNotConfigured is returned when no builder has been registered.
var errNotConfigured = errors.New("services not configured")

// Options tells the builder where state lives.
type Options struct {
	// Home is the config and data directory; empty means ~/.postsmith.
	Home string

	// Ephemeral keeps all state in memory.
	Ephemeral bool
}

// Services holds the wired application used by the commands.
type Services struct {
	Settings    driving.SettingsService
	Jobs        driving.JobService
	Contexts    driving.ContextService
	Newsletters driving.NewsletterService
	Index       driving.IndexService
	Retrieval   driving.RetrievalService
	Costs       driving.CostService

	// Config is the effective settings the services were built from.
	Config domain.Settings

	// Metrics is nil when metrics are not collected.
	Metrics *metrics.Collector

	// Health holds provider checks for GET /healthz.
	Health map[string]web.HealthCheck

	// Close drains the job workers and releases stores and clients.
	Close func(ctx context.Context) error
}

// Builder constructs services on demand so that commands which only touch
// the config file never need provider credentials.
type Builder interface {
	// Settings opens only the config layer.
	Settings(opts Options) (driving.SettingsService, error)

	// Build wires every service.
	Build(ctx context.Context, opts Options) (*Services, error)
}

var (
	builder Builder

	// current is the service set in use; tests assign it directly.
	current *Services

	// owned marks current as built here, so it must be closed here.
	owned bool
)

// SetBuilder registers the composition root.
func SetBuilder(b Builder) {
	builder = b
}

// loadServices returns the current services, building them on first use.
func loadServices(ctx context.Context) (*Services, error) {
	if current != nil {
		return current, nil
	}
	if builder == nil {
		return nil, errNotConfigured
	}
	svc, err := builder.Build(ctx, currentOptions())
	if err != nil {
		return nil, fmt.Errorf("starting postsmith: %w", err)
	}
	current, owned = svc, true
	return svc, nil
}

// loadSettings returns a settings service without building providers.
func loadSettings() (driving.SettingsService, error) {
	if current != nil && current.Settings != nil {
		return current.Settings, nil
	}
	if builder == nil {
		return nil, errNotConfigured
	}
	return builder.Settings(currentOptions())
}

// closeServices drains and releases services built by loadServices.
// The drain runs on a fresh context so it still happens after a signal.
func closeServices() {
	if !owned || current == nil {
		return
	}
	svc := current
	current, owned = nil, false
	if svc.Close == nil {
		return
	}

	timeout := svc.Config.Pipeline.JobTimeout + drainGrace
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}
