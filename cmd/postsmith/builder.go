package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/postsmith/internal/adapters/driven/ai"
	"github.com/custodia-labs/postsmith/internal/adapters/driven/config/file"
	"github.com/custodia-labs/postsmith/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/postsmith/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/cli"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/web"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/core/services"
	"github.com/custodia-labs/postsmith/internal/logger"
	"github.com/custodia-labs/postsmith/internal/metrics"
)

// builder is the composition root. It wires adapters into services.
type builder struct{}

var _ cli.Builder = (*builder)(nil)

// stores groups the record stores behind one Close.
type stores struct {
	jobs        driven.JobStore
	newsletters driven.NewsletterStore
	contexts    driven.ContextStore
	ledger      driven.CostLedger
	close       func() error
}

func homeDir(opts cli.Options) (string, error) {
	if opts.Home != "" {
		return opts.Home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, file.DefaultDirName), nil
}

func (b *builder) Settings(opts cli.Options) (driving.SettingsService, error) {
	return b.settings(opts)
}

func (b *builder) settings(opts cli.Options) (*services.SettingsService, error) {
	if opts.Ephemeral {
		return services.NewSettingsService(memory.NewConfigStore()), nil
	}
	home, err := homeDir(opts)
	if err != nil {
		return nil, err
	}
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(configStore), nil
}

func openStores(opts cli.Options, home string) (*stores, error) {
	if opts.Ephemeral {
		return &stores{
			jobs:        memory.NewJobStore(),
			newsletters: memory.NewNewsletterStore(),
			contexts:    memory.NewContextStore(),
			ledger:      memory.NewCostLedger(),
			close:       func() error { return nil },
		}, nil
	}
	db, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &stores{
		jobs:        db.JobStore(),
		newsletters: db.NewsletterStore(),
		contexts:    db.ContextStore(),
		ledger:      db.CostLedger(),
		close:       db.Close,
	}, nil
}

func (b *builder) Build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	settingsService, err := b.settings(opts)
	if err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if opts.Ephemeral {
		settings.Vector.Provider = domain.VectorProviderMemory
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	home, err := homeDir(opts)
	if err != nil {
		return nil, err
	}

	providers, err := ai.Init(*settings, false)
	if err != nil {
		return nil, err
	}

	st, err := openStores(opts, home)
	if err != nil {
		providers.Close()
		return nil, err
	}

	collection := settings.Vector.Collection
	accountant := services.NewAccountant(st.ledger, settings.Pricing)
	indexer := services.NewIndexerService(providers.EmbeddingService, providers.VectorStore, st.newsletters, accountant, collection)
	retrieval := services.NewRetrievalService(providers.EmbeddingService, providers.VectorStore, collection)

	pipeline, err := services.NewPostPipeline(st.contexts, retrieval, providers.LLMService, providers.ImageGenerator, accountant,
		services.PipelineConfig{
			MinWords:         settings.Pipeline.MinWords,
			MaxAttempts:      settings.Pipeline.MaxAttempts,
			Retrieval:        settings.Retrieval,
			FailOnAssetError: settings.Pipeline.FailOnAssetError,
		})
	if err != nil {
		providers.Close()
		st.close() //nolint:errcheck
		return nil, err
	}
	if !opts.Ephemeral {
		prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"), services.DefaultPrompts())
		if err != nil {
			logger.Warn("custom prompts disabled: %v", err)
		} else {
			pipeline.SetPromptStore(prompts)
		}
	}

	collector := metrics.New()
	orchestrator := services.NewJobOrchestrator(st.jobs, pipeline,
		services.WithJobTimeout(settings.Pipeline.JobTimeout),
		services.WithObserver(collector),
	)
	queue := services.NewJobQueue(orchestrator.Process,
		services.WithWorkers(settings.Pipeline.Workers),
		services.WithQueueSize(settings.Pipeline.QueueSize),
	)
	queue.Start()
	orchestrator.SetDispatcher(queue)

	embedder, llm, vectors := providers.EmbeddingService, providers.LLMService, providers.VectorStore
	dims := settings.Embedding.Dimensions
	health := map[string]web.HealthCheck{
		"embedding": embedder.Ping,
		"llm":       llm.Ping,
		"vector": func(ctx context.Context) error {
			return vectors.EnsureCollection(ctx, collection, dims)
		},
	}

	logger.Debug("services ready (home=%s, ephemeral=%t)", home, opts.Ephemeral)

	return &cli.Services{
		Settings:    settingsService,
		Jobs:        orchestrator,
		Contexts:    services.NewContextService(st.contexts),
		Newsletters: services.NewNewsletterService(st.newsletters, indexer),
		Index:       indexer,
		Retrieval:   retrieval,
		Costs:       accountant,
		Config:      *settings,
		Metrics:     collector,
		Health:      health,
		Close: func(ctx context.Context) error {
			// Workers finish in-flight jobs before the stores go away.
			queue.Shutdown(ctx)
			providers.Close()
			return errors.Join(ctx.Err(), st.close())
		},
	}, nil
}
