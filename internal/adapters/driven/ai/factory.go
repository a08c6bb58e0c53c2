// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	openaiembed "github.com/custodia-labs/postsmith/internal/adapters/driven/embedding/openai"
	openaiimage "github.com/custodia-labs/postsmith/internal/adapters/driven/image/openai"
	anthropicllm "github.com/custodia-labs/postsmith/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/custodia-labs/postsmith/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/postsmith/internal/adapters/driven/ratelimit"
	memvector "github.com/custodia-labs/postsmith/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/postsmith/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'postsmith config set' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	ImageGenerator   driven.ImageGenerator // Nil when image generation is disabled.
	VectorStore      driven.VectorStore
	Warnings         []string // Non-fatal issues, such as a disabled image provider.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorStore != nil {
		r.VectorStore.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.ImageGenerator != nil {
		r.ImageGenerator.Close()
	}
}

// Init builds every provider the settings describe. Embedding and LLM
// services are required; a missing image provider only adds a warning.
// When validate is set, required services are pinged.
func Init(settings domain.Settings, validate bool) (*InitResult, error) {
	result := &InitResult{}

	create := CreateEmbeddingService
	if validate {
		create = CreateAndValidateEmbeddingService
	}
	embedding, err := create(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: no API key for %s embeddings. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}
	result.EmbeddingService = embedding

	createLLM := CreateLLMService
	if validate {
		createLLM = CreateAndValidateLLMService
	}
	llm, err := createLLM(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, err
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: no API key for %s. %s", domain.ErrLLMUnavailable, settings.LLM.Provider, fixHint)
	}
	result.LLMService = llm

	images, err := CreateImageGenerator(&settings.Image)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("image generation disabled: %v", err))
	case images == nil:
		result.Warnings = append(result.Warnings, "image generation disabled")
	default:
		result.ImageGenerator = images
	}

	vectors, err := CreateVectorStore(settings.Vector)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorStore = vectors

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return svc, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return svc, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service for the settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		BatchSize:  settings.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return ratelimit.WrapEmbedding(svc, ratelimit.NewLimiter(settings.RequestsPerMinute)), nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return ratelimit.WrapLLM(svc, ratelimit.NewLimiter(settings.RequestsPerMinute)), nil
}

// CreateImageGenerator creates the image generator. Returns nil when the
// provider is none or has no key.
func CreateImageGenerator(settings *domain.ImageSettings) (driven.ImageGenerator, error) {
	if settings == nil || settings.Provider == domain.AIProviderNone || settings.Provider == "" {
		return nil, nil
	}
	if settings.Provider != domain.AIProviderOpenAI {
		return nil, fmt.Errorf("unsupported image provider: %s", settings.Provider)
	}
	if settings.APIKey == "" {
		return nil, nil
	}
	gen, err := openaiimage.NewImageGenerator(openaiimage.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Size:    settings.Size,
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// CreateVectorStore creates the vector store backend.
func CreateVectorStore(settings domain.VectorSettings) (driven.VectorStore, error) {
	switch settings.Provider {
	case domain.VectorProviderQdrant, "":
		return qdrant.NewStore(qdrant.Config{URL: settings.URL, APIKey: settings.APIKey}), nil
	case domain.VectorProviderMemory:
		return memvector.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector provider %q", domain.ErrValidation, settings.Provider)
	}
}
