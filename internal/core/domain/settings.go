package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderNone disables an optional provider.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderNone:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderNone:
		return "Disabled"
	default:
		return unknownDescription
	}
}

// VectorProvider identifies the vector database backend.
type VectorProvider string

// Available vector backends.
const (
	VectorProviderQdrant VectorProvider = "qdrant"
	VectorProviderMemory VectorProvider = "memory"
)

// IsValid returns true if the vector provider is recognised.
func (p VectorProvider) IsValid() bool {
	return p == VectorProviderQdrant || p == VectorProviderMemory
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider. Only OpenAI is supported.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// Dimensions is the vector size D for the deployment.
	Dimensions int

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// BatchSize caps how many texts go into one provider call.
	BatchSize int

	// RequestsPerMinute throttles provider calls; 0 disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOpenAI {
		return false
	}
	return e.APIKey != ""
}

// LLMSettings holds completion provider configuration.
type LLMSettings struct {
	// Provider is openai or anthropic.
	Provider AIProvider

	// Model is the completion model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// RequestsPerMinute throttles provider calls; 0 disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderNone {
		return false
	}
	return l.APIKey != ""
}

// ImageSettings holds image provider configuration.
type ImageSettings struct {
	// Provider is openai or none.
	Provider AIProvider

	// Model is the image model name.
	Model string

	// Size is the requested image size, e.g. 1024x1024.
	Size string

	// APIKey falls back to the LLM key when empty.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// VectorSettings holds vector database configuration.
type VectorSettings struct {
	Provider   VectorProvider
	URL        string
	APIKey     string
	Collection string
}

// PipelineSettings tunes the generation pipeline and job workers.
type PipelineSettings struct {
	// MinWords is the quality gate's minimum acceptable word count.
	MinWords int

	// MaxAttempts bounds generation attempts including the first.
	MaxAttempts int

	// JobTimeout is the wall-clock ceiling for one job.
	JobTimeout time.Duration

	// Workers is the number of concurrent job workers.
	Workers int

	// QueueSize is the job queue capacity.
	QueueSize int

	// FailOnAssetError makes image failures fail the job.
	FailOnAssetError bool
}

// RetrievalSettings holds retrieval defaults.
type RetrievalSettings struct {
	Limit        int
	MinScore     float64
	RecencyDays  int
	RecencyBoost float64
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr string
}

// Settings holds all application settings.
type Settings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Image     ImageSettings
	Vector    VectorSettings
	Pipeline  PipelineSettings
	Retrieval RetrievalSettings
	Server    ServerSettings

	// Pricing overrides the built-in price table, keyed by model.
	Pricing map[string]ModelPrice
}

// DefaultSettings returns settings with sensible defaults.
// API keys are left empty and must come from config or environment.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  100,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Image: ImageSettings{
			Provider: AIProviderOpenAI,
			Model:    "dall-e-3",
			Size:     "1024x1024",
		},
		Vector: VectorSettings{
			Provider:   VectorProviderQdrant,
			URL:        "http://localhost:6333",
			Collection: "newsletters",
		},
		Pipeline: PipelineSettings{
			MinWords:    130,
			MaxAttempts: 2,
			JobTimeout:  5 * time.Minute,
			Workers:     4,
			QueueSize:   64,
		},
		Retrieval: RetrievalSettings{
			Limit:        8,
			MinScore:     0.5,
			RecencyDays:  30,
			RecencyBoost: 0.1,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// Validate checks settings that would make the pipeline unusable.
func (s Settings) Validate() error {
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrValidation)
	}
	if s.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("%w: pipeline.max_attempts must be at least 1", ErrValidation)
	}
	if s.Pipeline.JobTimeout <= 0 {
		return fmt.Errorf("%w: pipeline.job_timeout must be positive", ErrValidation)
	}
	if s.Retrieval.MinScore < 0 || s.Retrieval.MinScore > 1 {
		return fmt.Errorf("%w: retrieval.min_score must be in [0, 1]", ErrValidation)
	}
	if !s.Vector.Provider.IsValid() {
		return fmt.Errorf("%w: unknown vector provider %q", ErrValidation, s.Vector.Provider)
	}
	if !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", ErrValidation, s.LLM.Provider)
	}
	return nil
}

// RecencyWindow returns the recency window as a duration.
func (r RetrievalSettings) RecencyWindow() time.Duration {
	return time.Duration(r.RecencyDays) * 24 * time.Hour
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
