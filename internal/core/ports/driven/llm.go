package driven

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// LLMService provides text completion for the generation pipeline.
//
// Implementations include:
//   - OpenAI (gpt-4o, gpt-4o-mini)
//   - Anthropic (Claude)
type LLMService interface {
	// Complete runs one completion and reports token usage.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest configures one completion.
type CompletionRequest struct {
	// System is an optional system instruction.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Completion is the provider's answer with its usage.
type Completion struct {
	Text  string
	Model string

	// Usage counts prompt tokens as input and completion tokens as output.
	Usage domain.Usage
}
