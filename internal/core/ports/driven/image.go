package driven

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// ImageGenerator produces an image from a text prompt.
// This is an optional service - when nil, jobs complete without an asset.
type ImageGenerator interface {
	// Generate creates one image and returns where it can be fetched.
	Generate(ctx context.Context, prompt string) (GeneratedImage, error)

	// ModelName returns the name of the image model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GeneratedImage is the result of an image generation call.
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
	Model         string

	// Usage counts generated images as input units.
	Usage domain.Usage
}
