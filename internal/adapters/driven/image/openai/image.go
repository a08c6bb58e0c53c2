// Package openai provides an image generation adapter using the OpenAI images API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure ImageGenerator implements the interface.
var _ driven.ImageGenerator = (*ImageGenerator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1/"
	DefaultModel   = "dall-e-3"
	DefaultSize    = "1024x1024"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the image generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1/).
	BaseURL string

	// Model is the image model (default: dall-e-3).
	Model string

	// Size is the requested image size (default: 1024x1024).
	Size string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ImageGenerator creates one image per prompt.
type ImageGenerator struct {
	client *openai.Client
	model  string
	size   string
}

// NewImageGenerator creates a new OpenAI image generator.
func NewImageGenerator(cfg Config) (*ImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Size == "" {
		cfg.Size = DefaultSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	)
	return &ImageGenerator{client: client, model: cfg.Model, size: cfg.Size}, nil
}

// Generate requests a single image and returns its URL.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (driven.GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return driven.GeneratedImage{}, fmt.Errorf("%w: image prompt is empty", domain.ErrInvalidInput)
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         openai.F(prompt),
		Model:          openai.F(openai.ImageModel(g.model)),
		N:              openai.F(int64(1)),
		Size:           openai.F(openai.ImageGenerateParamsSize(g.size)),
		ResponseFormat: openai.F(openai.ImageGenerateParamsResponseFormatURL),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return driven.GeneratedImage{}, fmt.Errorf("%w: openai images (status %d): %w",
				domain.ErrProvider, apiErr.StatusCode, err)
		}
		return driven.GeneratedImage{}, fmt.Errorf("%w: openai images: %w", domain.ErrProvider, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return driven.GeneratedImage{}, fmt.Errorf("%w: openai images: no image returned", domain.ErrProvider)
	}

	return driven.GeneratedImage{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		Model:         g.model,
		Usage:         domain.Usage{InputUnits: 1},
	}, nil
}

// ModelName returns the image model.
func (g *ImageGenerator) ModelName() string {
	return g.model
}

// Close releases resources.
func (g *ImageGenerator) Close() error {
	return nil
}
