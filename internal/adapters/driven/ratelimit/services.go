package ratelimit

import (
	"context"

	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
	_ driven.ImageGenerator   = (*ImageGenerator)(nil)
)

// EmbeddingService throttles an embedding provider.
type EmbeddingService struct {
	driven.EmbeddingService
	limiter *Limiter
}

// WrapEmbedding returns svc unchanged when limiter is nil.
func WrapEmbedding(svc driven.EmbeddingService, limiter *Limiter) driven.EmbeddingService {
	if svc == nil || limiter == nil {
		return svc
	}
	return &EmbeddingService{EmbeddingService: svc, limiter: limiter}
}

// Embed waits for a token before calling the provider.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.EmbeddingService.Embed(ctx, text)
	s.limiter.Observe(err)
	return v, err
}

// EmbedBatch takes one token per batch call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	s.limiter.Observe(err)
	return v, err
}

// LLMService throttles a completion provider.
type LLMService struct {
	driven.LLMService
	limiter *Limiter
}

// WrapLLM returns svc unchanged when limiter is nil.
func WrapLLM(svc driven.LLMService, limiter *Limiter) driven.LLMService {
	if svc == nil || limiter == nil {
		return svc
	}
	return &LLMService{LLMService: svc, limiter: limiter}
}

// Complete waits for a token before calling the provider.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return driven.Completion{}, err
	}
	out, err := s.LLMService.Complete(ctx, req)
	s.limiter.Observe(err)
	return out, err
}

// ImageGenerator throttles an image provider.
type ImageGenerator struct {
	driven.ImageGenerator
	limiter *Limiter
}

// WrapImage returns gen unchanged when limiter is nil.
func WrapImage(gen driven.ImageGenerator, limiter *Limiter) driven.ImageGenerator {
	if gen == nil || limiter == nil {
		return gen
	}
	return &ImageGenerator{ImageGenerator: gen, limiter: limiter}
}

// Generate waits for a token before calling the provider.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (driven.GeneratedImage, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return driven.GeneratedImage{}, err
	}
	out, err := g.ImageGenerator.Generate(ctx, prompt)
	g.limiter.Observe(err)
	return out, err
}
