package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContextKind identifies what drives a generation job.
type ContextKind string

// Generation context kinds.
const (
	ContextKindTrend   ContextKind = "trend"
	ContextKindIdea    ContextKind = "idea"
	ContextKindSession ContextKind = "session"
)

// IsValid returns true if the kind is recognised.
func (k ContextKind) IsValid() bool {
	switch k {
	case ContextKindTrend, ContextKindIdea, ContextKindSession:
		return true
	default:
		return false
	}
}

// GenerationContext is the trend, idea or session a job is built from.
type GenerationContext struct {
	// ID is the unique identifier referenced by jobs as contextId.
	ID string `json:"id"`

	// OwnerID identifies who created the context.
	OwnerID string `json:"ownerId"`

	// Kind is trend, idea or session.
	Kind ContextKind `json:"kind"`

	// Title is the short human-readable name.
	Title string `json:"title"`

	// Summary describes the angle the post should take.
	Summary string `json:"summary"`

	// Topics drive retrieval; the title is used when empty.
	Topics []string `json:"topics"`

	// CreatedAt is when the context was stored.
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the required fields.
func (c GenerationContext) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: context id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: context title is required", ErrValidation)
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("%w: unknown context kind %q", ErrValidation, c.Kind)
	}
	return nil
}

// SearchTopics returns the topics to retrieve for, falling back to the title.
func (c GenerationContext) SearchTopics() []string {
	var out []string
	for _, t := range c.Topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 && strings.TrimSpace(c.Title) != "" {
		out = append(out, c.Title)
	}
	return out
}
