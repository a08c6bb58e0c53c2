package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// RetrievalService runs semantic queries over indexed newsletters.
type RetrievalService interface {
	// Retrieve returns chunks scoring at least q.MinScore, best first,
	// grouped by newsletter.
	Retrieve(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error)

	// RetrieveTopics runs one query per topic and merges the results,
	// keeping one chunk per (parent, text prefix).
	RetrieveTopics(ctx context.Context, topics []string, q domain.RetrievalQuery) (domain.RetrievalResult, error)

	// RetrieveRecent boosts chunks from newsletters dated inside the window.
	RetrieveRecent(ctx context.Context, q domain.RetrievalQuery, opts RecencyOptions) (domain.RetrievalResult, error)
}

// RecencyOptions configures the recency boost.
type RecencyOptions struct {
	// Window is how far back a newsletter counts as recent.
	Window time.Duration

	// Boost is added to the score of recent chunks, capped at 1.0.
	Boost float64

	// Now is the reference time; zero means time.Now().
	Now time.Time
}
