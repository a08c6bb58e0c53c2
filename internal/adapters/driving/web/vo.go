package web

import (
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ContextRequest creates or replaces a generation context.
type ContextRequest struct {
	ID      string             `json:"id"`
	OwnerID string             `json:"ownerId"`
	Kind    domain.ContextKind `json:"kind"`
	Title   string             `json:"title"`
	Summary string             `json:"summary"`
	Topics  []string           `json:"topics"`
}

// NewsletterRequest ingests one newsletter.
type NewsletterRequest struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"ownerId"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body"`
}

// SearchRequest runs a retrieval query. Topics switches to multi-topic
// retrieval; Recent applies the recency boost.
type SearchRequest struct {
	Query    string   `json:"query"`
	OwnerID  string   `json:"ownerId"`
	Limit    int      `json:"limit"`
	MinScore *float64 `json:"minScore"`
	Topics   []string `json:"topics"`
	Recent   bool     `json:"recent"`
}

// HealthResponse reports dependency status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// CostResponse is the cost report for an owner.
type CostResponse struct {
	OwnerID string                  `json:"ownerId"`
	Since   time.Time               `json:"since"`
	Total   float64                 `json:"total"`
	Rows    []domain.CostSummaryRow `json:"rows"`
}
