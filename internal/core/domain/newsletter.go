package domain

import (
	"fmt"
	"time"
)

// SourceTypeNewsletter tags vector points created from newsletters.
const SourceTypeNewsletter = "newsletter"

// Newsletter is a source document plus its indexing state.
type Newsletter struct {
	// ID is the unique identifier for the newsletter.
	ID string `json:"id"`

	// OwnerID identifies whose inbox the newsletter came from.
	OwnerID string `json:"ownerId"`

	// Subject is the email subject line.
	Subject string `json:"subject"`

	// From is the sender.
	From string `json:"from"`

	// Date is when the newsletter was sent.
	Date time.Time `json:"date"`

	// Body is the plain-text content.
	Body string `json:"body"`

	// Indexed is true once chunks have been written to the vector store.
	Indexed bool `json:"indexed"`

	// IndexedAt is when indexing last succeeded.
	IndexedAt *time.Time `json:"indexedAt,omitempty"`

	// ChunkCount is the number of chunks written by the last indexing.
	ChunkCount int `json:"chunkCount,omitempty"`

	// CreatedAt is when the newsletter was stored.
	CreatedAt time.Time `json:"createdAt"`
}

// CompositeText renders the newsletter as one block for chunking.
func (n Newsletter) CompositeText() string {
	if n.Subject == "" && n.From == "" {
		return n.Body
	}
	return fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", n.Subject, n.From, n.Body)
}

// ChunkRecord tracks one vector point written for a newsletter so the
// points can be found and deleted later.
type ChunkRecord struct {
	// ID is the vector point ID.
	ID string

	// NewsletterID is the parent newsletter.
	NewsletterID string

	// OwnerID is copied from the newsletter.
	OwnerID string

	// ChunkIndex is the ordinal within the parent, contiguous from 0.
	ChunkIndex int

	// CreatedAt is when the point was written.
	CreatedAt time.Time
}

// IndexingResult is the outcome of indexing one newsletter.
type IndexingResult struct {
	NewsletterID  string  `json:"newsletterId"`
	Success       bool    `json:"success"`
	ChunksCreated int     `json:"chunksCreated"`
	Cost          float64 `json:"cost"`
	Error         string  `json:"error,omitempty"`
}

// BatchIndexingResult aggregates a batch of indexing results.
// SuccessCount + FailureCount always equals len(Results).
type BatchIndexingResult struct {
	Results      []IndexingResult `json:"results"`
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	TotalChunks  int              `json:"totalChunks"`
	TotalCost    float64          `json:"totalCost"`
}

// Add records one result and updates the aggregates.
func (b *BatchIndexingResult) Add(r IndexingResult) {
	b.Results = append(b.Results, r)
	if r.Success {
		b.SuccessCount++
	} else {
		b.FailureCount++
	}
	b.TotalChunks += r.ChunksCreated
	b.TotalCost += r.Cost
}
