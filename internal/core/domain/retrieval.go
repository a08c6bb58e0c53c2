package domain

import "time"

// RetrievalQuery holds semantic search parameters.
type RetrievalQuery struct {
	// Query is the natural language search text.
	Query string `json:"query"`

	// OwnerID restricts results to one owner when set.
	OwnerID string `json:"ownerId,omitempty"`

	// Limit is the maximum number of chunks to return.
	Limit int `json:"limit"`

	// MinScore drops chunks below this relevance, in [0, 1].
	MinScore float64 `json:"minScore"`
}

// RetrievedChunk is a chunk matched by a query.
type RetrievedChunk struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Date       time.Time `json:"date"`
	OwnerID    string    `json:"ownerId"`

	// Score is the relevance used for ranking.
	Score float64 `json:"score"`

	// OriginalScore is the similarity before any recency boost.
	OriginalScore float64 `json:"originalScore"`

	// Boosted is true when a recency boost was applied.
	Boosted bool `json:"boosted,omitempty"`
}

// SourceGroup collects the chunks of one newsletter.
type SourceGroup struct {
	ParentID string           `json:"parentId"`
	Subject  string           `json:"subject"`
	From     string           `json:"from"`
	Date     time.Time        `json:"date"`
	Chunks   []RetrievedChunk `json:"chunks"`

	// Score is the arithmetic mean of the member chunk scores.
	Score float64 `json:"score"`
}

// RetrievalResult is a ranked list of chunks and their grouping by source.
// It is built per query and never persisted.
type RetrievalResult struct {
	Query   string           `json:"query"`
	Chunks  []RetrievedChunk `json:"chunks"`
	Sources []SourceGroup    `json:"sources"`
}

// Citations converts the grouped sources into job citations.
func (r RetrievalResult) Citations() []Citation {
	out := make([]Citation, 0, len(r.Sources))
	for _, s := range r.Sources {
		out = append(out, Citation{
			ParentID:  s.ParentID,
			Subject:   s.Subject,
			From:      s.From,
			Date:      s.Date,
			Relevance: s.Score,
		})
	}
	return out
}
