package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

const (
	// DefaultRetrievalLimit is used when a query has no limit.
	DefaultRetrievalLimit = 5

	// candidateFactor gives post-filtering headroom over the requested limit.
	candidateFactor = 2

	// recencyCandidateFactor widens the pool so boosted chunks can move up.
	recencyCandidateFactor = 3

	// dedupePrefixLen is how much chunk text goes into the dedupe key.
	dedupePrefixLen = 100

	// maxScore caps boosted scores.
	maxScore = 1.0
)

// RetrievalService runs semantic queries against the newsletter collection.
type RetrievalService struct {
	embedder   driven.EmbeddingService
	vectors    driven.VectorStore
	collection string
	now        func() time.Time
}

// NewRetrievalService creates a retrieval service over the given collection.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	collection string,
) *RetrievalService {
	return &RetrievalService{
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		now:        time.Now,
	}
}

// Retrieve embeds the query, fetches 2x limit candidates, drops those below
// MinScore, truncates to the limit and groups by newsletter.
func (s *RetrievalService) Retrieve(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	q, err := normaliseQuery(q)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	logger.Section("Retrieval")
	logger.Debug("query=%q owner=%q limit=%d minScore=%.2f", q.Query, q.OwnerID, q.Limit, q.MinScore)

	chunks, err := s.candidates(ctx, q, q.Limit*candidateFactor)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	ranked := rankChunks(chunks, q.MinScore, q.Limit)
	logger.Debug("candidates=%d kept=%d", len(chunks), len(ranked))

	return domain.RetrievalResult{
		Query:   q.Query,
		Chunks:  ranked,
		Sources: groupBySource(ranked),
	}, nil
}

// RetrieveTopics runs Retrieve once per topic and merges the hits. Chunks with
// the same parent and text prefix are kept once, at their best score.
// The merged list is capped at q.Limit.
func (s *RetrievalService) RetrieveTopics(
	ctx context.Context,
	topics []string,
	q domain.RetrievalQuery,
) (domain.RetrievalResult, error) {
	var cleaned []string
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return domain.RetrievalResult{}, fmt.Errorf("%w: at least one topic is required", domain.ErrInvalidInput)
	}

	seen := make(map[string]int)
	var merged []domain.RetrievedChunk
	for _, topic := range cleaned {
		tq := q
		tq.Query = topic
		res, err := s.Retrieve(ctx, tq)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("topic %q: %w", topic, err)
		}
		for _, c := range res.Chunks {
			key := dedupeKey(c)
			if i, ok := seen[key]; ok {
				if c.Score > merged[i].Score {
					merged[i] = c
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, c)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	ranked := rankChunks(merged, q.MinScore, limit)

	return domain.RetrievalResult{
		Query:   strings.Join(cleaned, " | "),
		Chunks:  ranked,
		Sources: groupBySource(ranked),
	}, nil
}

// RetrieveRecent fetches a wider candidate pool and adds a fixed boost to
// chunks whose newsletter is dated inside the window, then re-ranks.
func (s *RetrievalService) RetrieveRecent(
	ctx context.Context,
	q domain.RetrievalQuery,
	opts driving.RecencyOptions,
) (domain.RetrievalResult, error) {
	q, err := normaliseQuery(q)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}

	chunks, err := s.candidates(ctx, q, q.Limit*recencyCandidateFactor)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	boosted := applyRecencyBoost(chunks, now.Add(-opts.Window), opts.Boost)
	ranked := rankChunks(boosted, q.MinScore, q.Limit)

	return domain.RetrievalResult{
		Query:   q.Query,
		Chunks:  ranked,
		Sources: groupBySource(ranked),
	}, nil
}

// candidates embeds the query and fetches n hits from the vector store.
func (s *RetrievalService) candidates(ctx context.Context, q domain.RetrievalQuery, n int) ([]domain.RetrievedChunk, error) {
	vec, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, providerErr("embed query", err)
	}

	filter := domain.Filter{domain.PayloadSourceType: domain.SourceTypeNewsletter}
	if q.OwnerID != "" {
		filter[domain.PayloadOwnerID] = q.OwnerID
	}

	hits, err := s.vectors.Search(ctx, s.collection, vec, n, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, chunkFromHit(h))
	}
	return chunks, nil
}

func normaliseQuery(q domain.RetrievalQuery) (domain.RetrievalQuery, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return q, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return q, fmt.Errorf("%w: minScore must be in [0, 1]", domain.ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultRetrievalLimit
	}
	return q, nil
}

func chunkFromHit(h domain.VectorHit) domain.RetrievedChunk {
	var date time.Time
	if h.Payload.Date != "" {
		if t, err := time.Parse(time.RFC3339, h.Payload.Date); err == nil {
			date = t
		}
	}
	return domain.RetrievedChunk{
		ID:            h.ID,
		ParentID:      h.Payload.ParentID,
		ChunkIndex:    h.Payload.ChunkIndex,
		Text:          h.Payload.Text,
		Subject:       h.Payload.Subject,
		From:          h.Payload.From,
		Date:          date,
		OwnerID:       h.Payload.OwnerID,
		Score:         h.Score,
		OriginalScore: h.Score,
	}
}

// rankChunks drops chunks below minScore, sorts by score descending and
// truncates to limit.
func rankChunks(chunks []domain.RetrievedChunk, minScore float64, limit int) []domain.RetrievedChunk {
	kept := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Score >= minScore {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// groupBySource groups chunks by parent. Each group scores the mean of its
// members; groups are sorted by that mean, descending.
func groupBySource(chunks []domain.RetrievedChunk) []domain.SourceGroup {
	index := make(map[string]int)
	var groups []domain.SourceGroup
	for _, c := range chunks {
		i, ok := index[c.ParentID]
		if !ok {
			i = len(groups)
			index[c.ParentID] = i
			groups = append(groups, domain.SourceGroup{
				ParentID: c.ParentID,
				Subject:  c.Subject,
				From:     c.From,
				Date:     c.Date,
			})
		}
		groups[i].Chunks = append(groups[i].Chunks, c)
	}
	for i := range groups {
		var sum float64
		for _, c := range groups[i].Chunks {
			sum += c.Score
		}
		groups[i].Score = sum / float64(len(groups[i].Chunks))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Score > groups[j].Score
	})
	return groups
}

// applyRecencyBoost adds boost to chunks dated at or after cutoff, capped at 1.0.
// Scores already above the cap are left as they are.
func applyRecencyBoost(chunks []domain.RetrievedChunk, cutoff time.Time, boost float64) []domain.RetrievedChunk {
	if boost <= 0 {
		return chunks
	}
	out := make([]domain.RetrievedChunk, len(chunks))
	for i, c := range chunks {
		c.OriginalScore = c.Score
		if !c.Date.IsZero() && !c.Date.Before(cutoff) && c.Score < maxScore {
			c.Score = min(c.Score+boost, maxScore)
			c.Boosted = true
		}
		out[i] = c
	}
	return out
}

func dedupeKey(c domain.RetrievedChunk) string {
	text := c.Text
	if r := []rune(text); len(r) > dedupePrefixLen {
		text = string(r[:dedupePrefixLen])
	}
	return c.ParentID + "\x00" + text
}

// providerErr wraps err as a provider error unless it already classifies.
func providerErr(op string, err error) error {
	if errors.Is(err, domain.ErrProvider) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProvider, err)
}
