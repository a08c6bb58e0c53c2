package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

func hit(id, parent, text string, score float64, date string) domain.VectorHit {
	return domain.VectorHit{
		ID:    id,
		Score: score,
		Payload: domain.ChunkPayload{
			ParentID:   parent,
			Text:       text,
			Subject:    "Subject " + parent,
			OwnerID:    "owner-1",
			SourceType: domain.SourceTypeNewsletter,
			Date:       date,
		},
	}
}

func newTestRetrieval(hits ...domain.VectorHit) (*RetrievalService, *mockVectorStore, *mockEmbedder) {
	vectors := newMockVectorStore()
	vectors.hits = hits
	embedder := newMockEmbedder(4)
	return NewRetrievalService(embedder, vectors, "newsletters"), vectors, embedder
}

func TestRetrieve_FiltersSortsAndGroups(t *testing.T) {
	svc, vectors, _ := newTestRetrieval(
		hit("1", "nl-a", "alpha one", 0.62, ""),
		hit("2", "nl-b", "beta one", 0.91, ""),
		hit("3", "nl-a", "alpha two", 0.80, ""),
		hit("4", "nl-c", "gamma", 0.30, ""),
	)

	res, err := svc.Retrieve(context.Background(), domain.RetrievalQuery{
		Query: "agents", OwnerID: "owner-1", Limit: 5, MinScore: 0.5,
	})

	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	assert.Equal(t, []string{"2", "3", "1"}, []string{res.Chunks[0].ID, res.Chunks[1].ID, res.Chunks[2].ID})
	for _, c := range res.Chunks {
		assert.GreaterOrEqual(t, c.Score, 0.5)
	}

	require.Len(t, res.Sources, 2)
	assert.Equal(t, "nl-b", res.Sources[0].ParentID)
	assert.InDelta(t, 0.91, res.Sources[0].Score, 1e-9)
	assert.Equal(t, "nl-a", res.Sources[1].ParentID)
	assert.InDelta(t, 0.71, res.Sources[1].Score, 1e-9)
	assert.Len(t, res.Sources[1].Chunks, 2)

	require.Len(t, vectors.searches, 1)
	assert.Equal(t, 10, vectors.limits[0])
	assert.Equal(t, domain.Filter{
		domain.PayloadSourceType: domain.SourceTypeNewsletter,
		domain.PayloadOwnerID:    "owner-1",
	}, vectors.searches[0])
}

func TestRetrieve_TruncatesToLimit(t *testing.T) {
	svc, _, _ := newTestRetrieval(
		hit("1", "a", "x", 0.9, ""), hit("2", "b", "y", 0.8, ""), hit("3", "c", "z", 0.7, ""),
	)

	res, err := svc.Retrieve(context.Background(), domain.RetrievalQuery{Query: "q", Limit: 2})

	require.NoError(t, err)
	assert.Len(t, res.Chunks, 2)
}

func TestRetrieve_NoOwnerSkipsOwnerFilter(t *testing.T) {
	svc, vectors, _ := newTestRetrieval()

	_, err := svc.Retrieve(context.Background(), domain.RetrievalQuery{Query: "q"})

	require.NoError(t, err)
	_, ok := vectors.searches[0][domain.PayloadOwnerID]
	assert.False(t, ok)
	assert.Equal(t, DefaultRetrievalLimit*2, vectors.limits[0])
}

func TestRetrieve_InvalidInput(t *testing.T) {
	svc, _, _ := newTestRetrieval()
	ctx := context.Background()

	_, err := svc.Retrieve(ctx, domain.RetrievalQuery{Query: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Retrieve(ctx, domain.RetrievalQuery{Query: "q", MinScore: 1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	svc, _, embedder := newTestRetrieval()
	embedder.embedErr = errors.New("401 unauthorized")

	_, err := svc.Retrieve(context.Background(), domain.RetrievalQuery{Query: "q"})

	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestRetrieveTopics_DedupesAndCaps(t *testing.T) {
	svc, vectors, _ := newTestRetrieval(
		hit("1", "nl-a", "shared chunk text", 0.9, ""),
		hit("2", "nl-b", "other text", 0.8, ""),
		hit("3", "nl-c", "third text", 0.7, ""),
	)

	res, err := svc.RetrieveTopics(context.Background(), []string{"agents", " ", "costs"}, domain.RetrievalQuery{Limit: 2})

	require.NoError(t, err)
	assert.Len(t, vectors.searches, 2)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "1", res.Chunks[0].ID)
	assert.Equal(t, "2", res.Chunks[1].ID)
	assert.Equal(t, "agents | costs", res.Query)
}

func TestRetrieveTopics_RequiresTopic(t *testing.T) {
	svc, _, _ := newTestRetrieval()

	_, err := svc.RetrieveTopics(context.Background(), []string{"", " "}, domain.RetrievalQuery{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDedupeKey_UsesTextPrefix(t *testing.T) {
	long := make([]rune, dedupePrefixLen+20)
	for i := range long {
		long[i] = 'é'
	}
	a := domain.RetrievedChunk{ParentID: "p", Text: string(long)}
	b := domain.RetrievedChunk{ParentID: "p", Text: string(long[:dedupePrefixLen]) + "different tail"}
	c := domain.RetrievedChunk{ParentID: "q", Text: string(long)}

	assert.Equal(t, dedupeKey(a), dedupeKey(b))
	assert.NotEqual(t, dedupeKey(a), dedupeKey(c))
}

func TestRetrieveRecent_BoostsRecentAndCaps(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	svc, vectors, _ := newTestRetrieval(
		hit("old", "nl-old", "old", 0.80, "2026-06-01T00:00:00Z"),
		hit("new", "nl-new", "new", 0.75, "2026-09-28T00:00:00Z"),
		hit("top", "nl-top", "top", 0.95, "2026-09-30T00:00:00Z"),
		hit("undated", "nl-x", "undated", 0.70, ""),
	)

	res, err := svc.RetrieveRecent(context.Background(), domain.RetrievalQuery{Query: "q", Limit: 4},
		driving.RecencyOptions{Window: 7 * 24 * time.Hour, Boost: 0.1, Now: now})

	require.NoError(t, err)
	assert.Equal(t, 12, vectors.limits[0])
	require.Len(t, res.Chunks, 4)
	assert.Equal(t, "top", res.Chunks[0].ID)
	assert.InDelta(t, 1.0, res.Chunks[0].Score, 1e-9)
	assert.Equal(t, "new", res.Chunks[1].ID)
	assert.InDelta(t, 0.85, res.Chunks[1].Score, 1e-9)
	assert.InDelta(t, 0.75, res.Chunks[1].OriginalScore, 1e-9)
	assert.True(t, res.Chunks[1].Boosted)
	assert.Equal(t, "old", res.Chunks[2].ID)
	assert.False(t, res.Chunks[2].Boosted)
	for _, c := range res.Chunks {
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestApplyRecencyBoost_ZeroBoostIsNoop(t *testing.T) {
	chunks := []domain.RetrievedChunk{{ID: "a", Score: 0.5, Date: time.Now()}}

	out := applyRecencyBoost(chunks, time.Now().Add(-time.Hour), 0)

	assert.InDelta(t, 0.5, out[0].Score, 1e-9)
	assert.False(t, out[0].Boosted)
}
