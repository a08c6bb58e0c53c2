package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func seed(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.EnsureCollection(ctx, "news", 2))
	require.NoError(t, s.Upsert(ctx, "news", []domain.VectorPoint{
		{ID: "a", Vector: []float32{1, 0}, Payload: domain.ChunkPayload{ParentID: "n1", OwnerID: "u1"}},
		{ID: "b", Vector: []float32{0.7, 0.7}, Payload: domain.ChunkPayload{ParentID: "n1", OwnerID: "u1"}},
		{ID: "c", Vector: []float32{0, 1}, Payload: domain.ChunkPayload{ParentID: "n2", OwnerID: "u2"}},
	}))
	return s
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestSearch_RanksAndFilters(t *testing.T) {
	s := seed(t)

	hits, err := s.Search(context.Background(), "news", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})

	hits, err = s.Search(context.Background(), "news", []float32{1, 0}, 1, domain.Filter{domain.PayloadOwnerID: "u2"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ID)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s := seed(t)
	_, err := s.Search(context.Background(), "news", []float32{1, 0, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_MissingCollection(t *testing.T) {
	hits, err := NewStore().Search(context.Background(), "nope", []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpsert_AllOrNothing(t *testing.T) {
	s := seed(t)
	err := s.Upsert(context.Background(), "news", []domain.VectorPoint{
		{ID: "d", Vector: []float32{1, 1}},
		{ID: "e", Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 3, s.Count("news"))
}

func TestUpsert_MissingCollection(t *testing.T) {
	s := NewStore()
	err := s.Upsert(context.Background(), "nope", []domain.VectorPoint{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestEnsureCollection_Mismatch(t *testing.T) {
	s := seed(t)
	assert.NoError(t, s.EnsureCollection(context.Background(), "news", 2))
	assert.ErrorIs(t, s.EnsureCollection(context.Background(), "news", 3), domain.ErrPersistence)
}

func TestDeleteByFilter(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.DeleteByFilter(context.Background(), "news", domain.Filter{domain.PayloadParentID: "n1"}))
	assert.Equal(t, 1, s.Count("news"))
	assert.ErrorIs(t, s.DeleteByFilter(context.Background(), "news", nil), domain.ErrInvalidInput)
	assert.NoError(t, s.DeleteByFilter(context.Background(), "missing", domain.Filter{"parentId": "x"}))
}
