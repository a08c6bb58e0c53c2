package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func TestNewsletterStore_SaveGetList(t *testing.T) {
	store := NewNewsletterStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, domain.Newsletter{ID: "n1", OwnerID: "o1", Date: base}))
	require.NoError(t, store.Save(ctx, domain.Newsletter{ID: "n2", OwnerID: "o1", Date: base.Add(24 * time.Hour)}))
	require.NoError(t, store.Save(ctx, domain.Newsletter{ID: "n3", OwnerID: "o2", Date: base}))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.OwnerID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := store.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)

	all, _ := store.List(ctx, "")
	assert.Len(t, all, 3)
}

func TestNewsletterStore_IndexedState(t *testing.T) {
	store := NewNewsletterStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Newsletter{ID: "n1", OwnerID: "o1"}))
	require.NoError(t, store.Save(ctx, domain.Newsletter{ID: "n2", OwnerID: "o1"}))

	at := time.Now().UTC()
	require.NoError(t, store.MarkIndexed(ctx, "n1", 3, at))

	got, _ := store.Get(ctx, "n1")
	assert.True(t, got.Indexed)
	assert.Equal(t, 3, got.ChunkCount)
	require.NotNil(t, got.IndexedAt)

	pending, err := store.ListUnindexed(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "n2", pending[0].ID)

	require.NoError(t, store.ResetIndexed(ctx, "n1"))
	got, _ = store.Get(ctx, "n1")
	assert.False(t, got.Indexed)
	assert.Nil(t, got.IndexedAt)
	assert.Zero(t, got.ChunkCount)

	assert.ErrorIs(t, store.MarkIndexed(ctx, "missing", 1, at), domain.ErrNotFound)
	assert.ErrorIs(t, store.ResetIndexed(ctx, "missing"), domain.ErrNotFound)
}

func TestNewsletterStore_ChunkRecords(t *testing.T) {
	store := NewNewsletterStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunkRecords(ctx, []domain.ChunkRecord{
		{ID: "p1", NewsletterID: "n1", ChunkIndex: 1},
		{ID: "p0", NewsletterID: "n1", ChunkIndex: 0},
		{ID: "q0", NewsletterID: "n2", ChunkIndex: 0},
	}))

	records, err := store.ListChunkRecords(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p0", records[0].ID)

	require.NoError(t, store.DeleteChunkRecords(ctx, "n1"))
	records, _ = store.ListChunkRecords(ctx, "n1")
	assert.Empty(t, records)

	other, _ := store.ListChunkRecords(ctx, "n2")
	assert.Len(t, other, 1)
}
