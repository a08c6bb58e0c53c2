package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func TestCostLedger_AppendListSummarise(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	ledger := store.CostLedger()

	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.CostEntry{
		{OwnerID: "u1", Operation: domain.OperationEmbedding, Model: "text-embedding-3-small",
			InputUnits: 1000, TotalUnits: 1000, Cost: 0.00002, Timestamp: base},
		{OwnerID: "u1", Operation: domain.OperationCompletion, Model: "gpt-4o-mini",
			InputUnits: 500, OutputUnits: 300, TotalUnits: 800, Cost: 0.0003,
			Metadata: map[string]string{"jobId": "job_1"}, Timestamp: base.Add(time.Minute)},
		{OwnerID: "u1", Operation: domain.OperationCompletion, Model: "gpt-4o-mini",
			InputUnits: 100, OutputUnits: 100, TotalUnits: 200, Cost: 0.0001, Timestamp: base.Add(2 * time.Minute)},
		{OwnerID: "u2", Operation: domain.OperationImage, Model: "dall-e-3",
			OutputUnits: 1, TotalUnits: 1, Cost: 0.04, Timestamp: base},
	}
	for _, e := range entries {
		require.NoError(t, ledger.Append(ctx, e))
	}

	list, err := ledger.List(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.OperationEmbedding, list[0].Operation)
	assert.NotEmpty(t, list[0].ID)
	assert.Equal(t, "job_1", list[1].Metadata["jobId"])

	recent, err := ledger.List(ctx, "u1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	rows, err := ledger.Summarise(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.OperationCompletion, rows[0].Operation)
	assert.Equal(t, 2, rows[0].Entries)
	assert.Equal(t, int64(1000), rows[0].TotalUnits)
	assert.InDelta(t, 0.0004, rows[0].Cost, 1e-9)

	all, err := ledger.Summarise(ctx, "", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.OperationImage, all[0].Operation)
}
