package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

func sampleSnapshot(runID string, step int, label string) *domain.StepSnapshot {
	return &domain.StepSnapshot{
		RunID:         runID,
		ScenarioID:    domain.ScenarioLiquidatePosition,
		Step:          step,
		Label:         label,
		TimestampMs:   1_700_000_000_000 + int64(step)*1000,
		TotalAssets:   "1000000000000",
		TotalSupply:   "1000000000000",
		PricePerShare: "1000000",
		TotalIdle:     "0",
		DebtRatio:     10_000,
		TotalDebt:     "1000000000000",
		TotalGain:     "0",
		TotalLoss:     "0",
	}
}

func TestStepSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStepSnapshotStore(conn)
	ctx := context.Background()

	snapshots := []*domain.StepSnapshot{
		sampleSnapshot("run-1", 0, "deposit"),
		sampleSnapshot("run-1", 1, "harvest"),
		sampleSnapshot("run-2", 0, "deposit"),
	}
	require.NoError(t, store.InsertBulk(ctx, snapshots))

	found, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, 0, found[0].Step)
	assert.Equal(t, "deposit", found[0].Label)
	assert.Equal(t, 1, found[1].Step)
	assert.Equal(t, "harvest", found[1].Label)
	assert.Equal(t, "1000000000000", found[0].TotalAssets)
	assert.Equal(t, uint64(10_000), found[0].DebtRatio)
}

func TestStepSnapshotStore_LargeAmounts(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStepSnapshotStore(conn)
	ctx := context.Background()

	// Beyond uint64: an 18-decimals vault holding a few billion tokens.
	huge := "123456789012345678901234567890"
	snap := sampleSnapshot("run-big", 0, "harvest")
	snap.TotalAssets = huge
	snap.TotalDebt = huge
	require.NoError(t, store.InsertBulk(ctx, []*domain.StepSnapshot{snap}))

	found, err := store.GetByRunID(ctx, "run-big")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, huge, found[0].TotalAssets)
	assert.Equal(t, huge, found[0].TotalDebt)
}

func TestStepSnapshotStore_InvalidAmount(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStepSnapshotStore(conn)

	snap := sampleSnapshot("run-1", 0, "deposit")
	snap.TotalGain = "bogus"
	err := store.InsertBulk(context.Background(), []*domain.StepSnapshot{snap})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStepSnapshotStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStepSnapshotStore(conn)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
