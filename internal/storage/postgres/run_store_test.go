package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

func sampleRun(runID string, startedAt int64) *domain.ScenarioRun {
	return &domain.ScenarioRun{
		RunID:      runID,
		ScenarioID: domain.ScenarioRekt,
		Backend:    "sim",
		Mode:       domain.ModeSlippageTolerant,
		Tolerance:  1e-4,
		StartedAt:  startedAt,
		FinishedAt: startedAt + 250,
		StepCount:  6,
		Violations: 1,
		Status:     domain.RunStatusFailed,
		Detail:     ptr("TotalDebt: expected 0, got 5"),
	}
}

func TestScenarioRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-1", 1000)
	require.NoError(t, store.Insert(ctx, run))

	found, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ScenarioID, found.ScenarioID)
	assert.Equal(t, run.Mode, found.Mode)
	assert.Equal(t, run.Tolerance, found.Tolerance)
	assert.Equal(t, run.Status, found.Status)
	require.NotNil(t, found.Detail)
	assert.Equal(t, *run.Detail, *found.Detail)
}

func TestScenarioRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run-1", 1000)))

	err := store.Insert(ctx, sampleRun("run-1", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestScenarioRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScenarioRunStore_GetByScenario(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run-2", 2000)))
	require.NoError(t, store.Insert(ctx, sampleRun("run-1", 1000)))

	other := sampleRun("run-3", 3000)
	other.ScenarioID = domain.ScenarioNoProfit
	require.NoError(t, store.Insert(ctx, other))

	runs, err := store.GetByScenario(ctx, domain.ScenarioRekt)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
}

func TestScenarioRunStore_GetRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, store.Insert(ctx, sampleRun(id, int64(1000*(i+1)))))
	}

	runs, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)

	_, err = store.GetRecent(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
