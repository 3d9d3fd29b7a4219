package storage

import (
	"context"

	"vault-harvest-lab/internal/domain"
)

// ScenarioRunStore provides access to scenario_runs storage.
type ScenarioRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ScenarioRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ScenarioRun, error)

	// GetByScenario retrieves all runs of a scenario, ordered by started_at ASC.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.ScenarioRun, error)

	// GetRecent retrieves the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.ScenarioRun, error)
}

// ViolationStore provides access to violations storage.
type ViolationStore interface {
	// Insert adds a single violation.
	Insert(ctx context.Context, v *domain.ViolationRecord) error

	// InsertBulk adds multiple violations atomically.
	InsertBulk(ctx context.Context, violations []*domain.ViolationRecord) error

	// GetByRunID retrieves all violations for a run, ordered by step ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ViolationRecord, error)
}

// StepSnapshotStore provides access to step_snapshots storage.
type StepSnapshotStore interface {
	// InsertBulk adds the snapshots captured during one run.
	InsertBulk(ctx context.Context, snapshots []*domain.StepSnapshot) error

	// GetByRunID retrieves all snapshots for a run, ordered by step ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.StepSnapshot, error)
}
