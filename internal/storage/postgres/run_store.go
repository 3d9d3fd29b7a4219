package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// ScenarioRunStore implements storage.ScenarioRunStore using PostgreSQL.
type ScenarioRunStore struct {
	pool *Pool
}

// NewScenarioRunStore creates a new ScenarioRunStore.
func NewScenarioRunStore(pool *Pool) *ScenarioRunStore {
	return &ScenarioRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioRunStore = (*ScenarioRunStore)(nil)

const runColumns = `
	run_id, scenario_id, backend, mode, tolerance,
	started_at, finished_at, step_count, violations, status, detail
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ScenarioRunStore) Insert(ctx context.Context, run *domain.ScenarioRun) error {
	query := `
		INSERT INTO scenario_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.ScenarioID, run.Backend, string(run.Mode), run.Tolerance,
		run.StartedAt, run.FinishedAt, run.StepCount, run.Violations, string(run.Status), run.Detail,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scenario run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioRunStore) GetByID(ctx context.Context, runID string) (*domain.ScenarioRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scenario_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario run by id: %w", err)
	}
	return run, nil
}

// GetByScenario retrieves all runs of a scenario, ordered by started_at ASC.
func (s *ScenarioRunStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.ScenarioRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scenario_runs
		WHERE scenario_id = $1
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get scenario runs by scenario: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetRecent retrieves the most recent runs, newest first.
func (s *ScenarioRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.ScenarioRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidInput)
	}

	query := `
		SELECT ` + runColumns + `
		FROM scenario_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent scenario runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a ScenarioRun.
func scanRun(row pgx.Row) (*domain.ScenarioRun, error) {
	var run domain.ScenarioRun
	var mode, status string

	err := row.Scan(
		&run.RunID, &run.ScenarioID, &run.Backend, &mode, &run.Tolerance,
		&run.StartedAt, &run.FinishedAt, &run.StepCount, &run.Violations, &status, &run.Detail,
	)
	if err != nil {
		return nil, err
	}

	run.Mode = domain.ModeKind(mode)
	run.Status = domain.RunStatus(status)
	return &run, nil
}

// scanRuns scans multiple rows into a slice of ScenarioRun.
func scanRuns(rows pgx.Rows) ([]*domain.ScenarioRun, error) {
	var runs []*domain.ScenarioRun

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario run rows: %w", err)
	}

	return runs, nil
}
