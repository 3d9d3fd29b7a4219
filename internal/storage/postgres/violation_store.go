package postgres

import (
	"context"
	"fmt"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// ViolationStore implements storage.ViolationStore using PostgreSQL.
type ViolationStore struct {
	pool *Pool
}

// NewViolationStore creates a new ViolationStore.
func NewViolationStore(pool *Pool) *ViolationStore {
	return &ViolationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ViolationStore = (*ViolationStore)(nil)

const insertViolationQuery = `
	INSERT INTO violations (run_id, step, field, expected, actual)
	VALUES ($1, $2, $3, $4, $5)
`

// Insert adds a single violation.
func (s *ViolationStore) Insert(ctx context.Context, v *domain.ViolationRecord) error {
	_, err := s.pool.Exec(ctx, insertViolationQuery,
		v.RunID, v.Step, v.Field, v.Expected, v.Actual,
	)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

// InsertBulk adds multiple violations atomically.
func (s *ViolationStore) InsertBulk(ctx context.Context, violations []*domain.ViolationRecord) error {
	if len(violations) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, v := range violations {
		if _, err := tx.Exec(ctx, insertViolationQuery,
			v.RunID, v.Step, v.Field, v.Expected, v.Actual,
		); err != nil {
			return fmt.Errorf("insert violation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all violations for a run, ordered by step ASC.
func (s *ViolationStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ViolationRecord, error) {
	query := `
		SELECT run_id, step, field, expected, actual
		FROM violations
		WHERE run_id = $1
		ORDER BY step ASC, field ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get violations by run id: %w", err)
	}
	defer rows.Close()

	var result []*domain.ViolationRecord
	for rows.Next() {
		var v domain.ViolationRecord
		if err := rows.Scan(&v.RunID, &v.Step, &v.Field, &v.Expected, &v.Actual); err != nil {
			return nil, fmt.Errorf("scan violation row: %w", err)
		}
		result = append(result, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation rows: %w", err)
	}

	return result, nil
}
