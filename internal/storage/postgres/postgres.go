// Package postgres implements the run and violation stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the connection handle shared by the scenario_runs and violations
// stores. It embeds pgxpool.Pool so stores can run queries directly.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to the run database and verifies the connection before
// handing the pool to any store.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505" // unique_violation

// isDuplicateKeyError reports whether err is a unique-constraint violation,
// which the stores map to storage.ErrDuplicateKey (a run ID recorded twice).
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError reports whether err means the queried run does not exist;
// the stores map it to storage.ErrNotFound.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
