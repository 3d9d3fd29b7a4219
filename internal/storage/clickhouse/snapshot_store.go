package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// StepSnapshotStore implements storage.StepSnapshotStore using ClickHouse.
// Amount columns are UInt256 so raw token units never truncate.
type StepSnapshotStore struct {
	conn *Conn
}

// NewStepSnapshotStore creates a new StepSnapshotStore.
func NewStepSnapshotStore(conn *Conn) *StepSnapshotStore {
	return &StepSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StepSnapshotStore = (*StepSnapshotStore)(nil)

// InsertBulk adds the snapshots captured during one run.
func (s *StepSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.StepSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO step_snapshots (
			run_id, scenario_id, step, label, timestamp_ms,
			total_assets, total_supply, price_per_share, total_idle,
			debt_ratio, total_debt, total_gain, total_loss
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		amounts := make([]*big.Int, 0, 7)
		for _, f := range []struct {
			name string
			val  string
		}{
			{"total_assets", snap.TotalAssets},
			{"total_supply", snap.TotalSupply},
			{"price_per_share", snap.PricePerShare},
			{"total_idle", snap.TotalIdle},
			{"total_debt", snap.TotalDebt},
			{"total_gain", snap.TotalGain},
			{"total_loss", snap.TotalLoss},
		} {
			v, ok := new(big.Int).SetString(f.val, 10)
			if !ok || v.Sign() < 0 {
				return fmt.Errorf("%w: %s is not a non-negative decimal: %q", storage.ErrInvalidInput, f.name, f.val)
			}
			amounts = append(amounts, v)
		}

		err = batch.Append(
			snap.RunID, snap.ScenarioID, uint32(snap.Step), snap.Label, snap.TimestampMs,
			amounts[0], amounts[1], amounts[2], amounts[3],
			snap.DebtRatio, amounts[4], amounts[5], amounts[6],
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all snapshots for a run, ordered by step ASC.
func (s *StepSnapshotStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StepSnapshot, error) {
	query := `
		SELECT run_id, scenario_id, step, label, timestamp_ms,
		       total_assets, total_supply, price_per_share, total_idle,
		       debt_ratio, total_debt, total_gain, total_loss
		FROM step_snapshots
		WHERE run_id = ?
		ORDER BY step ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by run id: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.StepSnapshot
	for rows.Next() {
		var snap domain.StepSnapshot
		var step uint32
		var totalAssets, totalSupply, pricePerShare, totalIdle big.Int
		var totalDebt, totalGain, totalLoss big.Int

		err := rows.Scan(
			&snap.RunID, &snap.ScenarioID, &step, &snap.Label, &snap.TimestampMs,
			&totalAssets, &totalSupply, &pricePerShare, &totalIdle,
			&snap.DebtRatio, &totalDebt, &totalGain, &totalLoss,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.Step = int(step)
		snap.TotalAssets = totalAssets.String()
		snap.TotalSupply = totalSupply.String()
		snap.PricePerShare = pricePerShare.String()
		snap.TotalIdle = totalIdle.String()
		snap.TotalDebt = totalDebt.String()
		snap.TotalGain = totalGain.String()
		snap.TotalLoss = totalLoss.String()
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
