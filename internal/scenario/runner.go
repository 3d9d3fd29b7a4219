// Package scenario executes scripted harvest scenarios against a backend and
// verifies every step against computed expected outcomes. Runs, violations,
// and per-step snapshots are persisted through the storage interfaces.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/harness"
	"vault-harvest-lab/internal/oracle"
	"vault-harvest-lab/internal/storage"
)

// Runner executes scenarios against a single backend.
type Runner struct {
	backend        harness.Backend
	runStore       storage.ScenarioRunStore
	violationStore storage.ViolationStore
	snapshotStore  storage.StepSnapshotStore
}

// RunnerOptions contains configuration for creating a Runner. Nil stores are
// skipped at persist time.
type RunnerOptions struct {
	Backend        harness.Backend
	RunStore       storage.ScenarioRunStore
	ViolationStore storage.ViolationStore
	SnapshotStore  storage.StepSnapshotStore
}

// NewRunner creates a scenario runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		backend:        opts.Backend,
		runStore:       opts.RunStore,
		violationStore: opts.ViolationStore,
		snapshotStore:  opts.SnapshotStore,
	}
}

// Run executes one scenario end to end.
// Steps:
//  1. Build the script for the scenario ID
//  2. Per step: capture pre state, act, capture post state
//  3. Compute the expected outcome and collect violations
//  4. Persist the run record, violations, and step snapshots
//
// A step that fails or a violated expectation is reported through the run's
// status; an error return means the runner itself could not proceed. A
// violation is fatal to the scenario: later steps would only compound the
// mismatch, so the script stops at the first violated step.
func (r *Runner) Run(ctx context.Context, cfg domain.ScenarioConfig) (*domain.ScenarioRun, error) {
	startedAt := time.Now().UnixMilli()
	runID := fmt.Sprintf("%s-%s-%d", cfg.ScenarioID, r.backend.Name(), startedAt)

	snap, err := r.backend.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	script, err := buildScript(cfg, snap.Decimals)
	if err != nil {
		if errors.Is(err, ErrScenarioUnsupported) {
			return r.finish(ctx, newRun(runID, cfg, r.backend.Name(), startedAt), nil, nil, domain.RunStatusUnsupported, err.Error())
		}
		return nil, err
	}

	var (
		violations []*domain.ViolationRecord
		snapshots  []*domain.StepSnapshot
	)

	run := newRun(runID, cfg, r.backend.Name(), startedAt)
	for i, st := range script {
		pre, err := r.captureView(ctx)
		if err != nil {
			return nil, err
		}

		event, err := st.run(ctx, r.backend)
		if err != nil {
			detail := fmt.Sprintf("step %d (%s): %v", i, st.label, err)
			return r.finish(ctx, run, violations, snapshots, domain.RunStatusError, detail)
		}

		post, err := r.captureView(ctx)
		if err != nil {
			return nil, err
		}

		run.StepCount++
		snapshots = append(snapshots, flattenView(runID, cfg.ScenarioID, i, st.label, post))

		expected := &domain.ExpectedOutcome{Mode: cfg.Mode}
		if st.check == checkFull {
			expected, err = oracle.Expect(pre.Vault, pre.Strategy, event, cfg.Mode)
			if err != nil {
				detail := fmt.Sprintf("step %d (%s): %v", i, st.label, err)
				return r.finish(ctx, run, violations, snapshots, domain.RunStatusError, detail)
			}
		}

		stepViolations := oracle.CheckInvariants(pre, post, expected)
		for _, v := range stepViolations {
			violations = append(violations, &domain.ViolationRecord{
				RunID:    runID,
				Step:     i,
				Field:    v.Field,
				Expected: fmt.Sprintf("%v", v.Expected),
				Actual:   fmt.Sprintf("%v", v.Actual),
			})
		}
		if len(stepViolations) > 0 {
			break
		}
	}

	status := domain.RunStatusPassed
	detail := ""
	if len(violations) > 0 {
		status = domain.RunStatusFailed
		detail = fmt.Sprintf("step %d: %s: expected %s, got %s",
			violations[0].Step, violations[0].Field, violations[0].Expected, violations[0].Actual)
	}
	return r.finish(ctx, run, violations, snapshots, status, detail)
}

// captureView reads the vault snapshot and strategy params as one view.
func (r *Runner) captureView(ctx context.Context) (*domain.StateView, error) {
	snap, err := r.backend.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	params, err := r.backend.StrategyParams(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.StateView{Vault: snap, Strategy: params}, nil
}

// finish stamps the run record and persists everything collected so far.
func (r *Runner) finish(ctx context.Context, run *domain.ScenarioRun, violations []*domain.ViolationRecord, snapshots []*domain.StepSnapshot, status domain.RunStatus, detail string) (*domain.ScenarioRun, error) {
	run.FinishedAt = time.Now().UnixMilli()
	run.Violations = len(violations)
	run.Status = status
	if detail != "" {
		run.Detail = &detail
	}

	if r.runStore != nil {
		if err := r.runStore.Insert(ctx, run); err != nil {
			return nil, err
		}
	}
	if r.violationStore != nil && len(violations) > 0 {
		if err := r.violationStore.InsertBulk(ctx, violations); err != nil {
			return nil, err
		}
	}
	if r.snapshotStore != nil && len(snapshots) > 0 {
		if err := r.snapshotStore.InsertBulk(ctx, snapshots); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func newRun(runID string, cfg domain.ScenarioConfig, backend string, startedAt int64) *domain.ScenarioRun {
	return &domain.ScenarioRun{
		RunID:      runID,
		ScenarioID: cfg.ScenarioID,
		Backend:    backend,
		Mode:       cfg.Mode.Kind,
		Tolerance:  cfg.Mode.Tolerance,
		StartedAt:  startedAt,
	}
}

// flattenView converts a state view into the persisted snapshot row.
func flattenView(runID, scenarioID string, step int, label string, view *domain.StateView) *domain.StepSnapshot {
	return &domain.StepSnapshot{
		RunID:         runID,
		ScenarioID:    scenarioID,
		Step:          step,
		Label:         label,
		TimestampMs:   time.Now().UnixMilli(),
		TotalAssets:   view.Vault.TotalAssets.String(),
		TotalSupply:   view.Vault.TotalSupply.String(),
		PricePerShare: view.Vault.PricePerShare.String(),
		TotalIdle:     view.Vault.TotalIdle.String(),
		DebtRatio:     view.Strategy.DebtRatio,
		TotalDebt:     view.Strategy.TotalDebt.String(),
		TotalGain:     view.Strategy.TotalGain.String(),
		TotalLoss:     view.Strategy.TotalLoss.String(),
	}
}
