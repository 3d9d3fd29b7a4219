package reporting

import "time"

// Report summarizes persisted scenario runs across backends.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	ScenarioCount int
	BackendCount  int

	// Totals across every run considered
	Summary RunSummary

	// Per scenario/backend rollups (sorted by scenario_id, backend)
	ScenarioRows []ScenarioRow

	// Latest outcome per scenario on each backend, side by side
	BackendComparison []BackendComparisonRow

	// One row per violation on a failed run
	FailedRuns []FailedRunRow
}

// RunSummary contains totals across the reported runs.
type RunSummary struct {
	TotalRuns       int
	Passed          int
	Failed          int
	Unsupported     int
	Errored         int
	TotalViolations int
	FirstStartedAt  int64 // Unix ms
	LastFinishedAt  int64 // Unix ms
}

// ScenarioRow rolls up every run of one scenario on one backend.
type ScenarioRow struct {
	ScenarioID    string
	Backend       string
	Runs          int
	Passed        int
	Failed        int
	Unsupported   int
	Errored       int
	Violations    int
	AvgSteps      float64
	AvgDurationMs float64
}

// BackendComparisonRow pairs the latest run status of one scenario on each
// backend. Agreement means every backend reported the same status.
type BackendComparisonRow struct {
	ScenarioID string
	Statuses   map[string]string // backend -> latest status
	Agreement  bool
}

// FailedRunRow is one persisted violation from a failed run.
type FailedRunRow struct {
	RunID      string
	ScenarioID string
	Backend    string
	Step       int
	Field      string
	Expected   string
	Actual     string
}
