package domain

// RunStatus classifies a completed scenario run.
type RunStatus string

// Run status constants.
const (
	RunStatusPassed      RunStatus = "PASSED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusUnsupported RunStatus = "UNSUPPORTED"
	RunStatusError       RunStatus = "ERROR"
)

// ScenarioRun records one execution of a scenario against a backend.
// Corresponds to the scenario_runs table in PostgreSQL.
type ScenarioRun struct {
	RunID      string    // PRIMARY KEY, deterministic per run
	ScenarioID string
	Backend    string // "sim" | "rpc"
	Mode       ModeKind
	Tolerance  float64
	StartedAt  int64 // Unix timestamp in milliseconds
	FinishedAt int64
	StepCount  int
	Violations int
	Status     RunStatus
	Detail     *string // error text for ERROR/UNSUPPORTED runs (nullable)
}

// StepSnapshot is a flattened vault/strategy snapshot captured after one
// scenario step. Corresponds to the step_snapshots timeseries table in
// ClickHouse; amounts are stored as UInt256.
type StepSnapshot struct {
	RunID         string
	ScenarioID    string
	Step          int
	Label         string // "deposit", "harvest", "drain", "withdraw", ...
	TimestampMs   int64
	TotalAssets   string // decimal string, parsed into UInt256 on insert
	TotalSupply   string
	PricePerShare string
	TotalIdle     string
	DebtRatio     uint64
	TotalDebt     string
	TotalGain     string
	TotalLoss     string
}

// ViolationRecord is a persisted invariant violation.
// Corresponds to the violations table in PostgreSQL.
type ViolationRecord struct {
	RunID    string
	Step     int
	Field    string
	Expected string
	Actual   string
}
