package reporting

import (
	"context"
	"sort"
	"time"

	"vault-harvest-lab/internal/domain"
	"vault-harvest-lab/internal/storage"
)

// DefaultRunLimit bounds how many recent runs a report considers.
const DefaultRunLimit = 1000

// Generator produces reports from stored scenario runs.
type Generator struct {
	runStore       storage.ScenarioRunStore
	violationStore storage.ViolationStore
	limit          int
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.ScenarioRunStore, violationStore storage.ViolationStore) *Generator {
	return &Generator{
		runStore:       runStore,
		violationStore: violationStore,
		limit:          DefaultRunLimit,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRunLimit bounds how many recent runs the report considers.
func (g *Generator) WithRunLimit(limit int) *Generator {
	g.limit = limit
	return g
}

// Generate produces a complete report over the most recent runs.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetRecent(ctx, g.limit)
	if err != nil {
		return nil, err
	}

	failedRows, err := g.generateFailedRuns(ctx, runs)
	if err != nil {
		return nil, err
	}

	scenarioSet := make(map[string]struct{})
	backendSet := make(map[string]struct{})
	for _, run := range runs {
		scenarioSet[run.ScenarioID] = struct{}{}
		backendSet[run.Backend] = struct{}{}
	}

	return &Report{
		GeneratedAt:       g.now(),
		ScenarioCount:     len(scenarioSet),
		BackendCount:      len(backendSet),
		Summary:           generateSummary(runs),
		ScenarioRows:      generateScenarioRows(runs),
		BackendComparison: generateBackendComparison(runs),
		FailedRuns:        failedRows,
	}, nil
}

func generateSummary(runs []*domain.ScenarioRun) RunSummary {
	var s RunSummary
	s.TotalRuns = len(runs)
	for _, run := range runs {
		switch run.Status {
		case domain.RunStatusPassed:
			s.Passed++
		case domain.RunStatusFailed:
			s.Failed++
		case domain.RunStatusUnsupported:
			s.Unsupported++
		case domain.RunStatusError:
			s.Errored++
		}
		s.TotalViolations += run.Violations

		if s.FirstStartedAt == 0 || run.StartedAt < s.FirstStartedAt {
			s.FirstStartedAt = run.StartedAt
		}
		if run.FinishedAt > s.LastFinishedAt {
			s.LastFinishedAt = run.FinishedAt
		}
	}
	return s
}

func generateScenarioRows(runs []*domain.ScenarioRun) []ScenarioRow {
	type key struct {
		scenario string
		backend  string
	}
	rollup := make(map[key]*ScenarioRow)
	for _, run := range runs {
		k := key{run.ScenarioID, run.Backend}
		row, ok := rollup[k]
		if !ok {
			row = &ScenarioRow{ScenarioID: run.ScenarioID, Backend: run.Backend}
			rollup[k] = row
		}
		row.Runs++
		switch run.Status {
		case domain.RunStatusPassed:
			row.Passed++
		case domain.RunStatusFailed:
			row.Failed++
		case domain.RunStatusUnsupported:
			row.Unsupported++
		case domain.RunStatusError:
			row.Errored++
		}
		row.Violations += run.Violations
		row.AvgSteps += float64(run.StepCount)
		row.AvgDurationMs += float64(run.FinishedAt - run.StartedAt)
	}

	rows := make([]ScenarioRow, 0, len(rollup))
	for _, row := range rollup {
		row.AvgSteps /= float64(row.Runs)
		row.AvgDurationMs /= float64(row.Runs)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScenarioID != rows[j].ScenarioID {
			return rows[i].ScenarioID < rows[j].ScenarioID
		}
		return rows[i].Backend < rows[j].Backend
	})
	return rows
}

func generateBackendComparison(runs []*domain.ScenarioRun) []BackendComparisonRow {
	// Latest run per scenario/backend wins; runs arrive newest first.
	latest := make(map[string]map[string]string)
	for _, run := range runs {
		byBackend, ok := latest[run.ScenarioID]
		if !ok {
			byBackend = make(map[string]string)
			latest[run.ScenarioID] = byBackend
		}
		if _, seen := byBackend[run.Backend]; !seen {
			byBackend[run.Backend] = string(run.Status)
		}
	}

	rows := make([]BackendComparisonRow, 0, len(latest))
	for scenarioID, statuses := range latest {
		row := BackendComparisonRow{ScenarioID: scenarioID, Statuses: statuses, Agreement: true}
		var first string
		for _, status := range statuses {
			if first == "" {
				first = status
			} else if status != first {
				row.Agreement = false
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ScenarioID < rows[j].ScenarioID })
	return rows
}

func (g *Generator) generateFailedRuns(ctx context.Context, runs []*domain.ScenarioRun) ([]FailedRunRow, error) {
	var rows []FailedRunRow
	for _, run := range runs {
		if run.Status != domain.RunStatusFailed {
			continue
		}
		violations, err := g.violationStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		for _, v := range violations {
			rows = append(rows, FailedRunRow{
				RunID:      run.RunID,
				ScenarioID: run.ScenarioID,
				Backend:    run.Backend,
				Step:       v.Step,
				Field:      v.Field,
				Expected:   v.Expected,
				Actual:     v.Actual,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RunID != rows[j].RunID {
			return rows[i].RunID < rows[j].RunID
		}
		return rows[i].Step < rows[j].Step
	})
	return rows, nil
}
