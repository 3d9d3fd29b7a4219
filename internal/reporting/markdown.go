package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Harvest Scenario Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Scenarios: %d | Backends: %d\n\n", r.ScenarioCount, r.BackendCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.Summary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.Summary.Passed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Summary.Failed))
	sb.WriteString(fmt.Sprintf("| Unsupported | %d |\n", r.Summary.Unsupported))
	sb.WriteString(fmt.Sprintf("| Errored | %d |\n", r.Summary.Errored))
	sb.WriteString(fmt.Sprintf("| Total Violations | %d |\n", r.Summary.TotalViolations))
	sb.WriteString(fmt.Sprintf("| First Started (ms) | %d |\n", r.Summary.FirstStartedAt))
	sb.WriteString(fmt.Sprintf("| Last Finished (ms) | %d |\n", r.Summary.LastFinishedAt))
	sb.WriteString("\n")

	// Per-scenario rollups
	sb.WriteString("## Scenario Results\n\n")
	if len(r.ScenarioRows) > 0 {
		sb.WriteString("| Scenario | Backend | Runs | Passed | Failed | Unsupported | Errored | Violations | AvgSteps | AvgDuration(ms) |\n")
		sb.WriteString("|----------|---------|------|--------|--------|-------------|---------|------------|----------|----------------|\n")
		for _, row := range r.ScenarioRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %d | %.1f | %.1f |\n",
				row.ScenarioID, row.Backend, row.Runs, row.Passed, row.Failed,
				row.Unsupported, row.Errored, row.Violations, row.AvgSteps, row.AvgDurationMs))
		}
	} else {
		sb.WriteString("No scenario runs recorded.\n")
	}
	sb.WriteString("\n")

	// Backend agreement
	sb.WriteString("## Backend Agreement\n\n")
	if len(r.BackendComparison) > 0 {
		sb.WriteString("| Scenario | Latest Statuses | Agreement |\n")
		sb.WriteString("|----------|-----------------|-----------|\n")
		for _, row := range r.BackendComparison {
			agreement := "NO"
			if row.Agreement {
				agreement = "YES"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				row.ScenarioID, formatStatuses(row.Statuses), agreement))
		}
	} else {
		sb.WriteString("No backend comparison available.\n")
	}
	sb.WriteString("\n")

	// Violations on failed runs
	sb.WriteString("## Violations\n\n")
	if len(r.FailedRuns) > 0 {
		sb.WriteString("| Run | Scenario | Backend | Step | Field | Expected | Actual |\n")
		sb.WriteString("|-----|----------|---------|------|-------|----------|--------|\n")
		for _, row := range r.FailedRuns {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %s | %s |\n",
				row.RunID, row.ScenarioID, row.Backend, row.Step,
				row.Field, row.Expected, row.Actual))
		}
	} else {
		sb.WriteString("No violations recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatStatuses renders a backend->status map in stable backend order.
func formatStatuses(statuses map[string]string) string {
	backends := make([]string, 0, len(statuses))
	for backend := range statuses {
		backends = append(backends, backend)
	}
	sort.Strings(backends)

	parts := make([]string, 0, len(backends))
	for _, backend := range backends {
		parts = append(parts, fmt.Sprintf("%s=%s", backend, statuses[backend]))
	}
	return strings.Join(parts, ", ")
}
