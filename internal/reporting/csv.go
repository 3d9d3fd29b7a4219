package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders scenario rollup rows as CSV string.
func RenderCSV(rows []ScenarioRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("scenario_id,backend,runs,passed,failed,unsupported,errored,")
	sb.WriteString("violations,avg_steps,avg_duration_ms\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%d,%.2f,%.2f\n",
			row.ScenarioID,
			row.Backend,
			row.Runs,
			row.Passed,
			row.Failed,
			row.Unsupported,
			row.Errored,
			row.Violations,
			row.AvgSteps,
			row.AvgDurationMs,
		))
	}

	return sb.String()
}
