package report

import (
	"fmt"

	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/internal/types"
)

// RiskThresholdExceeded is the failing verdict of the risk gate. Its message
// carries the full per-finding report so the failure can be acted on without
// re-running the scan.
type RiskThresholdExceeded struct {
	Threshold types.Risk
	Count     int
	Details   string
	Findings  []types.Finding
}

func (e *RiskThresholdExceeded) Error() string {
	return fmt.Sprintf("%d %s or higher risk vulnerabilities found.\nDetails:\n%s", e.Count, e.Threshold, e.Details)
}

// AssertNoRiskAtOrAbove passes (returns nil) when no finding is rated at or
// above threshold. It has no side effects.
func AssertNoRiskAtOrAbove(findings []types.Finding, threshold types.Risk) error {
	over := triage.FilterByMinimumRisk(findings, threshold)
	if len(over) == 0 {
		return nil
	}
	return &RiskThresholdExceeded{
		Threshold: threshold,
		Count:     len(over),
		Details:   triage.RenderDetails(over),
		Findings:  over,
	}
}

// CountByRisk tallies findings per risk rating.
func CountByRisk(findings []types.Finding) map[types.Risk]int {
	counts := map[types.Risk]int{}
	for _, f := range findings {
		counts[f.Risk]++
	}
	return counts
}
