package core

import (
	"context"

	"github.com/redactyl/scangate/internal/engine"
	"github.com/redactyl/scangate/internal/policy"
	"github.com/redactyl/scangate/internal/report"
	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/scanner/zap"
	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	Config                = engine.Config
	Policy                = engine.Policy
	Result                = engine.Result
	ExerciseFunc          = engine.ExerciseFunc
	Finding               = types.Finding
	Risk                  = types.Risk
	FalsePositiveRule     = types.FalsePositiveRule
	Client                = scanner.Client
	Matcher               = scanner.Matcher
	ZAPConfig             = zap.Config
	RiskThresholdExceeded = report.RiskThresholdExceeded
)

const (
	RiskInformational = types.RiskInformational
	RiskLow           = types.RiskLow
	RiskMedium        = types.RiskMedium
	RiskHigh          = types.RiskHigh
)

// Scan is the stable entrypoint for other programs. A failing risk gate is
// reported as *RiskThresholdExceeded alongside the populated Result.
func Scan(ctx context.Context, cfg Config, client Client, exercise ExerciseFunc) (*Result, error) {
	return engine.Run(ctx, cfg, client, exercise)
}

// NewZAPClient returns a Client for the ZAP JSON API. It also implements
// Matcher.
func NewZAPClient(cfg ZAPConfig) (*zap.Client, error) { return zap.New(cfg) }

// Reduce drops suppressed findings and collapses duplicates. A nil matcher
// compares structural keys only.
func Reduce(findings []Finding, rules []FalsePositiveRule, m Matcher) []Finding {
	return triage.Reduce(findings, rules, m)
}

// AssertNoRiskAtOrAbove is the risk gate used by Scan.
func AssertNoRiskAtOrAbove(findings []Finding, threshold Risk) error {
	return report.AssertNoRiskAtOrAbove(findings, threshold)
}

// PolicyNames lists the built-in policy categories.
func PolicyNames() []string { return policy.DefaultRegistry().Names() }
