// Package triage reduces the raw alert stream into actionable findings:
// false-positive suppression, semantic deduplication and risk filtering.
package triage

import (
	"context"

	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/session"
	"github.com/redactyl/scangate/internal/types"
)

// Fetch retrieves the backend's current alerts and, when sess is non-nil,
// replaces the session's accumulated findings with them.
func Fetch(ctx context.Context, client scanner.Client, sess *session.Session) ([]types.Finding, error) {
	fs, err := client.FetchAlerts(ctx)
	if err != nil {
		return nil, scanner.Infra("fetch alerts", "", err)
	}
	if sess != nil {
		sess.ReplaceFindings(fs)
	}
	return fs, nil
}

// SuppressFalsePositives drops every finding matched by at least one rule.
// The result is always a subset of findings in the original order.
func SuppressFalsePositives(findings []types.Finding, rules []types.FalsePositiveRule) []types.Finding {
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if !suppressed(f, rules) {
			out = append(out, f)
		}
	}
	return out
}

func suppressed(f types.Finding, rules []types.FalsePositiveRule) bool {
	for _, r := range rules {
		if r.MatchesFinding(f) {
			return true
		}
	}
	return false
}

// Dedupe keeps the first of each group of equivalent findings. Two findings
// are equivalent when their structural keys (CWE id, parameter, URL) are
// equal and the backend matcher agrees. A nil matcher compares keys only.
func Dedupe(findings []types.Finding, m scanner.Matcher) []types.Finding {
	out := make([]types.Finding, 0, len(findings))
	byKey := make(map[types.Key][]int, len(findings))
	for _, f := range findings {
		k := f.Key()
		dup := false
		for _, i := range byKey[k] {
			if m == nil || m.Matches(out[i], f) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		byKey[k] = append(byKey[k], len(out))
		out = append(out, f)
	}
	return out
}

// FilterByMinimumRisk returns the findings rated at or above min.
func FilterByMinimumRisk(findings []types.Finding, min types.Risk) []types.Finding {
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Risk.AtLeast(min) {
			out = append(out, f)
		}
	}
	return out
}

// Reduce applies suppression then deduplication.
func Reduce(findings []types.Finding, rules []types.FalsePositiveRule, m scanner.Matcher) []types.Finding {
	return Dedupe(SuppressFalsePositives(findings, rules), m)
}
