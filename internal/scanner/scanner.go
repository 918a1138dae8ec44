package scanner

import (
	"context"
	"fmt"

	"github.com/redactyl/scangate/internal/types"
)

// Client is the control surface of a remote web application scanner.
// Implementations include the ZAP JSON API client and the scripted fake used
// in tests. Progress values are percentages in [0,100].
type Client interface {
	// ClearState discards alerts and session data held by the backend.
	ClearState(ctx context.Context) error

	// SetRulesEnabled toggles the given active-scan rule ids.
	SetRulesEnabled(ctx context.Context, ids []int, enabled bool) error
	// DisableAllRules turns every active-scan rule off.
	DisableAllRules(ctx context.Context) error
	SetRuleStrength(ctx context.Context, id int, level types.Level) error
	SetRuleAlertThreshold(ctx context.Context, id int, level types.Level) error

	SpiderSubmit(ctx context.Context, url string) error
	SpiderProgress(ctx context.Context) (int, error)
	SpiderResults(ctx context.Context) ([]string, error)
	SpiderSetMaxDepth(ctx context.Context, depth int) error
	SpiderSetThreadCount(ctx context.Context, threads int) error
	SpiderExclude(ctx context.Context, pattern string) error

	ActiveScanSubmit(ctx context.Context, url string) error
	ActiveScanProgress(ctx context.Context) (int, error)
	SetPassiveScanEnabled(ctx context.Context, enabled bool) error

	FetchAlerts(ctx context.Context) ([]types.Finding, error)
}

// Matcher is the backend's own notion of two alerts being the same report.
// It is combined with the structural key in triage and never reimplemented
// outside the backend package that owns it.
type Matcher interface {
	Matches(a, b types.Finding) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(a, b types.Finding) bool

func (f MatcherFunc) Matches(a, b types.Finding) bool { return f(a, b) }

// InfrastructureError reports a transport or backend failure while
// submitting or polling a scan phase. It is never retried by the
// coordinators.
type InfrastructureError struct {
	Op     string // e.g. "spider progress"
	Target string // url or rule id the call concerned, may be empty
	Err    error
}

func (e *InfrastructureError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("scanner %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scanner %s (%s): %v", e.Op, e.Target, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Infra wraps err as an InfrastructureError, leaving nil untouched.
func Infra(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &InfrastructureError{Op: op, Target: target, Err: err}
}
