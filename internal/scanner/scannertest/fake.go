// Package scannertest provides a scripted in-memory scanner.Client for tests.
package scannertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/types"
)

var _ scanner.Client = (*Fake)(nil)

// Fake records every call it receives and replays scripted progress
// sequences. Progress sequences are consumed one reading per query; once
// exhausted the last value repeats. Errors keyed by method name are returned
// instead of the normal result.
type Fake struct {
	mu sync.Mutex

	SpiderSteps  []int
	ActiveSteps  []int
	Discovered   []string
	Alerts       []types.Finding
	Errors       map[string]error
	RuleErrors   map[int]error // per-rule failures for strength/threshold
	ProgressHook func(method string, n int)

	Calls          []string
	Enabled        map[int]bool
	Strength       map[int]types.Level
	Threshold      map[int]types.Level
	MaxDepth       int
	Threads        int
	Excluded       []string
	Passive        bool
	SpiderTargets  []string
	ActiveTargets  []string
	SpiderQueries  int
	ActiveQueries  int
	Cleared        int
	AllDisabled    bool
	spiderProgress int
	activeProgress int
}

// New returns a Fake whose scans complete on the first progress query.
func New() *Fake {
	return &Fake{
		SpiderSteps: []int{100},
		ActiveSteps: []int{100},
		Errors:      map[string]error{},
		RuleErrors:  map[int]error{},
		Enabled:     map[int]bool{},
		Strength:    map[int]types.Level{},
		Threshold:   map[int]types.Level{},
	}
}

func (f *Fake) record(call string) error {
	f.Calls = append(f.Calls, call)
	return f.Errors[methodOf(call)]
}

func methodOf(call string) string {
	for i := 0; i < len(call); i++ {
		if call[i] == ' ' {
			return call[:i]
		}
	}
	return call
}

func (f *Fake) ClearState(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ClearState"); err != nil {
		return err
	}
	f.Cleared++
	return nil
}

func (f *Fake) SetRulesEnabled(_ context.Context, ids []int, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SetRulesEnabled %v %t", ids, enabled)); err != nil {
		return err
	}
	for _, id := range ids {
		f.Enabled[id] = enabled
	}
	return nil
}

func (f *Fake) DisableAllRules(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DisableAllRules"); err != nil {
		return err
	}
	f.AllDisabled = true
	f.Enabled = map[int]bool{}
	return nil
}

func (f *Fake) SetRuleStrength(_ context.Context, id int, level types.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SetRuleStrength %d %s", id, level)); err != nil {
		return err
	}
	if err := f.RuleErrors[id]; err != nil {
		return err
	}
	f.Strength[id] = level
	return nil
}

func (f *Fake) SetRuleAlertThreshold(_ context.Context, id int, level types.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SetRuleAlertThreshold %d %s", id, level)); err != nil {
		return err
	}
	if err := f.RuleErrors[id]; err != nil {
		return err
	}
	f.Threshold[id] = level
	return nil
}

func (f *Fake) SpiderSubmit(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SpiderSubmit " + url); err != nil {
		return err
	}
	f.SpiderTargets = append(f.SpiderTargets, url)
	f.spiderProgress = 0
	return nil
}

func (f *Fake) SpiderProgress(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SpiderProgress"); err != nil {
		return 0, err
	}
	f.SpiderQueries++
	v := step(f.SpiderSteps, f.spiderProgress)
	f.spiderProgress++
	if f.ProgressHook != nil {
		f.ProgressHook("SpiderProgress", f.SpiderQueries)
	}
	return v, nil
}

func (f *Fake) SpiderResults(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SpiderResults"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Discovered...), nil
}

func (f *Fake) SpiderSetMaxDepth(_ context.Context, depth int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SpiderSetMaxDepth %d", depth)); err != nil {
		return err
	}
	f.MaxDepth = depth
	return nil
}

func (f *Fake) SpiderSetThreadCount(_ context.Context, threads int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SpiderSetThreadCount %d", threads)); err != nil {
		return err
	}
	f.Threads = threads
	return nil
}

func (f *Fake) SpiderExclude(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SpiderExclude " + pattern); err != nil {
		return err
	}
	f.Excluded = append(f.Excluded, pattern)
	return nil
}

func (f *Fake) ActiveScanSubmit(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ActiveScanSubmit " + url); err != nil {
		return err
	}
	f.ActiveTargets = append(f.ActiveTargets, url)
	f.activeProgress = 0
	return nil
}

func (f *Fake) ActiveScanProgress(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ActiveScanProgress"); err != nil {
		return 0, err
	}
	f.ActiveQueries++
	v := step(f.ActiveSteps, f.activeProgress)
	f.activeProgress++
	if f.ProgressHook != nil {
		f.ProgressHook("ActiveScanProgress", f.ActiveQueries)
	}
	return v, nil
}

func (f *Fake) SetPassiveScanEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(fmt.Sprintf("SetPassiveScanEnabled %t", enabled)); err != nil {
		return err
	}
	f.Passive = enabled
	return nil
}

func (f *Fake) FetchAlerts(context.Context) ([]types.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FetchAlerts"); err != nil {
		return nil, err
	}
	return append([]types.Finding(nil), f.Alerts...), nil
}

// Matches compares title, risk and confidence, mirroring the ZAP backend.
func (f *Fake) Matches(a, b types.Finding) bool {
	return a.Title == b.Title && a.Risk == b.Risk && a.Confidence == b.Confidence
}

// CallsTo returns the recorded calls for one method name, in order.
func (f *Fake) CallsTo(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if methodOf(c) == method {
			out = append(out, c)
		}
	}
	return out
}

func step(steps []int, i int) int {
	if len(steps) == 0 {
		return 100
	}
	if i >= len(steps) {
		return steps[len(steps)-1]
	}
	return steps[i]
}
