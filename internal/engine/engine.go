package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redactyl/scangate/internal/activescan"
	"github.com/redactyl/scangate/internal/metrics"
	"github.com/redactyl/scangate/internal/policy"
	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/report"
	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/session"
	"github.com/redactyl/scangate/internal/spider"
	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/internal/types"
)

// Aliases accepted in spider URL lists.
const (
	AliasBaseURL       = "baseurl"
	AliasBaseSecureURL = "basesecureurl"
)

// Phase names reported to Config.OnPhase and used as metric labels.
const (
	PhasePolicy   = "policy"
	PhaseSpider   = "spider"
	PhaseExercise = "exercise"
	PhaseActive   = "active_scan"
	PhaseTriage   = "triage"
	PhaseGate     = "gate"
)

// ErrNoTarget is returned when neither an active scan target nor a base URL
// is configured.
var ErrNoTarget = errors.New("no active scan target configured")

// ErrNoProxy is returned when scenarios are configured but no scanner proxy
// is known to route their traffic through.
var ErrNoProxy = errors.New("scenarios configured without a scanner proxy URL")

// ExerciseFunc drives the application under test for scenario with its HTTP
// traffic routed through proxyURL.
type ExerciseFunc func(ctx context.Context, scenario, proxyURL string) error

// Policy selects one category and optionally tunes its rules. Empty levels
// leave the scanner's setting untouched.
type Policy struct {
	Name      string
	Strength  string
	Threshold string
}

// Config controls one scan session.
type Config struct {
	BaseURL       string
	BaseSecureURL string
	// Target is attacked by the active scan; defaults to BaseURL.
	Target   string
	ProxyURL string

	DisableAllRules bool
	Policies        []Policy
	PassiveScan     bool

	Spider     spider.Config
	SpiderURLs []string
	Scenarios  []string

	FalsePositives []types.FalsePositiveRule
	// FailOn is the lowest unacceptable risk. Nil skips the gate.
	FailOn *types.Risk

	Poll     poll.Options
	Registry *policy.Registry
	// Matcher is the backend's alert equality. When nil and the client
	// implements scanner.Matcher, the client is used.
	Matcher scanner.Matcher
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	OnPhase func(phase string)
}

// Result contains the triaged findings and session statistics.
type Result struct {
	SessionID  string
	Category   string
	Discovered []string
	// Raw is the alert stream as fetched; Findings is after suppression and
	// deduplication.
	Raw      []types.Finding
	Findings []types.Finding
	Duration time.Duration
	Passed   bool
}

// Run executes a full session. When the risk gate fails the populated
// Result is returned together with a *report.RiskThresholdExceeded error.
// Any other error aborts the session at the failing phase.
func Run(ctx context.Context, cfg Config, client scanner.Client, exercise ExerciseFunc) (*Result, error) {
	started := time.Now()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	target := cfg.Target
	if target == "" {
		target = cfg.BaseURL
	}
	if target == "" {
		return nil, ErrNoTarget
	}
	if len(cfg.Scenarios) > 0 && exercise == nil {
		return nil, errors.New("scenarios configured without an exercise driver")
	}
	if len(cfg.Scenarios) > 0 && cfg.ProxyURL == "" {
		return nil, ErrNoProxy
	}
	spiderURLs, err := ResolveURLs(cfg.SpiderURLs, cfg.BaseURL, cfg.BaseSecureURL)
	if err != nil {
		return nil, err
	}
	matcher := cfg.Matcher
	if matcher == nil {
		if m, ok := client.(scanner.Matcher); ok {
			matcher = m
		}
	}

	sess := session.New()
	res := &Result{SessionID: sess.ID}
	logger = logger.With(slog.String("session", sess.ID))
	phase := func(name string) {
		logger.Info("phase", slog.String("name", name))
		if cfg.OnPhase != nil {
			cfg.OnPhase(name)
		}
	}

	if err := client.ClearState(ctx); err != nil {
		return nil, scanner.Infra("clear state", "", err)
	}

	phase(PhasePolicy)
	if err := applyPolicies(ctx, cfg, client, sess, logger); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	res.Category = sess.Category()

	opts := []spider.Option{spider.WithLogger(logger), spider.WithPoll(cfg.Poll), spider.WithMetrics(cfg.Metrics)}
	sp := spider.New(client, sess, opts...)
	as := activescan.New(client, activescan.WithLogger(logger), activescan.WithPoll(cfg.Poll), activescan.WithMetrics(cfg.Metrics))

	if err := as.EnablePassive(ctx, cfg.PassiveScan); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	phase(PhaseSpider)
	if err := sp.Configure(ctx, cfg.Spider); err != nil {
		return nil, fmt.Errorf("spider: %w", err)
	}
	found, err := sp.RunEach(ctx, spiderURLs)
	res.Discovered = found
	if err != nil {
		return res, fmt.Errorf("spider: %w", err)
	}

	if len(cfg.Scenarios) > 0 {
		phase(PhaseExercise)
		for _, sc := range cfg.Scenarios {
			logger.Info("exercising application", slog.String("scenario", sc), slog.String("proxy", cfg.ProxyURL))
			if err := exercise(ctx, sc, cfg.ProxyURL); err != nil {
				return res, fmt.Errorf("exercise %s: %w", sc, err)
			}
		}
	}

	phase(PhaseActive)
	if err := as.Run(ctx, target); err != nil {
		return res, fmt.Errorf("active scan: %w", err)
	}

	phase(PhaseTriage)
	raw, err := triage.Fetch(ctx, client, sess)
	if err != nil {
		return res, fmt.Errorf("triage: %w", err)
	}
	res.Raw = raw
	kept := triage.SuppressFalsePositives(raw, cfg.FalsePositives)
	res.Findings = triage.Dedupe(kept, matcher)
	cfg.Metrics.Findings("raw", len(raw))
	cfg.Metrics.Findings("suppressed", len(kept))
	cfg.Metrics.Findings("deduplicated", len(res.Findings))
	res.Duration = time.Since(started)
	logger.Info("triage complete",
		slog.Int("raw", len(raw)), slog.Int("kept", len(kept)), slog.Int("findings", len(res.Findings)))

	res.Passed = true
	if cfg.FailOn != nil {
		phase(PhaseGate)
		if err := report.AssertNoRiskAtOrAbove(res.Findings, *cfg.FailOn); err != nil {
			res.Passed = false
			cfg.Metrics.Verdict(false)
			return res, err
		}
	}
	cfg.Metrics.Verdict(true)
	return res, nil
}

func applyPolicies(ctx context.Context, cfg Config, client scanner.Client, sess *session.Session, logger *slog.Logger) error {
	sel := policy.NewSelector(client, cfg.Registry, sess, logger)
	if cfg.DisableAllRules {
		if err := sel.DisableAll(ctx); err != nil {
			return err
		}
	}
	for _, p := range cfg.Policies {
		if err := sel.SelectCategory(ctx, p.Name); err != nil {
			return err
		}
		if p.Strength != "" {
			if err := sel.SetAttackStrength(ctx, p.Strength); err != nil {
				return err
			}
		}
		if p.Threshold != "" {
			if err := sel.SetAlertThreshold(ctx, p.Threshold); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolveURLs expands the "baseurl" and "basesecureurl" aliases and joins
// paths beginning with "/" onto the base URL. Other entries pass through.
func ResolveURLs(urls []string, base, secure string) ([]string, error) {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		switch {
		case strings.EqualFold(u, AliasBaseURL):
			if base == "" {
				return nil, fmt.Errorf("spider url %q: base_url is not configured", u)
			}
			out = append(out, base)
		case strings.EqualFold(u, AliasBaseSecureURL):
			if secure == "" {
				return nil, fmt.Errorf("spider url %q: base_secure_url is not configured", u)
			}
			out = append(out, secure)
		case strings.HasPrefix(u, "/"):
			if base == "" {
				return nil, fmt.Errorf("spider url %q: base_url is not configured", u)
			}
			out = append(out, strings.TrimRight(base, "/")+u)
		case u == "":
		default:
			out = append(out, u)
		}
	}
	return out, nil
}
