package scangate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/audit"
	"github.com/redactyl/scangate/internal/cache"
	"github.com/redactyl/scangate/internal/config"
	"github.com/redactyl/scangate/internal/engine"
	"github.com/redactyl/scangate/internal/exercise"
	"github.com/redactyl/scangate/internal/metrics"
	"github.com/redactyl/scangate/internal/policy"
	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/report"
	"github.com/redactyl/scangate/internal/scanner/factory"
	"github.com/redactyl/scangate/internal/spider"
	"github.com/redactyl/scangate/internal/triage"
	"github.com/redactyl/scangate/internal/types"
	"github.com/redactyl/scangate/internal/update"
	"github.com/redactyl/scangate/pkg/core"
)

var (
	flagTarget      string
	flagPolicies    []string
	flagStrength    string
	flagThreshold   string
	flagFailOn      string
	flagJSON        bool
	flagSARIF       bool
	flagText        bool
	flagCopy        bool
	flagFPFiles     []string
	flagMetricsFile string
	flagMetricsAddr string
	flagScenarios   []string
	flagNoAudit     bool
	flagUpload      string
	flagUploadToken string
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a full scan session and apply the risk gate",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagTarget, "target", "t", "", "base URL of the application (overrides base_url)")
	cmd.Flags().StringArrayVarP(&flagPolicies, "policy", "p", nil, "policy category to enable (repeatable, overrides config policies)")
	cmd.Flags().StringVar(&flagStrength, "strength", "", "attack strength for --policy categories: OFF|LOW|MEDIUM|HIGH|INSANE|DEFAULT")
	cmd.Flags().StringVar(&flagThreshold, "threshold", "", "alert threshold for --policy categories: OFF|LOW|MEDIUM|HIGH|DEFAULT")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "fail on findings at or above: informational|low|medium|high|none (default medium)")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagCopy, "copy", false, "copy the failure report to the clipboard")
	cmd.Flags().StringArrayVar(&flagFPFiles, "fp-file", nil, "false positive rule file glob (repeatable)")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while scanning (e.g. :9464)")
	cmd.Flags().StringArrayVar(&flagScenarios, "scenario", nil, "scenario to exercise through the proxy (repeatable, default all configured)")
	cmd.Flags().BoolVar(&flagNoAudit, "no-audit", false, "do not append this session to the audit log")
	cmd.Flags().StringVar(&flagUpload, "upload", "", "POST the session findings as JSON to this URL")
	cmd.Flags().StringVar(&flagUploadToken, "upload-token", "", "bearer token for --upload")
	registerFlagCompletions(cmd)
}

// scanOptions are the CLI inputs that override file configuration.
type scanOptions struct {
	Target    string
	Policies  []string
	Strength  string
	Threshold string
	FailOn    string
	FPFiles   []string
	Scenarios []string
}

func currentScanOptions() scanOptions {
	return scanOptions{
		Target:    flagTarget,
		Policies:  flagPolicies,
		Strength:  flagStrength,
		Threshold: flagThreshold,
		FailOn:    flagFailOn,
		FPFiles:   flagFPFiles,
		Scenarios: flagScenarios,
	}
}

// parseFailOn maps the gate setting to a risk; "none" and "off" disable the
// gate.
func parseFailOn(s string) (*types.Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		r := types.RiskMedium
		return &r, nil
	case "none", "off":
		return nil, nil
	}
	r, err := types.ParseRisk(s)
	if err != nil {
		return nil, fmt.Errorf("--fail-on: %w", err)
	}
	return &r, nil
}

// buildEngineConfig resolves CLI > file precedence into an engine config.
func buildEngineConfig(fc config.FileConfig, opts scanOptions) (engine.Config, error) {
	var cfg engine.Config

	registry, err := policy.NewRegistry(fc.CustomPolicies)
	if err != nil {
		return cfg, fmt.Errorf("custom_policies: %w", err)
	}
	interval, err := fc.GetPollInterval()
	if err != nil {
		return cfg, err
	}
	timeout, err := fc.GetPollTimeout()
	if err != nil {
		return cfg, err
	}
	failOn, err := parseFailOn(pickString(opts.FailOn, fc.FailOn, nil))
	if err != nil {
		return cfg, err
	}

	var policies []engine.Policy
	if len(opts.Policies) > 0 {
		for _, p := range opts.Policies {
			policies = append(policies, engine.Policy{Name: p, Strength: opts.Strength, Threshold: opts.Threshold})
		}
	} else {
		for _, p := range fc.Policies {
			policies = append(policies, engine.Policy{
				Name:      p.Name,
				Strength:  pickString(opts.Strength, &p.Strength, nil),
				Threshold: pickString(opts.Threshold, &p.Threshold, nil),
			})
		}
	}

	rules := append([]types.FalsePositiveRule(nil), fc.FalsePositives...)
	for _, pattern := range append(append([]string(nil), fc.FalsePositiveFiles...), opts.FPFiles...) {
		loaded, err := triage.LoadRuleGlob(pattern)
		if err != nil {
			return cfg, err
		}
		rules = append(rules, loaded...)
	}

	scenarios := opts.Scenarios
	if len(scenarios) == 0 {
		scenarios = sortedKeys(fc.Scenarios)
	}

	sp := fc.GetSpiderConfig()
	spiderURLs := sp.URLs
	if len(spiderURLs) == 0 {
		spiderURLs = []string{engine.AliasBaseURL}
	}

	cfg = engine.Config{
		BaseURL:         pickString(opts.Target, fc.BaseURL, nil),
		BaseSecureURL:   pickString("", fc.BaseSecureURL, nil),
		ProxyURL:        factory.ProxyURL(fc.GetScannerConfig()),
		DisableAllRules: fc.ShouldDisableAllRules(),
		Policies:        policies,
		PassiveScan:     fc.IsPassiveScanEnabled(),
		Spider: spider.Config{
			MaxDepth:    pickInt(0, sp.MaxDepth, nil),
			ThreadCount: pickInt(0, sp.Threads, nil),
			Exclude:     sp.Exclude,
		},
		SpiderURLs:     spiderURLs,
		Scenarios:      scenarios,
		FalsePositives: rules,
		FailOn:         failOn,
		Poll:           poll.Options{Interval: interval, Timeout: timeout},
		Registry:       registry,
	}
	return cfg, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fc, err := loadFileConfig(flagConfig)
	if err != nil {
		return err
	}
	cfg, err := buildEngineConfig(fc, currentScanOptions())
	if err != nil {
		return err
	}
	client, err := factory.New(factory.Config{Scanner: fc.GetScannerConfig(), Logger: logger})
	if err != nil {
		return err
	}
	rec := metrics.New()
	cfg.Metrics = rec
	cfg.Logger = logger

	machine := flagJSON || flagSARIF
	if !machine && !flagNoUpdateCheck {
		if latest, newer, _ := update.Check(ctx, version, false); newer && latest != "" {
			_, _ = fmt.Fprintf(os.Stderr, "(new version available: v%s)  run 'scangate update' to upgrade\n", latest)
		}
	}
	if flagMetricsAddr != "" {
		srv := &http.Server{Addr: flagMetricsAddr, Handler: rec.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", "error", err)
			}
		}()
		defer srv.Close()
	}

	replayer := exercise.New(fc.Scenarios, exercise.WithLogger(logger))
	res, runErr := engine.Run(ctx, cfg, client, replayer.Exercise)
	var exceeded *report.RiskThresholdExceeded
	if runErr != nil && !errors.As(runErr, &exceeded) {
		return fmt.Errorf("scan error: %w", runErr)
	}

	if err := writeResults(cmd.OutOrStdout(), fc, res); err != nil {
		return err
	}

	if !flagNoAudit {
		failOn := ""
		if cfg.FailOn != nil {
			failOn = cfg.FailOn.String()
		}
		record := audit.CreateSessionRecord(audit.SessionInput{
			SessionID: res.SessionID,
			Target:    cfg.BaseURL,
			Category:  res.Category,
			URLsFound: len(res.Discovered),
			Raw:       res.Raw,
			Findings:  res.Findings,
			FailOn:    failOn,
			Passed:    res.Passed,
			Duration:  res.Duration,
		})
		if err := audit.NewAuditLog(".").LogSession(record); err != nil {
			logger.Warn("audit log", "error", err)
		}
	}
	if err := cache.SaveResults(".", cache.SessionResults{
		SessionID: res.SessionID,
		Target:    cfg.BaseURL,
		URLsFound: len(res.Discovered),
		RawCount:  len(res.Raw),
		Findings:  res.Findings,
	}); err != nil {
		logger.Warn("last session cache", "error", err)
	}
	if flagUpload != "" {
		env := uploadEnvelope{SessionID: res.SessionID, Target: cfg.BaseURL, Passed: res.Passed, Findings: res.Findings}
		if err := uploadFindings(ctx, flagUpload, flagUploadToken, env); err != nil {
			logger.Warn("upload failed", "url", flagUpload, "error", err)
		}
	}
	if flagMetricsFile != "" {
		if err := rec.WriteTextfile(flagMetricsFile); err != nil {
			logger.Warn("metrics textfile", "path", flagMetricsFile, "error", err)
		}
	}
	if exceeded != nil && flagCopy {
		if err := clipboard.WriteAll(exceeded.Error()); err != nil {
			logger.Warn("clipboard copy failed", "error", err)
		}
	}
	return runErr
}

func writeResults(w io.Writer, fc config.FileConfig, res *engine.Result) error {
	return writeFindings(w, res.Findings, report.PrintOptions{
		NoColor:       colorDisabled(fc),
		Duration:      res.Duration,
		URLsFound:     len(res.Discovered),
		TotalFindings: len(res.Raw),
	})
}

// writeFindings renders findings in the format selected by the output flags.
func writeFindings(w io.Writer, findings []types.Finding, opts report.PrintOptions) error {
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(w, findings, version); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		return core.WriteFindingsJSON(w, findings)
	case flagText:
		report.PrintText(w, findings, opts)
	default:
		return report.PrintTable(w, findings, opts)
	}
	return nil
}
