package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/scangate/internal/metrics"
	"github.com/redactyl/scangate/internal/policy"
	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/report"
	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/scanner/scannertest"
	"github.com/redactyl/scangate/internal/spider"
	"github.com/redactyl/scangate/internal/types"
)

func riskp(r types.Risk) *types.Risk { return &r }

func baseConfig() Config {
	return Config{
		BaseURL:         "http://app/",
		BaseSecureURL:   "https://app/",
		ProxyURL:        "http://127.0.0.1:8080",
		DisableAllRules: true,
		PassiveScan:     true,
		Policies:        []Policy{{Name: "SQL-Injection", Strength: "high", Threshold: "low"}},
		Spider:          spider.Config{MaxDepth: 2},
		SpiderURLs:      []string{"baseurl"},
		Poll:            poll.Options{Interval: time.Millisecond},
	}
}

func TestRun_PhaseOrder(t *testing.T) {
	fake := scannertest.New()
	fake.Discovered = []string{"http://app/", "http://app/item"}

	cfg := baseConfig()
	cfg.Scenarios = []string{"login"}
	var exercised []string
	exercise := func(_ context.Context, scenario, proxy string) error {
		assert.Len(t, fake.SpiderTargets, 1, "spider runs before the application is exercised")
		assert.Empty(t, fake.ActiveTargets, "active scan runs after the application is exercised")
		assert.Equal(t, "http://127.0.0.1:8080", proxy)
		exercised = append(exercised, scenario)
		return nil
	}
	var phases []string
	cfg.OnPhase = func(p string) { phases = append(phases, p) }

	res, err := Run(context.Background(), cfg, fake, exercise)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ClearState",
		"DisableAllRules",
		"SetRulesEnabled [40018] true",
		"SetRuleStrength 40018 HIGH",
		"SetRuleAlertThreshold 40018 LOW",
		"SetPassiveScanEnabled true",
		"SpiderSetMaxDepth 2",
		"SpiderSubmit http://app/",
		"SpiderProgress",
		"SpiderResults",
		"ActiveScanSubmit http://app/",
		"ActiveScanProgress",
		"FetchAlerts",
	}, fake.Calls)
	assert.Equal(t, []string{"login"}, exercised)
	assert.Equal(t, []string{PhasePolicy, PhaseSpider, PhaseExercise, PhaseActive, PhaseTriage}, phases)
	assert.Equal(t, "sql-injection", res.Category)
	assert.Equal(t, []string{"http://app/", "http://app/item"}, res.Discovered)
	assert.NotEmpty(t, res.SessionID)
	assert.True(t, res.Passed)
}

func TestRun_TriageAndGate(t *testing.T) {
	fake := scannertest.New()
	xss := types.Finding{PluginID: 40012, CWEID: 79, Title: "Cross Site Scripting (Reflected)", Param: "q", URL: "/search", Risk: types.RiskHigh, Confidence: types.ConfidenceMedium}
	xssDup := xss
	xssDup.Description = "different wording"
	sqli := types.Finding{PluginID: 40018, CWEID: 89, Title: "SQL Injection", Param: "id", URL: "/item", Risk: types.RiskHigh}
	low := types.Finding{CWEID: 16, Title: "Header Missing", URL: "/", Risk: types.RiskLow}
	fake.Alerts = []types.Finding{xss, xssDup, sqli, low}

	cfg := baseConfig()
	cfg.FalsePositives = []types.FalsePositiveRule{{URL: "/item", Param: "id", CWEID: "89"}}
	cfg.FailOn = riskp(types.RiskHigh)
	rec := metrics.New()
	cfg.Metrics = rec

	res, err := Run(context.Background(), cfg, fake, nil)
	var exceeded *report.RiskThresholdExceeded
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 1, exceeded.Count)
	assert.Contains(t, exceeded.Details, "URL: /search")

	require.NotNil(t, res)
	assert.False(t, res.Passed)
	assert.Len(t, res.Raw, 4)
	assert.Equal(t, []types.Finding{xss, low}, res.Findings)
}

func TestRun_GatePasses(t *testing.T) {
	fake := scannertest.New()
	fake.Alerts = []types.Finding{{CWEID: 16, Title: "Header Missing", URL: "/", Risk: types.RiskLow}}
	cfg := baseConfig()
	cfg.FailOn = riskp(types.RiskMedium)

	res, err := Run(context.Background(), cfg, fake, nil)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Len(t, res.Findings, 1)
}

func TestRun_UsesExplicitMatcher(t *testing.T) {
	fake := scannertest.New()
	a := types.Finding{CWEID: 79, Title: "one", URL: "/", Risk: types.RiskLow}
	b := types.Finding{CWEID: 79, Title: "two", URL: "/", Risk: types.RiskLow}
	fake.Alerts = []types.Finding{a, b}

	cfg := baseConfig()
	res, err := Run(context.Background(), cfg, fake, nil)
	require.NoError(t, err)
	assert.Len(t, res.Findings, 2, "client matcher keeps different titles apart")

	cfg.Matcher = scanner.MatcherFunc(func(types.Finding, types.Finding) bool { return true })
	res, err = Run(context.Background(), cfg, fake, nil)
	require.NoError(t, err)
	assert.Len(t, res.Findings, 1)
}

func TestRun_UnknownPolicyStopsBeforeScanning(t *testing.T) {
	fake := scannertest.New()
	cfg := baseConfig()
	cfg.Policies = []Policy{{Name: "sql-injection"}, {Name: "made-up"}}

	_, err := Run(context.Background(), cfg, fake, nil)
	var unknown *policy.UnknownPolicyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "made-up", unknown.Name)
	assert.Empty(t, fake.CallsTo("SpiderSubmit"))
	assert.Empty(t, fake.CallsTo("ActiveScanSubmit"))
}

func TestRun_InfrastructureErrorAbortsPhase(t *testing.T) {
	fake := scannertest.New()
	fake.Errors["ActiveScanProgress"] = errors.New("connection refused")

	res, err := Run(context.Background(), baseConfig(), fake, nil)
	var infra *scanner.InfrastructureError
	require.ErrorAs(t, err, &infra)
	assert.Equal(t, "active scan progress", infra.Op)
	assert.ErrorContains(t, err, "active scan:")
	require.NotNil(t, res)
	assert.Empty(t, fake.CallsTo("FetchAlerts"))
}

func TestRun_CancelledDuringPoll(t *testing.T) {
	fake := scannertest.New()
	fake.SpiderSteps = []int{0}
	ctx, cancel := context.WithCancel(context.Background())
	fake.ProgressHook = func(method string, n int) {
		if n == 3 {
			cancel()
		}
	}

	_, err := Run(ctx, baseConfig(), fake, nil)
	assert.ErrorIs(t, err, poll.ErrCancelled)
	assert.Empty(t, fake.CallsTo("ActiveScanSubmit"))
}

func TestRun_ExerciseFailure(t *testing.T) {
	fake := scannertest.New()
	cfg := baseConfig()
	cfg.Scenarios = []string{"checkout"}
	_, err := Run(context.Background(), cfg, fake, func(context.Context, string, string) error {
		return errors.New("browser crashed")
	})
	assert.ErrorContains(t, err, "exercise checkout: browser crashed")
	assert.Empty(t, fake.CallsTo("ActiveScanSubmit"))
}

func TestRun_Preconditions(t *testing.T) {
	fake := scannertest.New()
	_, err := Run(context.Background(), Config{}, fake, nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	cfg := baseConfig()
	cfg.Scenarios = []string{"login"}
	_, err = Run(context.Background(), cfg, fake, nil)
	assert.ErrorContains(t, err, "exercise driver")
	assert.Empty(t, fake.Calls)

	var exercised []string
	cb := func(_ context.Context, scenario, proxyURL string) error {
		exercised = append(exercised, scenario+" proxy="+proxyURL)
		return nil
	}
	cfg.ProxyURL = ""
	_, err = Run(context.Background(), cfg, fake, cb)
	assert.ErrorIs(t, err, ErrNoProxy)
	assert.Empty(t, exercised, "exercise must not run without a proxy")
	assert.Empty(t, fake.Calls)
}

func TestResolveURLs(t *testing.T) {
	got, err := ResolveURLs([]string{"BaseURL", "basesecureurl", "/admin", "http://other/", " "}, "http://app/", "https://app/")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://app/", "https://app/", "http://app/admin", "http://other/"}, got)

	_, err = ResolveURLs([]string{"basesecureurl"}, "http://app/", "")
	assert.ErrorContains(t, err, "base_secure_url")
}
