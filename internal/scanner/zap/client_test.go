package zap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/scangate/internal/types"
)

type recorded struct {
	path   string
	query  map[string]string
	header string
}

type fakeZAP struct {
	mu       sync.Mutex
	requests []recorded
	statuses []string
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func (z *fakeZAP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	z.mu.Lock()
	z.requests = append(z.requests, recorded{path: r.URL.Path, query: q, header: r.Header.Get(apiKeyHeader)})
	z.mu.Unlock()

	if z.handler != nil && z.handler(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/JSON/spider/action/scan/", "/JSON/ascan/action/scan/":
		fmt.Fprint(w, `{"scan":"7"}`)
	case "/JSON/spider/view/status/", "/JSON/ascan/view/status/":
		z.mu.Lock()
		s := "100"
		if len(z.statuses) > 0 {
			s, z.statuses = z.statuses[0], z.statuses[1:]
		}
		z.mu.Unlock()
		fmt.Fprintf(w, `{"status":"%s"}`, s)
	case "/JSON/spider/view/results/":
		fmt.Fprint(w, `{"results":["http://app/","http://app/login"]}`)
	case "/JSON/core/view/alerts/":
		fmt.Fprint(w, `{"alerts":[{"pluginId":"40012","cweid":"79","wascid":"8","alert":"Cross Site Scripting (Reflected)","risk":"High","confidence":"Medium","url":"http://app/search","param":"q","description":"d"}]}`)
	default:
		fmt.Fprint(w, `{"Result":"OK"}`)
	}
}

func (z *fakeZAP) last() recorded {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.requests[len(z.requests)-1]
}

func (z *fakeZAP) paths() []string {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]string, len(z.requests))
	for i, r := range z.requests {
		out[i] = r.path
	}
	return out
}

func newTestClient(t *testing.T, z *fakeZAP) *Client {
	t.Helper()
	srv := httptest.NewServer(z)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIURL: srv.URL, APIKey: "secret", RateLimit: 1000})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{APIURL: "ftp://zap"})
	assert.ErrorContains(t, err, "scheme")
}

func TestClient_SendsAPIKey(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	require.NoError(t, c.DisableAllRules(context.Background()))

	r := z.last()
	assert.Equal(t, "/JSON/ascan/action/disableAllScanners/", r.path)
	assert.Equal(t, "secret", r.header)
	assert.Equal(t, "secret", r.query["apikey"])
}

func TestClient_RuleCalls(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	ctx := context.Background()

	require.NoError(t, c.SetRulesEnabled(ctx, []int{40012, 40014}, true))
	r := z.last()
	assert.Equal(t, "/JSON/ascan/action/enableScanners/", r.path)
	assert.Equal(t, "40012,40014", r.query["ids"])

	require.NoError(t, c.SetRulesEnabled(ctx, []int{1}, false))
	assert.Equal(t, "/JSON/ascan/action/disableScanners/", z.last().path)

	require.NoError(t, c.SetRuleStrength(ctx, 40012, types.LevelHigh))
	r = z.last()
	assert.Equal(t, "40012", r.query["id"])
	assert.Equal(t, "HIGH", r.query["attackStrength"])

	require.NoError(t, c.SetRuleAlertThreshold(ctx, 40012, types.LevelLow))
	assert.Equal(t, "LOW", z.last().query["alertThreshold"])
}

func TestClient_SpiderLifecycle(t *testing.T) {
	z := &fakeZAP{statuses: []string{"0", "55", "100"}}
	c := newTestClient(t, z)
	ctx := context.Background()

	_, err := c.SpiderProgress(ctx)
	require.ErrorIs(t, err, ErrNoScan)

	require.NoError(t, c.SpiderSubmit(ctx, "http://app/"))
	assert.Equal(t, "http://app/", z.last().query["url"])

	var got []int
	for range 3 {
		n, err := c.SpiderProgress(ctx)
		require.NoError(t, err)
		got = append(got, n)
	}
	assert.Equal(t, []int{0, 55, 100}, got)
	assert.Equal(t, "7", z.last().query["scanId"])

	urls, err := c.SpiderResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://app/", "http://app/login"}, urls)
}

func TestClient_SpiderOptions(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	ctx := context.Background()

	require.NoError(t, c.SpiderSetMaxDepth(ctx, 3))
	assert.Equal(t, "3", z.last().query["Integer"])
	require.NoError(t, c.SpiderSetThreadCount(ctx, 8))
	assert.Equal(t, "/JSON/spider/action/setOptionThreadCount/", z.last().path)
	require.NoError(t, c.SpiderExclude(ctx, ".*logout.*"))
	assert.Equal(t, ".*logout.*", z.last().query["regex"])
}

func TestClient_ActiveScanAndPassive(t *testing.T) {
	z := &fakeZAP{statuses: []string{"42"}}
	c := newTestClient(t, z)
	ctx := context.Background()

	require.NoError(t, c.ActiveScanSubmit(ctx, "http://app/"))
	r := z.last()
	assert.Equal(t, "/JSON/ascan/action/scan/", r.path)
	assert.Equal(t, "true", r.query["recurse"])

	n, err := c.ActiveScanProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	require.NoError(t, c.SetPassiveScanEnabled(ctx, false))
	assert.Equal(t, "false", z.last().query["enabled"])
}

func TestClient_ClearState(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	require.NoError(t, c.ClearState(context.Background()))
	assert.Equal(t, []string{"/JSON/core/action/newSession/", "/JSON/core/action/deleteAllAlerts/"}, z.paths())
}

func TestClient_FetchAlerts(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	alerts, err := c.FetchAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, 40012, a.PluginID)
	assert.Equal(t, 79, a.CWEID)
	assert.Equal(t, 8, a.WASCID)
	assert.Equal(t, types.RiskHigh, a.Risk)
	assert.Equal(t, types.ConfidenceMedium, a.Confidence)
	assert.Equal(t, "q", a.Param)
}

func TestClient_APIError(t *testing.T) {
	z := &fakeZAP{handler: func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"illegal_parameter","message":"Provided parameter has illegal or unrecognized value"}`)
		return true
	}}
	c := newTestClient(t, z)
	err := c.SpiderExclude(context.Background(), "[")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "illegal_parameter", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_HonoursContext(t *testing.T) {
	z := &fakeZAP{}
	c := newTestClient(t, z)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ClearState(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Matches(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	a := types.Finding{Title: "XSS", Risk: types.RiskHigh, Confidence: types.ConfidenceMedium, Description: "one"}
	b := a
	b.Description = "two"
	assert.True(t, c.Matches(a, b))
	b.Confidence = types.ConfidenceHigh
	assert.False(t, c.Matches(a, b))
}
