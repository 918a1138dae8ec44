// Package zap implements scanner.Client against the OWASP ZAP JSON API.
package zap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/types"
)

var (
	_ scanner.Client  = (*Client)(nil)
	_ scanner.Matcher = (*Client)(nil)
)

const (
	DefaultAPIURL    = "http://127.0.0.1:8080"
	DefaultRateLimit = 20
	DefaultTimeout   = 30 * time.Second
	apiKeyHeader     = "X-ZAP-API-Key"
)

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	APIURL     string
	APIKey     string
	RateLimit  int // requests per second
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// APIError is an error document returned by the ZAP API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("zap api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("zap api: %s: %s", e.Code, e.Message)
}

// ErrNoScan is returned when progress or results are requested before the
// corresponding scan was submitted through this client.
var ErrNoScan = errors.New("no scan submitted")

// Client talks to a single ZAP instance. It remembers the id of the most
// recent spider and active scan it submitted.
type Client struct {
	base    *url.URL
	key     string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.Mutex
	spiderID string
	scanID   string
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.APIURL
	if raw == "" {
		raw = DefaultAPIURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid scanner api url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid scanner api url %q: scheme must be http or https", raw)
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = DefaultRateLimit
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    base,
		key:     cfg.APIKey,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  logger,
	}, nil
}

// call issues GET /JSON/<component>/<kind>/<name>/ and decodes the body into
// out when out is non-nil.
func (c *Client) call(ctx context.Context, component, kind, name string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/JSON/" + component + "/" + kind + "/" + name + "/"
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.key != "" {
		q.Set("apikey", c.key)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set(apiKeyHeader, c.key)
	}

	c.logger.Debug("zap api call", "component", component, "type", kind, "name", name)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var doc struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &doc) == nil && (doc.Code != "" || doc.Message != "") {
			apiErr.Code, apiErr.Message = doc.Code, doc.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", component, name, err)
	}
	return nil
}

func (c *Client) action(ctx context.Context, component, name string, params url.Values) error {
	return c.call(ctx, component, "action", name, params, nil)
}

func (c *Client) ClearState(ctx context.Context) error {
	if err := c.action(ctx, "core", "newSession", url.Values{"overwrite": {"true"}}); err != nil {
		return err
	}
	return c.action(ctx, "core", "deleteAllAlerts", nil)
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func (c *Client) SetRulesEnabled(ctx context.Context, ids []int, enabled bool) error {
	name := "disableScanners"
	if enabled {
		name = "enableScanners"
	}
	return c.action(ctx, "ascan", name, url.Values{"ids": {joinIDs(ids)}})
}

func (c *Client) DisableAllRules(ctx context.Context) error {
	return c.action(ctx, "ascan", "disableAllScanners", nil)
}

func (c *Client) SetRuleStrength(ctx context.Context, id int, level types.Level) error {
	return c.action(ctx, "ascan", "setScannerAttackStrength", url.Values{
		"id":             {strconv.Itoa(id)},
		"attackStrength": {string(level)},
	})
}

func (c *Client) SetRuleAlertThreshold(ctx context.Context, id int, level types.Level) error {
	return c.action(ctx, "ascan", "setScannerAlertThreshold", url.Values{
		"id":             {strconv.Itoa(id)},
		"alertThreshold": {string(level)},
	})
}

type scanResponse struct {
	Scan string `json:"scan"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (c *Client) submit(ctx context.Context, component string, params url.Values) (string, error) {
	var resp scanResponse
	if err := c.call(ctx, component, "action", "scan", params, &resp); err != nil {
		return "", err
	}
	if resp.Scan == "" {
		return "", fmt.Errorf("%s scan: empty scan id in response", component)
	}
	return resp.Scan, nil
}

func (c *Client) status(ctx context.Context, component, id string) (int, error) {
	if id == "" {
		return 0, ErrNoScan
	}
	var resp statusResponse
	if err := c.call(ctx, component, "view", "status", url.Values{"scanId": {id}}, &resp); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(resp.Status)
	if err != nil {
		return 0, fmt.Errorf("%s status %q: %w", component, resp.Status, err)
	}
	return n, nil
}

func (c *Client) SpiderSubmit(ctx context.Context, target string) error {
	id, err := c.submit(ctx, "spider", url.Values{"url": {target}})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.spiderID = id
	c.mu.Unlock()
	return nil
}

func (c *Client) SpiderProgress(ctx context.Context) (int, error) {
	c.mu.Lock()
	id := c.spiderID
	c.mu.Unlock()
	return c.status(ctx, "spider", id)
}

func (c *Client) SpiderResults(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	id := c.spiderID
	c.mu.Unlock()
	if id == "" {
		return nil, ErrNoScan
	}
	var resp struct {
		Results []string `json:"results"`
	}
	if err := c.call(ctx, "spider", "view", "results", url.Values{"scanId": {id}}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) SpiderSetMaxDepth(ctx context.Context, depth int) error {
	return c.action(ctx, "spider", "setOptionMaxDepth", url.Values{"Integer": {strconv.Itoa(depth)}})
}

func (c *Client) SpiderSetThreadCount(ctx context.Context, threads int) error {
	return c.action(ctx, "spider", "setOptionThreadCount", url.Values{"Integer": {strconv.Itoa(threads)}})
}

func (c *Client) SpiderExclude(ctx context.Context, pattern string) error {
	return c.action(ctx, "spider", "excludeFromScan", url.Values{"regex": {pattern}})
}

func (c *Client) ActiveScanSubmit(ctx context.Context, target string) error {
	id, err := c.submit(ctx, "ascan", url.Values{"url": {target}, "recurse": {"true"}})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.scanID = id
	c.mu.Unlock()
	return nil
}

func (c *Client) ActiveScanProgress(ctx context.Context) (int, error) {
	c.mu.Lock()
	id := c.scanID
	c.mu.Unlock()
	return c.status(ctx, "ascan", id)
}

func (c *Client) SetPassiveScanEnabled(ctx context.Context, enabled bool) error {
	return c.action(ctx, "pscan", "setEnabled", url.Values{"enabled": {strconv.FormatBool(enabled)}})
}
