// Package exercise drives the application under test by replaying configured
// request lists through the scanner's intercepting proxy, so the passive and
// active scanners see the traffic.
package exercise

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UnknownScenarioError is returned for a scenario name with no request list.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("no requests configured for scenario: %s", e.Name)
}

// Replayer maps scenario names to request lines. A line is either a URL
// (sent as GET) or "METHOD URL".
type Replayer struct {
	scenarios map[string][]string
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Replayer)

func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds each replayed request.
func WithTimeout(d time.Duration) Option {
	return func(r *Replayer) { r.timeout = d }
}

func New(scenarios map[string][]string, opts ...Option) *Replayer {
	r := &Replayer{scenarios: scenarios, timeout: 30 * time.Second, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Names returns the configured scenario names.
func (r *Replayer) Names() []string {
	out := make([]string, 0, len(r.scenarios))
	for k := range r.scenarios {
		out = append(out, k)
	}
	return out
}

func parseLine(line string) (method, target string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ' '); i > 0 {
		return strings.ToUpper(line[:i]), strings.TrimSpace(line[i+1:])
	}
	return http.MethodGet, line
}

// Exercise sends every request of scenario through proxyURL in order. Any
// HTTP status counts as delivered; transport failures abort the scenario.
func (r *Replayer) Exercise(ctx context.Context, scenario, proxyURL string) error {
	lines, ok := r.scenarios[scenario]
	if !ok {
		return &UnknownScenarioError{Name: scenario}
	}
	proxy, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy url %q: %w", proxyURL, err)
	}
	client := &http.Client{
		Timeout: r.timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxy),
			// The intercepting proxy re-signs TLS with its own CA.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	defer client.CloseIdleConnections()

	for _, line := range lines {
		method, target := parseLine(line)
		if target == "" {
			continue
		}
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", scenario, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("scenario %s: %s %s: %w", scenario, method, target, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		r.logger.Debug("replayed request", slog.String("scenario", scenario),
			slog.String("method", method), slog.String("url", target), slog.Int("status", resp.StatusCode))
	}
	return nil
}
