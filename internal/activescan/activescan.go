// Package activescan drives the attack phase on the remote scanner.
package activescan

import (
	"context"
	"log/slog"
	"time"

	"github.com/redactyl/scangate/internal/metrics"
	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/scanner"
)

const phase = "active"

// Coordinator submits an active scan and waits for it to finish.
type Coordinator struct {
	client  scanner.Client
	poll    poll.Options
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPoll sets the progress polling options.
func WithPoll(o poll.Options) Option {
	return func(c *Coordinator) { c.poll = o }
}

// WithMetrics records progress readings and the phase duration on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a Coordinator for client.
func New(client scanner.Client, opts ...Option) *Coordinator {
	c := &Coordinator{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run attacks target and blocks until progress first reaches 100.
func (c *Coordinator) Run(ctx context.Context, target string) error {
	start := time.Now()
	c.logger.Info("active scan", slog.String("url", target))
	if err := c.client.ActiveScanSubmit(ctx, target); err != nil {
		return scanner.Infra("active scan submit", target, err)
	}
	probe := func(ctx context.Context) (int, error) {
		pct, err := c.client.ActiveScanProgress(ctx)
		if err != nil {
			return 0, scanner.Infra("active scan progress", target, err)
		}
		return pct, nil
	}
	err := poll.UntilComplete(ctx, c.poll, probe, func(pct int) {
		c.metrics.Progress(phase, pct)
		c.logger.Debug("scan progress", slog.Int("percent", pct))
	})
	if err != nil {
		return err
	}
	c.metrics.PhaseDone(phase, time.Since(start))
	return nil
}

// EnablePassive toggles passive analysis alongside the active scan.
func (c *Coordinator) EnablePassive(ctx context.Context, enabled bool) error {
	if err := c.client.SetPassiveScanEnabled(ctx, enabled); err != nil {
		return scanner.Infra("passive scan toggle", "", err)
	}
	return nil
}
