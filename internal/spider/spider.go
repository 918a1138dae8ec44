// Package spider drives URL discovery on the remote scanner.
package spider

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/redactyl/scangate/internal/metrics"
	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/session"
)

const phase = "spider"

// Config is the discovery configuration. Zero values leave the scanner's
// own defaults in place.
type Config struct {
	MaxDepth    int
	ThreadCount int
	Exclude     []string // regular expressions
}

// Coordinator submits seed URLs to the spider and waits for completion.
type Coordinator struct {
	client  scanner.Client
	sess    *session.Session
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

// WithMetrics records progress readings on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a Coordinator. sess may be nil when no session bookkeeping is
// wanted.
func New(client scanner.Client, sess *session.Session, opts ...Option) *Coordinator {
	c := &Coordinator{client: client, sess: sess, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configure pushes cfg to the scanner. Exclusion patterns are validated
// before anything is sent.
func (c *Coordinator) Configure(ctx context.Context, cfg Config) error {
	for _, p := range cfg.Exclude {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("spider exclude pattern %q: %w", p, err)
		}
	}
	if cfg.MaxDepth > 0 {
		if err := c.client.SpiderSetMaxDepth(ctx, cfg.MaxDepth); err != nil {
			return scanner.Infra("spider max depth", fmt.Sprint(cfg.MaxDepth), err)
		}
	}
	if cfg.ThreadCount > 0 {
		if err := c.client.SpiderSetThreadCount(ctx, cfg.ThreadCount); err != nil {
			return scanner.Infra("spider thread count", fmt.Sprint(cfg.ThreadCount), err)
		}
	}
	for _, p := range cfg.Exclude {
		if err := c.client.SpiderExclude(ctx, p); err != nil {
			return scanner.Infra("spider exclude", p, err)
		}
	}
	if c.sess != nil {
		if cfg.MaxDepth > 0 {
			c.sess.Spider.MaxDepth = cfg.MaxDepth
		}
		if cfg.ThreadCount > 0 {
			c.sess.Spider.ThreadCount = cfg.ThreadCount
		}
		c.sess.Spider.Excluded = append(c.sess.Spider.Excluded, cfg.Exclude...)
	}
	return nil
}

// Run spiders url, blocks until the scanner reports 100% and returns the
// discovered URLs.
func (c *Coordinator) Run(ctx context.Context, url string) ([]string, error) {
	start := time.Now()
	c.logger.Info("spidering", slog.String("url", url))
	if err := c.client.SpiderSubmit(ctx, url); err != nil {
		return nil, scanner.Infra("spider submit", url, err)
	}
	if err := c.wait(ctx, url); err != nil {
		return nil, err
	}
	results, err := c.client.SpiderResults(ctx)
	if err != nil {
		return nil, scanner.Infra("spider results", url, err)
	}
	for _, r := range results {
		c.logger.Debug("found url", slog.String("url", r))
	}
	c.metrics.PhaseDone(phase, time.Since(start))
	c.metrics.Discovered(len(results))
	return results, nil
}

// RunEach spiders urls in order and stops at the first failure. The
// discovered URLs of all completed runs are returned.
func (c *Coordinator) RunEach(ctx context.Context, urls []string) ([]string, error) {
	var all []string
	for _, u := range urls {
		found, err := c.Run(ctx, u)
		if err != nil {
			return all, fmt.Errorf("spidering %s: %w", u, err)
		}
		all = append(all, found...)
	}
	return all, nil
}

// Wait blocks until the spider reports completion without submitting
// anything.
func (c *Coordinator) Wait(ctx context.Context) error {
	return c.wait(ctx, "")
}

func (c *Coordinator) wait(ctx context.Context, url string) error {
	probe := func(ctx context.Context) (int, error) {
		pct, err := c.client.SpiderProgress(ctx)
		if err != nil {
			return 0, scanner.Infra("spider progress", url, err)
		}
		return pct, nil
	}
	return poll.UntilComplete(ctx, c.poll, probe, func(pct int) {
		c.metrics.Progress(phase, pct)
		c.logger.Debug("spider progress", slog.String("url", url), slog.Int("percent", pct))
	})
}
