// Package poll provides a cancellable wait-until primitive for long-running
// scanner jobs that only expose progress through polling.
//
// The condition is checked once immediately and then at most once per
// Interval until it reports done, the context is cancelled, or the optional
// Timeout elapses.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the delay between progress queries when Options leaves
// Interval unset.
const DefaultInterval = time.Second

var (
	// ErrCancelled reports that the caller's context ended the wait.
	ErrCancelled = errors.New("poll: cancelled")
	// ErrTimedOut reports that Options.Timeout elapsed before completion.
	ErrTimedOut = errors.New("poll: timed out")
)

// Options controls a wait.
type Options struct {
	Interval time.Duration
	// Timeout bounds the whole wait. Zero means wait without a deadline.
	Timeout time.Duration
}

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Progress returns a completion percentage in [0,100].
type Progress func(ctx context.Context) (int, error)

// sleeper allows tests to observe delays without real waiting.
type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Until blocks until cond reports true. Errors returned by cond abort the
// wait unchanged.
func Until(ctx context.Context, opts Options, cond Condition) error {
	return until(ctx, opts, cond, realSleeper{})
}

// UntilComplete polls probe until it first reports 100 or more. onProgress,
// when non-nil, sees every reading.
func UntilComplete(ctx context.Context, opts Options, probe Progress, onProgress func(int)) error {
	return until(ctx, opts, completion(probe, onProgress), realSleeper{})
}

func completion(probe Progress, onProgress func(int)) Condition {
	return func(ctx context.Context) (bool, error) {
		pct, err := probe(ctx)
		if err != nil {
			return false, err
		}
		if onProgress != nil {
			onProgress(pct)
		}
		return pct >= 100, nil
	}
}

func until(parent context.Context, opts Options, cond Condition, s sleeper) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx := parent
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, opts.Timeout)
		defer cancel()
	}

	for {
		if err := ctx.Err(); err != nil {
			return stopped(parent, err)
		}
		done, err := cond(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return stopped(parent, ctx.Err())
			}
			return err
		}
		if done {
			return nil
		}
		if err := s.sleep(ctx, interval); err != nil {
			return stopped(parent, err)
		}
	}
}

// stopped classifies a context error: our own deadline is a timeout, anything
// coming from the caller's context is a cancellation.
func stopped(parent context.Context, cause error) error {
	if parent.Err() == nil && errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimedOut, cause)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
