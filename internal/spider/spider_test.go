package spider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/scangate/internal/poll"
	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/scanner/scannertest"
	"github.com/redactyl/scangate/internal/session"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newCoordinator(fake *scannertest.Fake, sess *session.Session) *Coordinator {
	return New(fake, sess, WithLogger(quiet()), WithPoll(poll.Options{Interval: time.Millisecond}))
}

func TestConfigure_PushesSettings(t *testing.T) {
	fake := scannertest.New()
	sess := session.New()
	c := newCoordinator(fake, sess)

	err := c.Configure(context.Background(), Config{MaxDepth: 5, ThreadCount: 4, Exclude: []string{`.*logout.*`, `.*\.pdf`}})
	require.NoError(t, err)
	assert.Equal(t, 5, fake.MaxDepth)
	assert.Equal(t, 4, fake.Threads)
	assert.Equal(t, []string{`.*logout.*`, `.*\.pdf`}, fake.Excluded)
	assert.Equal(t, session.SpiderConfig{MaxDepth: 5, ThreadCount: 4, Excluded: []string{`.*logout.*`, `.*\.pdf`}}, sess.Spider)
}

func TestConfigure_ZeroValuesSkipped(t *testing.T) {
	fake := scannertest.New()
	c := newCoordinator(fake, nil)
	require.NoError(t, c.Configure(context.Background(), Config{}))
	assert.Empty(t, fake.Calls)
}

func TestConfigure_InvalidRegexSendsNothing(t *testing.T) {
	fake := scannertest.New()
	c := newCoordinator(fake, nil)
	err := c.Configure(context.Background(), Config{MaxDepth: 2, Exclude: []string{"ok", "(unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(unclosed")
	assert.Empty(t, fake.Calls)
}

func TestRun_PollsUntilComplete(t *testing.T) {
	fake := scannertest.New()
	fake.SpiderSteps = []int{0, 30, 30, 70, 100}
	fake.Discovered = []string{"http://app/", "http://app/login"}
	c := newCoordinator(fake, nil)

	found, err := c.Run(context.Background(), "http://app/")
	require.NoError(t, err)
	assert.Equal(t, fake.Discovered, found)
	assert.Equal(t, 5, fake.SpiderQueries)
	assert.Equal(t, []string{"SpiderSubmit http://app/"}, fake.CallsTo("SpiderSubmit"))
}

func TestRun_TransportErrorMidPoll(t *testing.T) {
	fake := scannertest.New()
	fake.SpiderSteps = []int{0, 10, 20}
	fake.ProgressHook = func(_ string, n int) {
		if n == 2 {
			fake.Errors["SpiderProgress"] = io.ErrUnexpectedEOF
		}
	}
	c := newCoordinator(fake, nil)

	_, err := c.Run(context.Background(), "http://app/")
	var ie *scanner.InfrastructureError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "spider progress", ie.Op)
	assert.Equal(t, "http://app/", ie.Target)
	assert.Equal(t, 2, fake.SpiderQueries, "no retry after the failing query")
	assert.Empty(t, fake.CallsTo("SpiderResults"))
}

func TestRun_SubmitError(t *testing.T) {
	fake := scannertest.New()
	fake.Errors["SpiderSubmit"] = errors.New("connection refused")
	c := newCoordinator(fake, nil)
	_, err := c.Run(context.Background(), "http://app/")
	assert.ErrorContains(t, err, "connection refused")
	assert.Zero(t, fake.SpiderQueries)
}

func TestRun_Cancelled(t *testing.T) {
	fake := scannertest.New()
	fake.SpiderSteps = []int{0}
	ctx, cancel := context.WithCancel(context.Background())
	fake.ProgressHook = func(_ string, n int) {
		if n == 3 {
			cancel()
		}
	}
	c := newCoordinator(fake, nil)
	_, err := c.Run(ctx, "http://app/")
	assert.True(t, errors.Is(err, poll.ErrCancelled))
	assert.Equal(t, 3, fake.SpiderQueries)
}

func TestRunEach_FailFast(t *testing.T) {
	fake := scannertest.New()
	fake.Discovered = []string{"http://app/a"}
	calls := 0
	fake.ProgressHook = func(string, int) {
		calls++
		if calls == 1 {
			fake.Errors["SpiderProgress"] = errors.New("boom")
		}
	}
	c := newCoordinator(fake, nil)

	found, err := c.RunEach(context.Background(), []string{"http://one/", "http://two/", "http://three/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http://two/")
	assert.Equal(t, []string{"http://one/", "http://two/"}, fake.SpiderTargets, "remaining entries are skipped")
	assert.Equal(t, []string{"http://app/a"}, found)
}

func TestWait(t *testing.T) {
	fake := scannertest.New()
	fake.SpiderSteps = []int{90, 100}
	c := newCoordinator(fake, nil)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, 2, fake.SpiderQueries)
	assert.Empty(t, fake.CallsTo("SpiderSubmit"))
}
