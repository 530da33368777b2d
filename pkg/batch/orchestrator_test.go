package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twscraper/pkg/config"
	errs "twscraper/pkg/errors"
	"twscraper/pkg/logger"
	"twscraper/pkg/queue"
	"twscraper/pkg/twitter"
)

// scriptedCapability records search calls and can fail a configured number
// of leading attempts
type scriptedCapability struct {
	mu        sync.Mutex
	calls     []searchCall
	failFirst int
	delay     time.Duration
}

type searchCall struct {
	query string
	at    time.Time
}

func (s *scriptedCapability) Search(ctx context.Context, query string, limit int, mode twitter.SearchMode) ([]twitter.Tweet, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.calls = append(s.calls, searchCall{query: query, at: time.Now()})
	n := len(s.calls)
	s.mu.Unlock()

	if n <= s.failFirst {
		return nil, errs.New(errs.ErrorTypeNetwork, "upstream hiccup")
	}

	return []twitter.Tweet{
		{ID: query, Text: "gm", Username: query, Timestamp: time.Now()},
	}, nil
}

func (s *scriptedCapability) Login(ctx context.Context, username, password, email, totp string) error {
	return nil
}
func (s *scriptedCapability) IsLoggedIn(ctx context.Context) (bool, error) { return true, nil }
func (s *scriptedCapability) GetCookies() ([]twitter.CredentialEntry, error) {
	return nil, nil
}
func (s *scriptedCapability) SetCookies([]twitter.CredentialEntry) error { return nil }
func (s *scriptedCapability) Close() error                               { return nil }

func (s *scriptedCapability) callTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := make([]time.Time, len(s.calls))
	for i, c := range s.calls {
		times[i] = c.at
	}
	return times
}

// fixedSessions hands out one capability regardless of identity
type fixedSessions struct {
	capability twitter.Capability
	err        error
}

func (f fixedSessions) Get(ctx context.Context, identity string) (twitter.Capability, error) {
	return f.capability, f.err
}

// countingSink tallies everything collected
type countingSink struct {
	mu     sync.Mutex
	tweets int
	calls  int
}

func (c *countingSink) Collect(ctx context.Context, tweets []twitter.Tweet, category string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.tweets += len(tweets)
	return len(tweets)
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		BatchSize:     3,
		SearchTimeout: time.Second,
		BatchDelay:    50 * time.Millisecond,
		SearchLimit:   50,
		MaxRetries:    3,
	}
}

func testQueue(t *testing.T) *queue.Queue {
	t.Helper()
	q := queue.New(context.Background(), queue.Config{
		BackoffBase:  time.Millisecond,
		MaxBackoff:   10 * time.Millisecond,
		Cooldown:     time.Millisecond,
		FailureRatio: 100,
		Capacity:     16,
	}, logger.NewTestLogger())
	t.Cleanup(q.Close)
	return q
}

func targets(accounts ...string) []Target {
	out := make([]Target, len(accounts))
	for i, a := range accounts {
		out[i] = Target{Account: a, Category: "KOLs"}
	}
	return out
}

func TestRunSingleBatchNoDelay(t *testing.T) {
	capability := &scriptedCapability{}
	sink := &countingSink{}
	o := New(testBatchConfig(), "scraper", fixedSessions{capability: capability}, testQueue(t), sink, logger.NewTestLogger())

	start := time.Now()
	summary, err := o.Run(context.Background(), targets("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.TweetsSaved)
	assert.Equal(t, 3, sink.calls)

	// Exactly one batch, so no inter-batch delay is incurred.
	assert.Less(t, time.Since(start), testBatchConfig().BatchDelay)
}

func TestRunSecondBatchWaitsForFirst(t *testing.T) {
	capability := &scriptedCapability{}
	sink := &countingSink{}
	cfg := testBatchConfig()
	o := New(cfg, "scraper", fixedSessions{capability: capability}, testQueue(t), sink, logger.NewTestLogger())

	summary, err := o.Run(context.Background(), targets("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)

	times := capability.callTimes()
	require.Len(t, times, 4)

	// The lone second-batch call starts only after every first-batch call
	// has resolved plus the configured delay.
	lastOfFirst := times[0]
	for _, ts := range times[1:3] {
		if ts.After(lastOfFirst) {
			lastOfFirst = ts
		}
	}
	assert.GreaterOrEqual(t, times[3].Sub(lastOfFirst), cfg.BatchDelay)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	capability := &scriptedCapability{failFirst: 2}
	sink := &countingSink{}
	q := testQueue(t)
	o := New(testBatchConfig(), "scraper", fixedSessions{capability: capability}, q, sink, logger.NewTestLogger())

	// A seeded success keeps the breaker clear of the first failure; with
	// no successes recorded, any failure trips it and resets the counters.
	require.NoError(t, q.Do(context.Background(), 1, func(ctx context.Context) error {
		return nil
	}))

	summary, err := o.Run(context.Background(), targets("a"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.TweetsSaved)

	// Two failed attempts then a success nets one failure against the seed.
	successes, failures := q.Counters()
	assert.Equal(t, 2, successes)
	assert.Equal(t, 1, failures)
}

func TestRunTimeoutAbandonsButDoesNotCancel(t *testing.T) {
	capability := &scriptedCapability{delay: 60 * time.Millisecond}
	sink := &countingSink{}
	cfg := testBatchConfig()
	cfg.SearchTimeout = 15 * time.Millisecond
	cfg.MaxRetries = 1
	q := testQueue(t)
	o := New(cfg, "scraper", fixedSessions{capability: capability}, q, sink, logger.NewTestLogger())

	summary, err := o.Run(context.Background(), targets("slow"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.TweetsSaved)

	// The abandoned call completes behind the orchestrator's back.
	assert.Eventually(t, func() bool {
		successes, _ := q.Counters()
		return successes == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRunSessionFailureSkipsPass(t *testing.T) {
	sessionErr := errs.ErrSessionEstablishment
	sink := &countingSink{}
	o := New(testBatchConfig(), "scraper", fixedSessions{err: sessionErr}, testQueue(t), sink, logger.NewTestLogger())

	summary, err := o.Run(context.Background(), targets("a", "b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSessionEstablishment))
	assert.Zero(t, summary.Attempted)
	assert.Zero(t, sink.calls)
}

func TestRunEmptyTargets(t *testing.T) {
	o := New(testBatchConfig(), "scraper", fixedSessions{}, testQueue(t), &countingSink{}, logger.NewTestLogger())

	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Attempted)
}
