package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "twscraper/pkg/errors"
	"twscraper/pkg/logger"
)

func testConfig() Config {
	return Config{
		MinInterval:  0,
		MaxJitter:    0,
		BackoffBase:  5 * time.Millisecond,
		MaxBackoff:   100 * time.Millisecond,
		Cooldown:     20 * time.Millisecond,
		FailureRatio: 0.2,
		Capacity:     16,
	}
}

func TestSingleFlight(t *testing.T) {
	q := New(context.Background(), testConfig(), logger.NewTestLogger())
	defer q.Close()

	var inFlight int32
	var overlapped int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), 1, func(ctx context.Context) error {
				if atomic.AddInt32(&inFlight, 1) > 1 {
					atomic.StoreInt32(&overlapped, 1)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlapped), "dispatches must never overlap")

	successes, failures := q.Counters()
	assert.Equal(t, 8, successes)
	assert.Equal(t, 0, failures)
}

func TestMinIntervalSpacing(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = 30 * time.Millisecond

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	var starts []time.Time
	for i := 0; i < 3; i++ {
		err := q.Do(context.Background(), 1, func(ctx context.Context) error {
			starts = append(starts, time.Now())
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, cfg.MinInterval,
			"dispatch %d started %v after its predecessor", i, gap)
	}
}

func TestJitterFixedPerLifetime(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = 10 * time.Millisecond
	cfg.MaxJitter = 10 * time.Millisecond

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	first := q.Interval()
	assert.GreaterOrEqual(t, first, cfg.MinInterval)
	assert.Less(t, first, cfg.MinInterval+cfg.MaxJitter)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Do(context.Background(), 1, func(ctx context.Context) error {
			return nil
		}))
		assert.Equal(t, first, q.Interval())
	}
}

func TestRetryBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Millisecond

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	var starts []time.Time
	err := q.Do(context.Background(), 3, func(ctx context.Context) error {
		starts = append(starts, time.Now())
		if len(starts) < 3 {
			return errs.New(errs.ErrorTypeNetwork, "transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, starts, 3)

	// Backoff doubles from twice the base: 10ms then 20ms.
	assert.GreaterOrEqual(t, starts[1].Sub(starts[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, starts[2].Sub(starts[1]), 20*time.Millisecond)
}

func TestRetriesExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Millisecond

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	calls := 0
	err := q.Do(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "down")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRetriesExhausted))
	assert.Equal(t, 2, calls)
}

func TestCooldownResetsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = 30 * time.Millisecond

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	ok := func(ctx context.Context) error { return nil }
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Do(context.Background(), 1, ok))
	}

	// With 5 successes the threshold is 1 failure, so the second failure
	// trips the breaker and both counters reset.
	start := time.Now()
	err := q.Do(context.Background(), 2, func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeRateLimit, "429")
	})
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), cfg.Cooldown)

	successes, failures := q.Counters()
	assert.Equal(t, 0, successes)
	assert.Equal(t, 0, failures)
}

func TestSuccessHealsFailureCount(t *testing.T) {
	cfg := testConfig()
	// Keep the breaker out of the way so the counter arithmetic is visible.
	cfg.FailureRatio = 100

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	fail := func(ctx context.Context) error { return errs.New(errs.ErrorTypeNetwork, "down") }
	ok := func(ctx context.Context) error { return nil }

	// Seed successes first: with none recorded, any ratio trips on the
	// very first failure (failures > ratio*0).
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Do(context.Background(), 1, ok))
	}

	require.Error(t, q.Do(context.Background(), 1, fail))
	require.Error(t, q.Do(context.Background(), 1, fail))

	successes, failures := q.Counters()
	assert.Equal(t, 3, successes)
	assert.Equal(t, 2, failures)

	require.NoError(t, q.Do(context.Background(), 1, ok))
	require.NoError(t, q.Do(context.Background(), 1, ok))

	successes, failures = q.Counters()
	assert.Equal(t, 5, successes)
	assert.Equal(t, 0, failures, "each success decrements failures toward zero")
}

func TestRetriedTaskNetsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.FailureRatio = 100

	q := New(context.Background(), cfg, logger.NewTestLogger())
	defer q.Close()

	// One seeded success keeps the first failure below the trip threshold.
	require.NoError(t, q.Do(context.Background(), 1, func(ctx context.Context) error {
		return nil
	}))

	attempts := 0
	err := q.Do(context.Background(), 3, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeNetwork, "flaky")
		}
		return nil
	})
	require.NoError(t, err)

	// Two failures then one success: the success decrements one failure.
	successes, failures := q.Counters()
	assert.Equal(t, 2, successes)
	assert.Equal(t, 1, failures)
}

func TestAbandonedCallerDoesNotCancelTask(t *testing.T) {
	q := New(context.Background(), testConfig(), logger.NewTestLogger())
	defer q.Close()

	var ran int32
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := q.Do(ctx, 1, func(taskCtx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The dispatch keeps running after the caller walks away.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ran) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		successes, _ := q.Counters()
		return successes == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCloseFailsPendingTasks(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = time.Second

	q := New(context.Background(), cfg, logger.NewTestLogger())

	require.NoError(t, q.Do(context.Background(), 1, func(ctx context.Context) error {
		return nil
	}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Do(context.Background(), 1, func(ctx context.Context) error {
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("pending task did not settle after Close")
	}
}
