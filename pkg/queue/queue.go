package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "twscraper/pkg/errors"
	"twscraper/pkg/logger"
	"twscraper/pkg/ratelimit"
	"twscraper/pkg/retry"
)

// Task is a unit of work dispatched by the queue. The context is the queue's
// root context; tasks must return promptly once it is cancelled.
type Task func(ctx context.Context) error

// Config holds queue pacing and circuit breaker configuration
type Config struct {
	// MinInterval is the base minimum spacing between dispatches
	MinInterval time.Duration
	// MaxJitter is the upper bound of the random spacing component,
	// chosen once per queue lifetime
	MaxJitter time.Duration
	// BackoffBase is the base of the per-attempt exponential backoff
	BackoffBase time.Duration
	// MaxBackoff caps the per-attempt backoff
	MaxBackoff time.Duration
	// Cooldown is the penalty applied when the failure ratio is exceeded
	Cooldown time.Duration
	// FailureRatio is the failure/success ratio that triggers the cooldown
	FailureRatio float64
	// Capacity bounds the pending task list; Do blocks once it is full
	Capacity int
}

// DefaultConfig returns a queue configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MinInterval:  2 * time.Second,
		MaxJitter:    time.Second,
		BackoffBase:  2 * time.Second,
		MaxBackoff:   30 * time.Second,
		Cooldown:     15 * time.Minute,
		FailureRatio: 0.2,
		Capacity:     256,
	}
}

// item is one queued unit of work
type item struct {
	task        Task
	maxAttempts int
	done        chan error
}

// Queue serializes all outbound calls to the external capability. Tasks are
// dispatched strictly in submission order by a single drain goroutine, with a
// minimum inter-dispatch interval, per-attempt exponential backoff, and a
// global failure-ratio circuit breaker. No two dispatches ever overlap.
type Queue struct {
	limiter      ratelimit.Limiter
	backoff      retry.BackoffStrategy
	cooldown     time.Duration
	failureRatio float64
	log          logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan *item
	wg     sync.WaitGroup

	// Counter state is mutated only by the drain goroutine; the mutex
	// exists for the test accessors.
	mu           sync.Mutex
	lastDispatch time.Time
	successes    int
	failures     int
}

// New creates a queue and starts its drain goroutine. The queue observes ctx
// as a global cancellation signal: pending waits, backoffs and cooldowns are
// all aborted once it is done.
func New(ctx context.Context, cfg Config, log logger.Logger) *Queue {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}

	qctx, cancel := context.WithCancel(ctx)

	q := &Queue{
		limiter: ratelimit.NewFixedInterval(cfg.MinInterval, cfg.MaxJitter),
		backoff: &retry.ExponentialBackoff{
			// The first retry waits twice the base, matching
			// base*2^attempt growth up to the cap.
			BaseDelay:  2 * cfg.BackoffBase,
			MaxDelay:   cfg.MaxBackoff,
			Multiplier: 2.0,
		},
		cooldown:     cfg.Cooldown,
		failureRatio: cfg.FailureRatio,
		log:          log,
		ctx:          qctx,
		cancel:       cancel,
		tasks:        make(chan *item, cfg.Capacity),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// Do submits a task and blocks until it settles or ctx is done. A task fails
// terminally with ErrRetriesExhausted once maxAttempts attempts have failed.
//
// When the caller's ctx expires while the task is queued or in flight, Do
// returns the ctx error but the task is NOT cancelled: it still dispatches in
// order and settles the shared failure counters.
func (q *Queue) Do(ctx context.Context, maxAttempts int, task Task) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	it := &item{
		task:        task,
		maxAttempts: maxAttempts,
		done:        make(chan error, 1),
	}

	select {
	case q.tasks <- it:
	case <-q.ctx.Done():
		return errs.Wrap(errs.ErrorTypeUnknown, "queue shut down", q.ctx.Err())
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-it.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the drain loop and waits for it to exit. Pending tasks settle
// with a shutdown error.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()

	// Fail whatever was still pending so no caller blocks forever.
	for {
		select {
		case it := <-q.tasks:
			it.done <- errs.Wrap(errs.ErrorTypeUnknown, "queue shut down", q.ctx.Err())
		default:
			return
		}
	}
}

// Counters returns the rolling success and failure counts
func (q *Queue) Counters() (successes, failures int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.successes, q.failures
}

// LastDispatch returns the start time of the most recent dispatch
func (q *Queue) LastDispatch() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastDispatch
}

// Interval returns the jittered minimum inter-dispatch interval
func (q *Queue) Interval() time.Duration {
	return q.limiter.Interval()
}

// Pending returns the number of tasks waiting for dispatch
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// run is the single drain loop. It is the only goroutine that dispatches
// tasks or mutates the counters, which is what makes the queue single-flight.
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case it := <-q.tasks:
			it.done <- q.dispatch(it)
		}
	}
}

// dispatch runs one task to terminal success or exhausted retries
func (q *Queue) dispatch(it *item) error {
	var lastErr error

	for attempt := 0; attempt < it.maxAttempts; attempt++ {
		if err := q.waitTurn(attempt); err != nil {
			return err
		}

		q.mu.Lock()
		q.lastDispatch = time.Now()
		q.mu.Unlock()

		err := it.task(q.ctx)
		if err == nil {
			q.recordSuccess()
			return nil
		}

		lastErr = err
		q.log.WarnWithFields("task attempt failed", map[string]interface{}{
			"attempt":      attempt + 1,
			"max_attempts": it.maxAttempts,
			"error":        err.Error(),
		})

		if err := q.recordFailure(); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", errs.ErrRetriesExhausted, it.maxAttempts, lastErr)
}

// waitTurn sleeps out the rate limit spacing plus the per-attempt backoff
func (q *Queue) waitTurn(attempt int) error {
	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()

	delay := q.limiter.Delay(last)
	if attempt > 0 {
		delay += q.backoff.NextDelay(attempt)
	}

	return retry.Wait(q.ctx, delay)
}

// recordSuccess bumps the success count and heals the failure count
func (q *Queue) recordSuccess() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.successes++
	if q.failures > 0 {
		q.failures--
	}
}

// recordFailure bumps the failure count and applies the cooldown penalty when
// the failure ratio is exceeded. The cooldown delays every subsequently
// queued task; it never fails them.
func (q *Queue) recordFailure() error {
	q.mu.Lock()
	q.failures++
	tripped := float64(q.failures) > q.failureRatio*float64(q.successes)
	failures, successes := q.failures, q.successes
	q.mu.Unlock()

	if !tripped {
		return nil
	}

	logger.LogCooldown(failures, successes, int(q.cooldown.Seconds()))

	if err := retry.Wait(q.ctx, q.cooldown); err != nil {
		return err
	}

	q.mu.Lock()
	q.failures = 0
	q.successes = 0
	q.mu.Unlock()

	return nil
}
