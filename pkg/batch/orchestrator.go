// Package batch fans a collection pass out across target accounts: fixed
// size groups run concurrently inside themselves, strictly sequentially
// across group boundaries, with a cooldown delay between groups. The pass is
// best effort; no single account's failure aborts it.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"twscraper/pkg/config"
	errs "twscraper/pkg/errors"
	"twscraper/pkg/logger"
	"twscraper/pkg/queue"
	"twscraper/pkg/retry"
	"twscraper/pkg/twitter"
)

// Target is one account to collect in a pass
type Target struct {
	Account  string
	Category string
}

// Sessions yields an authenticated capability for an identity
type Sessions interface {
	Get(ctx context.Context, identity string) (twitter.Capability, error)
}

// Dispatcher routes searches through the request queue
type Dispatcher interface {
	Do(ctx context.Context, maxAttempts int, task queue.Task) error
}

// Sink receives the filtered results of each successful search
type Sink interface {
	Collect(ctx context.Context, tweets []twitter.Tweet, category string) int
}

// Summary reports the outcome of one orchestration pass
type Summary struct {
	Attempted   int
	Succeeded   int
	Failed      int
	TweetsSaved int
}

// Orchestrator runs collection passes for one scraping identity
type Orchestrator struct {
	cfg      config.BatchConfig
	identity string
	sessions Sessions
	queue    Dispatcher
	sink     Sink
	log      logger.Logger

	mu      sync.Mutex
	summary Summary
}

// New creates an orchestrator. identity names the account whose session is
// used to issue searches.
func New(cfg config.BatchConfig, identity string, sessions Sessions, dispatcher Dispatcher, sink Sink, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		cfg:      cfg,
		identity: identity,
		sessions: sessions,
		queue:    dispatcher,
		sink:     sink,
		log:      log,
	}
}

// Run executes one pass over the targets. A session establishment failure
// skips the whole pass for this identity; per-account failures are logged
// and skipped.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) (Summary, error) {
	o.mu.Lock()
	o.summary = Summary{}
	o.mu.Unlock()

	if len(targets) == 0 {
		return Summary{}, nil
	}

	capability, err := o.sessions.Get(ctx, o.identity)
	if err != nil {
		return Summary{}, fmt.Errorf("cannot run pass for %s: %w", o.identity, err)
	}

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	totalBatches := (len(targets) + batchSize - 1) / batchSize

	for start := 0; start < len(targets); start += batchSize {
		end := start + batchSize
		if end > len(targets) {
			end = len(targets)
		}
		group := targets[start:end]

		logger.LogBatchProgress(start/batchSize+1, totalBatches, len(group))

		var wg sync.WaitGroup
		for _, target := range group {
			wg.Add(1)
			go func(target Target) {
				defer wg.Done()
				o.searchAccount(ctx, capability, target)
			}(target)
		}
		wg.Wait()

		// The cooldown applies only between groups, never after the
		// last one.
		if end < len(targets) {
			if err := retry.Wait(ctx, o.cfg.BatchDelay); err != nil {
				return o.snapshot(), err
			}
		}
	}

	return o.snapshot(), nil
}

// searchAccount issues one timed search for the target and forwards the
// results to the sink
func (o *Orchestrator) searchAccount(ctx context.Context, capability twitter.Capability, target Target) {
	tweets, err := o.searchWithTimeout(ctx, capability, target.Account)

	o.mu.Lock()
	o.summary.Attempted++
	if err != nil {
		o.summary.Failed++
		o.mu.Unlock()
		logger.LogSearch(target.Account, 0, false, err)
		return
	}
	o.summary.Succeeded++
	o.mu.Unlock()

	saved := o.sink.Collect(ctx, tweets, target.Category)

	o.mu.Lock()
	o.summary.TweetsSaved += saved
	o.mu.Unlock()

	logger.LogSearch(target.Account, len(tweets), true, nil)
}

// searchWithTimeout races the queued search against the per-account timeout.
// Losing the race abandons the call from the orchestrator's perspective; the
// queued task keeps running and still settles the shared failure counters.
func (o *Orchestrator) searchWithTimeout(ctx context.Context, capability twitter.Capability, account string) ([]twitter.Tweet, error) {
	type outcome struct {
		tweets []twitter.Tweet
		err    error
	}

	query := fmt.Sprintf("from:%s", account)
	resultCh := make(chan outcome, 1)

	go func() {
		var tweets []twitter.Tweet
		err := o.queue.Do(ctx, o.cfg.MaxRetries, func(taskCtx context.Context) error {
			found, searchErr := capability.Search(taskCtx, query, o.cfg.SearchLimit, twitter.SearchModeLatest)
			if searchErr != nil {
				return searchErr
			}
			tweets = found
			return nil
		})
		resultCh <- outcome{tweets: tweets, err: err}
	}()

	timer := time.NewTimer(o.cfg.SearchTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.tweets, res.err
	case <-timer.C:
		return nil, errs.New(errs.ErrorTypeTimeout,
			fmt.Sprintf("search for %s timed out after %s", account, o.cfg.SearchTimeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshot returns a copy of the running summary
func (o *Orchestrator) snapshot() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summary
}
