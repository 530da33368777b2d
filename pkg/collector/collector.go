// Package collector filters raw search results and forwards the keepers to
// the persistence layer. A result is kept when its required fields are
// present, its timestamp falls inside the recency window, and it is not
// already stored.
package collector

import (
	"context"
	"time"

	"twscraper/pkg/logger"
	"twscraper/pkg/twitter"
)

// TweetStore is the persistence collaborator boundary
type TweetStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, tweet twitter.Tweet, category string) error
}

// Collector applies field, recency and dedup filters before persisting
type Collector struct {
	store  TweetStore
	window time.Duration
	log    logger.Logger
}

// New creates a collector with the given recency window
func New(store TweetStore, window time.Duration, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{
		store:  store,
		window: window,
		log:    log,
	}
}

// Collect persists the tweets that pass all filters under the given
// category and returns how many were saved. Storage errors on a single
// tweet are logged and skipped; they never abort the rest of the batch.
func (c *Collector) Collect(ctx context.Context, tweets []twitter.Tweet, category string) int {
	now := time.Now()
	cutoff := now.Add(-c.window)
	saved := 0

	for _, tweet := range tweets {
		if tweet.ID == "" || tweet.Text == "" || tweet.Username == "" {
			c.log.DebugWithFields("tweet skipped: missing required fields", map[string]interface{}{
				"id":       tweet.ID,
				"username": tweet.Username,
			})
			continue
		}

		// Results without a timestamp are treated as just seen.
		ts := tweet.Timestamp
		if ts.IsZero() {
			ts = now
		}
		if ts.Before(cutoff) {
			continue
		}

		exists, err := c.store.Exists(ctx, tweet.ID)
		if err != nil {
			c.log.WarnWithFields("tweet dedup check failed", map[string]interface{}{
				"id":    tweet.ID,
				"error": err.Error(),
			})
			continue
		}
		if exists {
			continue
		}

		if err := c.store.Save(ctx, tweet, category); err != nil {
			c.log.WarnWithFields("tweet save failed", map[string]interface{}{
				"id":    tweet.ID,
				"error": err.Error(),
			})
			continue
		}
		saved++
	}

	return saved
}
