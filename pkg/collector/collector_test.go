package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"twscraper/pkg/logger"
	"twscraper/pkg/twitter"
)

// memStore is an in-memory TweetStore for tests
type memStore struct {
	saved map[string]string // id -> category
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]string)}
}

func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.saved[id]
	return ok, nil
}

func (m *memStore) Save(ctx context.Context, tweet twitter.Tweet, category string) error {
	m.saved[tweet.ID] = category
	return nil
}

func TestCollectFiltersMissingFields(t *testing.T) {
	store := newMemStore()
	c := New(store, 12*time.Hour, logger.NewTestLogger())

	saved := c.Collect(context.Background(), []twitter.Tweet{
		{ID: "1", Text: "gm", Username: "a", Timestamp: time.Now()},
		{ID: "", Text: "gm", Username: "b", Timestamp: time.Now()},
		{ID: "3", Text: "", Username: "c", Timestamp: time.Now()},
		{ID: "4", Text: "gm", Username: "", Timestamp: time.Now()},
	}, "KOLs")

	assert.Equal(t, 1, saved)
	assert.Contains(t, store.saved, "1")
	assert.Len(t, store.saved, 1)
}

func TestCollectFiltersStaleTweets(t *testing.T) {
	store := newMemStore()
	c := New(store, 12*time.Hour, logger.NewTestLogger())

	saved := c.Collect(context.Background(), []twitter.Tweet{
		{ID: "fresh", Text: "gm", Username: "a", Timestamp: time.Now().Add(-time.Hour)},
		{ID: "stale", Text: "gm", Username: "a", Timestamp: time.Now().Add(-13 * time.Hour)},
	}, "")

	assert.Equal(t, 1, saved)
	assert.Contains(t, store.saved, "fresh")
	assert.NotContains(t, store.saved, "stale")
}

func TestCollectMissingTimestampTreatedAsNow(t *testing.T) {
	store := newMemStore()
	c := New(store, 12*time.Hour, logger.NewTestLogger())

	saved := c.Collect(context.Background(), []twitter.Tweet{
		{ID: "1", Text: "gm", Username: "a"},
	}, "")

	assert.Equal(t, 1, saved)
}

func TestCollectDeduplicates(t *testing.T) {
	store := newMemStore()
	c := New(store, 12*time.Hour, logger.NewTestLogger())

	tweets := []twitter.Tweet{
		{ID: "1", Text: "gm", Username: "a", Timestamp: time.Now()},
	}

	assert.Equal(t, 1, c.Collect(context.Background(), tweets, "KOLs"))
	assert.Equal(t, 0, c.Collect(context.Background(), tweets, "KOLs"))
	assert.Len(t, store.saved, 1)
}
