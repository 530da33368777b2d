package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twscraper/pkg/twitter"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("testaccount", t.TempDir(), "twitter.com", 4*time.Hour)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTripFiltersDomains(t *testing.T) {
	store := newTestStore(t)

	entries := []twitter.CredentialEntry{
		{Name: "auth_token", Value: "abc", Domain: ".twitter.com"},
		{Name: "ct0", Value: "def", Domain: "twitter.com"},
		{Name: "tracker", Value: "xyz", Domain: "ads.example.com"},
	}

	require.NoError(t, store.Save("testaccount", entries))

	restored, err := store.Load()
	require.NoError(t, err)
	require.Len(t, restored, 2)

	names := []string{restored[0].Name, restored[1].Name}
	assert.Contains(t, names, "auth_token")
	assert.Contains(t, names, "ct0")
	assert.NotContains(t, names, "tracker")
}

func TestStoreStampsDefaultExpiry(t *testing.T) {
	store := newTestStore(t)

	before := time.Now()
	require.NoError(t, store.Save("testaccount", []twitter.CredentialEntry{
		{Name: "auth_token", Value: "abc", Domain: "twitter.com"},
	}))

	restored, err := store.Load()
	require.NoError(t, err)
	require.Len(t, restored, 1)

	assert.False(t, restored[0].Expires.IsZero())
	assert.True(t, restored[0].Expires.After(before.Add(4*time.Hour-time.Minute)))
	assert.True(t, restored[0].Expires.Before(before.Add(4*time.Hour+time.Minute)))
}

func TestStoreDropsExpiredOnLoad(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("testaccount", []twitter.CredentialEntry{
		{Name: "stale", Value: "old", Domain: "twitter.com", Expires: time.Now().Add(-time.Hour)},
		{Name: "fresh", Value: "new", Domain: "twitter.com", Expires: time.Now().Add(time.Hour)},
	}))

	restored, err := store.Load()
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, "fresh", restored[0].Name)
}

func TestStoreMissingFile(t *testing.T) {
	store := newTestStore(t)

	restored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, restored)
	assert.False(t, store.Exists())
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("testaccount", []twitter.CredentialEntry{
		{Name: "auth_token", Value: "abc", Domain: "twitter.com"},
	}))
	require.True(t, store.Exists())

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())

	// Deleting again is not an error.
	assert.NoError(t, store.Delete())
}
