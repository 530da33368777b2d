package twitter

import "context"

// SearchMode selects the result ordering of a search call
type SearchMode int

const (
	SearchModeTop SearchMode = iota
	SearchModeLatest
	SearchModePhotos
	SearchModeVideos
)

// String returns the query parameter value for the search mode
func (m SearchMode) String() string {
	switch m {
	case SearchModeLatest:
		return "latest"
	case SearchModePhotos:
		return "photos"
	case SearchModeVideos:
		return "videos"
	default:
		return "top"
	}
}

// Capability is the external scraping capability the core components operate
// against. The upstream wire format is deliberately out of scope; anything
// that can search, authenticate, and round-trip credential entries can stand
// in (the test suites use httptest-backed fakes).
type Capability interface {
	// Search runs a query and returns up to limit tweets
	Search(ctx context.Context, query string, limit int, mode SearchMode) ([]Tweet, error)

	// Login performs a fresh credential login
	Login(ctx context.Context, username, password, email, twoFactorSecret string) error

	// IsLoggedIn probes whether the current session is authenticated
	IsLoggedIn(ctx context.Context) (bool, error)

	// GetCookies returns the credential entries of the current session
	GetCookies() ([]CredentialEntry, error)

	// SetCookies injects previously persisted credential entries
	SetCookies(entries []CredentialEntry) error

	// Close releases the underlying resources. Implementations must make
	// teardown explicit rather than relying on finalizers.
	Close() error
}
