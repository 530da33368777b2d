package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"twscraper/pkg/logger"
	"twscraper/pkg/twitter"
)

// cookieFile is the on-disk shape of a persisted session
type cookieFile struct {
	Identity string                    `json:"identity"`
	Cookies  []twitter.CredentialEntry `json:"cookies"`
	SavedAt  time.Time                 `json:"saved_at"`
}

// Store persists session cookies for one identity as a JSON file. Entries
// are filtered to the root domain on both read and write, and entries
// without an expiry are stamped with a default one when saved.
type Store struct {
	path          string
	rootDomain    string
	defaultExpiry time.Duration
	logger        logger.Logger
}

// NewStore creates a cookie store for the given identity. When cacheDir is
// empty the platform cache directory is used.
func NewStore(identity, cacheDir, rootDomain string, defaultExpiry time.Duration) (*Store, error) {
	if cacheDir == "" {
		dir, err := getCacheDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		cacheDir = dir
	}

	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Store{
		path:          filepath.Join(cacheDir, fmt.Sprintf("%s.cookies.json", identity)),
		rootDomain:    rootDomain,
		defaultExpiry: defaultExpiry,
		logger:        logger.GetLogger(),
	}, nil
}

// Load reads the persisted cookies for this identity. Entries outside the
// root domain or already expired are dropped. A missing file is not an
// error; it returns nil cookies.
func (s *Store) Load() ([]twitter.CredentialEntry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer file.Close()

	var cf cookieFile
	if err := json.NewDecoder(file).Decode(&cf); err != nil {
		return nil, fmt.Errorf("failed to decode cookie file: %w", err)
	}

	now := time.Now()
	kept := make([]twitter.CredentialEntry, 0, len(cf.Cookies))
	for _, c := range cf.Cookies {
		if !s.matchesDomain(c.Domain) || c.Expired(now) {
			continue
		}
		kept = append(kept, c)
	}

	s.logger.DebugWithFields("Cookies loaded", map[string]interface{}{
		"path":     s.path,
		"total":    len(cf.Cookies),
		"kept":     len(kept),
		"saved_at": cf.SavedAt,
	})

	return kept, nil
}

// Save writes the cookies for this identity atomically. Entries outside the
// root domain are dropped, and entries without an expiry get the default
// expiry stamped relative to now.
func (s *Store) Save(identity string, cookies []twitter.CredentialEntry) error {
	now := time.Now()
	kept := make([]twitter.CredentialEntry, 0, len(cookies))
	for _, c := range cookies {
		if !s.matchesDomain(c.Domain) {
			continue
		}
		if c.Expires.IsZero() {
			c.Expires = now.Add(s.defaultExpiry)
		}
		kept = append(kept, c)
	}

	cf := cookieFile{
		Identity: identity,
		Cookies:  kept,
		SavedAt:  now,
	}

	tempPath := s.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary cookie file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&cf); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode cookie file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync cookie file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close cookie file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}

	s.logger.DebugWithFields("Cookies saved", map[string]interface{}{
		"path":    s.path,
		"cookies": len(kept),
	})

	return nil
}

// Delete removes the cookie file
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cookie file: %w", err)
	}
	return nil
}

// Exists reports whether a cookie file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// matchesDomain keeps cookies whose domain contains the root domain, so
// both "twitter.com" and ".twitter.com" pass.
func (s *Store) matchesDomain(domain string) bool {
	return strings.Contains(domain, s.rootDomain)
}

// getCacheDirectory returns the platform cache directory for session files
func getCacheDirectory() (string, error) {
	var cacheDir string

	switch runtime.GOOS {
	case "linux":
		if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
			cacheDir = filepath.Join(xdgCacheHome, "twscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			cacheDir = filepath.Join(home, ".cache", "twscraper")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheDir = filepath.Join(home, "Library", "Caches", "twscraper")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", fmt.Errorf("LOCALAPPDATA environment variable not set")
		}
		cacheDir = filepath.Join(localAppData, "twscraper")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return cacheDir, nil
}
