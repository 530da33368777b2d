package session

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

// Credentials are the login inputs for one account identity
type Credentials struct {
	Username        string
	Password        string
	Email           string
	TwoFactorSecret string
}

// Dispatcher routes live calls through the request queue's throttling
// discipline. Validation probes are real network calls and must not bypass
// the anti-ban pacing.
type Dispatcher interface {
	Do(ctx context.Context, maxAttempts int, task queue.Task) error
}

// CapabilityFactory builds a fresh unauthenticated capability handle
type CapabilityFactory func() (twitter.Capability, error)

// entry is the per-identity session slot. Its mutex serializes concurrent
// Get callers for the same identity so only one of them runs the
// restore/login cycle.
type entry struct {
	mu         sync.Mutex
	capability twitter.Capability
	createdAt  time.Time
}

// Manager owns one logical session per account identity. It restores
// sessions from the cookie store, validates them against the live service,
// performs a fresh login when restoration fails, and rotates sessions once
// they exceed the maximum age.
type Manager struct {
	cfg        config.SessionConfig
	creds      Credentials
	factory    CapabilityFactory
	dispatcher Dispatcher
	log        logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager creates a session manager for the given credentials
func NewManager(cfg config.SessionConfig, creds Credentials, factory CapabilityFactory, dispatcher Dispatcher, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		cfg:        cfg,
		creds:      creds,
		factory:    factory,
		dispatcher: dispatcher,
		log:        log,
		entries:    make(map[string]*entry),
	}
}

// Get returns an authenticated capability for the identity. While a valid
// session of acceptable age exists it is returned as-is; otherwise the
// manager runs restore, then fresh login, and fails with
// ErrSessionEstablishment when both are exhausted.
func (m *Manager) Get(ctx context.Context, identity string) (twitter.Capability, error) {
	e := m.entry(identity)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.capability != nil && time.Since(e.createdAt) > m.cfg.MaxAge {
		logger.LogSessionEvent(identity, "aged_out")
		m.discard(identity, e)
	}

	if e.capability != nil {
		if err := m.probe(ctx, e.capability); err == nil {
			return e.capability, nil
		}
		logger.LogSessionEvent(identity, "validation_failed")
		m.discard(identity, e)
	}

	return m.establish(ctx, identity, e)
}

// Close tears down every live session, tolerating cleanup failures
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for identity, e := range m.entries {
		e.mu.Lock()
		m.discard(identity, e)
		e.mu.Unlock()
	}
}

// entry returns the identity's slot, creating it on first use
func (m *Manager) entry(identity string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[identity]
	if !ok {
		e = &entry{}
		m.entries[identity] = e
	}
	return e
}

// discard closes the handle and empties the slot. Cleanup failure is logged
// and otherwise ignored; the slot is cleared regardless.
func (m *Manager) discard(identity string, e *entry) {
	if e.capability == nil {
		return
	}
	if err := e.capability.Close(); err != nil {
		m.log.WarnWithFields("session cleanup failed", map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		})
	}
	e.capability = nil
	e.createdAt = time.Time{}
}

// establish runs the restore-then-login cycle for the identity
func (m *Manager) establish(ctx context.Context, identity string, e *entry) (twitter.Capability, error) {
	capability, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create capability handle: %w", err)
	}

	store, err := NewStore(identity, m.cfg.CacheDirectory, m.cfg.RootDomain, m.cfg.MaxAge)
	if err != nil {
		capability.Close()
		return nil, err
	}

	if m.restore(ctx, identity, capability, store) {
		logger.LogSessionEvent(identity, "restored")
		e.capability = capability
		e.createdAt = time.Now()
		return capability, nil
	}

	if err := m.login(ctx, identity, capability, store); err != nil {
		capability.Close()
		return nil, err
	}

	logger.LogSessionEvent(identity, "logged_in")
	e.capability = capability
	e.createdAt = time.Now()
	return capability, nil
}

// restore injects persisted cookies and validates the result. It reports
// whether the restored session is live; every failure mode falls through to
// a fresh login.
func (m *Manager) restore(ctx context.Context, identity string, capability twitter.Capability, store *Store) bool {
	cookies, err := store.Load()
	if err != nil {
		m.log.WarnWithFields("cookie restore failed", map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		})
		return false
	}
	if len(cookies) == 0 {
		return false
	}

	// Inject in bounded batches so one bad cookie does not abort the
	// whole restoration.
	batchSize := m.cfg.CookieBatchSize
	if batchSize <= 0 {
		batchSize = len(cookies)
	}
	for start := 0; start < len(cookies); start += batchSize {
		end := start + batchSize
		if end > len(cookies) {
			end = len(cookies)
		}
		if err := capability.SetCookies(cookies[start:end]); err != nil {
			m.log.WarnWithFields("cookie batch rejected", map[string]interface{}{
				"identity": identity,
				"batch":    start / batchSize,
				"error":    err.Error(),
			})
		}
	}

	return m.validate(ctx, capability) == nil
}

// login performs a fresh login and persists the credential set on the first
// successful validation after it
func (m *Manager) login(ctx context.Context, identity string, capability twitter.Capability, store *Store) error {
	err := m.dispatcher.Do(ctx, 1, func(taskCtx context.Context) error {
		return capability.Login(taskCtx, m.creds.Username, m.creds.Password, m.creds.Email, m.creds.TwoFactorSecret)
	})
	if err != nil {
		return fmt.Errorf("%w for %s: login: %w", errs.ErrSessionEstablishment, identity, err)
	}

	if err := m.validate(ctx, capability); err != nil {
		return fmt.Errorf("%w for %s: post-login validation: %w", errs.ErrSessionEstablishment, identity, err)
	}

	cookies, err := capability.GetCookies()
	if err != nil {
		m.log.WarnWithFields("cookie export failed", map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		})
		return nil
	}
	if err := store.Save(identity, cookies); err != nil {
		m.log.WarnWithFields("cookie persist failed", map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		})
	}

	return nil
}

// validate probes session liveness through the dispatcher, retrying with a
// short constant delay
func (m *Manager) validate(ctx context.Context, capability twitter.Capability) error {
	return retry.Do(func() error {
		return m.probe(ctx, capability)
	}, &retry.Config{
		MaxAttempts: m.cfg.ValidationAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: m.cfg.ValidationDelay},
		RetryIf:     func(err error) bool { return true },
		Context:     ctx,
		Logger:      m.log,
	})
}

// probe issues one liveness check as a throttled queue task
func (m *Manager) probe(ctx context.Context, capability twitter.Capability) error {
	return m.dispatcher.Do(ctx, 1, func(taskCtx context.Context) error {
		loggedIn, err := capability.IsLoggedIn(taskCtx)
		if err != nil {
			return err
		}
		if !loggedIn {
			return errs.New(errs.ErrorTypeSession, "session is not logged in")
		}
		return nil
	})
}
