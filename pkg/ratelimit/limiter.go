package ratelimit

import (
	"math/rand"
	"time"
)

// Limiter defines the interface for inter-dispatch spacing
type Limiter interface {
	// Delay returns how long to wait before the next dispatch, given the
	// time of the previous dispatch. A zero lastDispatch means no dispatch
	// has happened yet and no wait is required.
	Delay(lastDispatch time.Time) time.Duration
	// Interval returns the enforced minimum spacing between dispatches.
	Interval() time.Duration
}

// FixedInterval enforces a minimum spacing between dispatches. The spacing is
// a fixed base plus a random jitter component chosen once at construction, so
// the process keeps a steady but not perfectly regular cadence.
type FixedInterval struct {
	interval time.Duration
}

// NewFixedInterval creates a limiter with interval = base + rand[0, maxJitter)
func NewFixedInterval(base, maxJitter time.Duration) *FixedInterval {
	interval := base
	if maxJitter > 0 {
		interval += time.Duration(rand.Int63n(int64(maxJitter)))
	}
	return &FixedInterval{interval: interval}
}

// Delay returns the remaining wait before another dispatch is allowed
func (f *FixedInterval) Delay(lastDispatch time.Time) time.Duration {
	if lastDispatch.IsZero() {
		return 0
	}
	remaining := f.interval - time.Since(lastDispatch)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Interval returns the enforced minimum spacing
func (f *FixedInterval) Interval() time.Duration {
	return f.interval
}
