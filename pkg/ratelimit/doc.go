// Package ratelimit provides inter-request spacing for the scraping client.
//
// Unlike a token bucket, the request queue needs a guaranteed minimum gap
// between consecutive dispatches to avoid ban-triggering bursts. FixedInterval
// enforces base + jitter spacing, with the jitter chosen once per limiter
// lifetime so the cadence is stable within a run but differs across runs.
//
// Usage:
//
//	limiter := ratelimit.NewFixedInterval(2*time.Second, time.Second)
//
//	wait := limiter.Delay(lastDispatch)
//	// sleep wait, then dispatch
package ratelimit
