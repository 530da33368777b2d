// Package retry provides configurable retry logic with pluggable backoff
// strategies.
//
// The session manager uses it with a ConstantBackoff for post-restore and
// post-login validation attempts; the request queue uses an
// ExponentialBackoff capped at its maximum backoff for per-task retries.
//
// Usage:
//
//	err := retry.Do(probeSession, &retry.Config{
//	    MaxAttempts: 3,
//	    Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//	    RetryIf:     func(error) bool { return true },
//	    Context:     ctx,
//	})
//
// All waits are context-aware; cancelling the context aborts the sleep and
// surfaces ctx.Err() wrapped in the returned error.
package retry
