// Package queue provides the single-flight FIFO request scheduler that
// serializes every outbound call to the external service. It enforces a
// jittered minimum inter-dispatch interval, retries failed tasks with capped
// exponential backoff, and applies a global cooldown once the observed
// failure ratio crosses the circuit breaker threshold.
package queue
