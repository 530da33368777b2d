// Package session owns the authenticated session lifecycle: durable cookie
// persistence per identity, restoration and liveness validation against the
// live service, fresh login when restoration fails, and rotation of sessions
// past their maximum age. All validation probes and logins are routed through
// the request queue so they share the anti-ban pacing with ordinary searches.
package session
