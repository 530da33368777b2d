// Package twitter defines the external scraping capability boundary and an
// HTTP-backed implementation of it.
//
// The Capability interface is what the session manager, request queue and
// batch orchestrator operate against: search, login, a liveness probe, cookie
// round-tripping, and an explicit Close. The upstream wire format is not part
// of the contract; Client is one plausible integration, and the fakes used in
// tests are another.
//
// Client keeps its own record of credential entries next to the cookie jar
// because net/http's jar strips domain and expiry metadata on read, which the
// session store needs for filtering and persistence.
package twitter
