package twitter

import "time"

// Tweet is a single collected record from the upstream service
type Tweet struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Username        string    `json:"username"`
	Likes           int       `json:"likes"`
	Retweets        int       `json:"retweets"`
	Timestamp       time.Time `json:"timestamp"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
}

// CredentialEntry is one persisted authentication artifact (a cookie) with
// domain and expiry metadata
type CredentialEntry struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Expires time.Time `json:"expires,omitempty"`
}

// Expired reports whether the entry has an expiry in the past relative to now
func (e CredentialEntry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && e.Expires.Before(now)
}

// searchResponse is the JSON shape of a search call
type searchResponse struct {
	Tweets []Tweet `json:"tweets"`
}

// verifyResponse is the JSON shape of a session probe
type verifyResponse struct {
	LoggedIn bool   `json:"logged_in"`
	Username string `json:"username,omitempty"`
}

// loginRequest is the JSON body of a login call
type loginRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Email           string `json:"email"`
	TwoFactorSecret string `json:"two_factor_secret,omitempty"`
}
