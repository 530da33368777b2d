package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	errs "twscraper/pkg/errors"
	"twscraper/pkg/logger"
)

const (
	searchEndpoint = "/api/search/tweets"
	loginEndpoint  = "/api/auth/login"
	verifyEndpoint = "/api/account/verify"
)

// ClientOptions configures the HTTP-backed capability
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client implements Capability over HTTP with a cookie jar. Credential
// entries are tracked alongside the jar because the standard jar does not
// expose domain and expiry metadata back to callers.
type Client struct {
	baseURL *url.URL
	http    *resty.Client
	log     logger.Logger

	mu      sync.Mutex
	cookies map[string]CredentialEntry
}

// NewClient creates a new HTTP-backed capability
func NewClient(opts ClientOptions, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetHeader("accept", "application/json")

	c := &Client{
		baseURL: baseURL,
		http:    client,
		log:     log,
		cookies: make(map[string]CredentialEntry),
	}

	// Record credential metadata from every response so GetCookies can
	// round-trip domain and expiry information.
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		c.recordCookies(res.Cookies())
		return nil
	})

	return c, nil
}

// Search runs a query against the upstream search endpoint
func (c *Client) Search(ctx context.Context, query string, limit int, mode SearchMode) ([]Tweet, error) {
	var result searchResponse

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"count": fmt.Sprintf("%d", limit),
			"mode":  mode.String(),
		}).
		SetResult(&result).
		Get(searchEndpoint)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "search request failed", err)
	}

	if err := c.checkStatus(res); err != nil {
		return nil, err
	}
	if err := checkJSON(res); err != nil {
		return nil, err
	}

	c.log.DebugWithFields("search completed", map[string]interface{}{
		"query":       query,
		"tweet_count": len(result.Tweets),
	})

	return result.Tweets, nil
}

// Login performs a fresh credential login
func (c *Client) Login(ctx context.Context, username, password, email, twoFactorSecret string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{
			Username:        username,
			Password:        password,
			Email:           email,
			TwoFactorSecret: twoFactorSecret,
		}).
		Post(loginEndpoint)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, "login request failed", err)
	}

	if res.StatusCode() != http.StatusOK {
		return errs.New(errs.ErrorTypeSession,
			fmt.Sprintf("login rejected with status %d", res.StatusCode()))
	}

	c.log.InfoWithFields("login completed", map[string]interface{}{
		"username": username,
	})

	return nil
}

// IsLoggedIn probes whether the current session is authenticated
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	var result verifyResponse

	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(verifyEndpoint)
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeNetwork, "verify request failed", err)
	}

	if res.StatusCode() == http.StatusUnauthorized {
		return false, nil
	}
	if err := c.checkStatus(res); err != nil {
		return false, err
	}
	if err := checkJSON(res); err != nil {
		return false, err
	}

	return result.LoggedIn, nil
}

// GetCookies returns the credential entries of the current session
func (c *Client) GetCookies() ([]CredentialEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]CredentialEntry, 0, len(c.cookies))
	for _, entry := range c.cookies {
		entries = append(entries, entry)
	}
	return entries, nil
}

// SetCookies injects previously persisted credential entries
func (c *Client) SetCookies(entries []CredentialEntry) error {
	cookies := make([]*http.Cookie, 0, len(entries))
	for _, entry := range entries {
		cookies = append(cookies, &http.Cookie{
			Name:    entry.Name,
			Value:   entry.Value,
			Domain:  entry.Domain,
			Expires: entry.Expires,
			Path:    "/",
		})
	}
	c.http.GetClient().Jar.SetCookies(c.baseURL, cookies)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range entries {
		c.cookies[entry.Name] = entry
	}
	return nil
}

// Close releases the underlying HTTP resources
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = make(map[string]CredentialEntry)
	return nil
}

// recordCookies captures credential metadata from Set-Cookie headers
func (c *Client) recordCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range cookies {
		domain := ck.Domain
		if domain == "" {
			domain = c.baseURL.Hostname()
		}
		c.cookies[ck.Name] = CredentialEntry{
			Name:    ck.Name,
			Value:   ck.Value,
			Domain:  domain,
			Expires: ck.Expires,
		}
	}
}

// checkJSON rejects successful responses that did not carry a JSON body.
// The auto-unmarshal is keyed on the content type, so without this check a
// mislabeled body reads as an empty, successful result.
func checkJSON(res *resty.Response) error {
	ct := res.Header().Get("Content-Type")
	if !strings.Contains(ct, "json") {
		return errs.New(errs.ErrorTypeValidation,
			fmt.Sprintf("unexpected content type %q", ct))
	}
	return nil
}

// checkStatus maps non-success HTTP statuses onto typed errors
func (c *Client) checkStatus(res *resty.Response) error {
	code := res.StatusCode()
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit,
			fmt.Sprintf("rate limited with status %d", code))
	case code >= 500:
		return errs.New(errs.ErrorTypeNetwork,
			fmt.Sprintf("server error with status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errs.New(errs.ErrorTypeSession,
			fmt.Sprintf("session rejected with status %d", code))
	default:
		return errs.New(errs.ErrorTypeUnknown,
			fmt.Sprintf("unexpected status %d", code))
	}
}
