package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/alexhail/quickcontroller/token"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"
	refreshFlightID = "refresh"
)

// Client is the authenticated request transport for the remote API. Every
// request carries the ledger's access token as a bearer credential. A 401 from
// any endpoint other than the refresh endpoint triggers exactly one silent
// refresh; if it succeeds the original request is retried exactly once and the
// retried response is returned as-is, otherwise the session is cleared and the
// original 401 is returned unmodified.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ledger     *token.Ledger
	limiter    *rate.Limiter

	refreshFlight singleflight.Group

	hooksMu        sync.RWMutex
	sessionCleared []func()
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. If it has no cookie jar
// one is installed, since the refresh credential travels as a cookie.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit limits outbound requests to rps per second. A non-positive
// rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client for baseURL backed by ledger.
func New(baseURL string, ledger *token.Ledger, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient.New] base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("[apiclient.New] invalid base URL: %w", err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("[apiclient.New] ledger is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		ledger:     ledger,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("[apiclient.New] cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ledger returns the token ledger the client reads credentials from.
func (c *Client) Ledger() *token.Ledger {
	return c.ledger
}

// CookieJar returns the jar holding the refresh cookie.
func (c *Client) CookieJar() http.CookieJar {
	return c.httpClient.Jar
}

// OnSessionCleared registers fn to run whenever a failed refresh clears the
// ledger. The session gateway uses it to drop the current user so token and
// identity are never partially present.
func (c *Client) OnSessionCleared(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.sessionCleared = append(c.sessionCleared, fn)
}

type requestOptions struct {
	anonymous bool
	query     url.Values
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

// Anonymous sends the request without a bearer credential and exempts it from
// the refresh-and-retry protocol. Used for login and registration, whose 401
// means "bad credentials" rather than "expired session".
func Anonymous() RequestOption {
	return func(o *requestOptions) {
		o.anonymous = true
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = q
	}
}

// Do sends a request and applies the refresh-and-retry protocol. Transport
// failures (no response) are returned wrapped in ErrTransientNetwork. The
// caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*http.Response, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient.Do] encode body: %w", err)
	}

	resp, err := c.send(ctx, method, endpoint, payload, o)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || o.anonymous || endpoint == EndpointRefresh {
		return resp, nil
	}

	if !c.Refresh(ctx) {
		return resp, nil
	}

	drainAndClose(resp)
	return c.send(ctx, method, endpoint, payload, o)
}

// DoJSON sends a request through Do and decodes a 2xx JSON body into out (if
// non-nil). Non-2xx responses become *APIError.
func (c *Client) DoJSON(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	resp, err := c.Do(ctx, method, endpoint, body, opts...)
	if err != nil {
		return err
	}
	if err := CheckResponse(resp, defaultErrorMessage); err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("[apiclient.DoJSON] decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Refresh exchanges the ambient refresh cookie for a new access token and
// stores it in the ledger. Concurrent callers share a single refresh call.
// Failure is silent: the ledger is cleared, session-cleared hooks run and
// false is returned. A result that arrives after the ledger was changed by
// someone else (login, logout) is ignored.
func (c *Client) Refresh(ctx context.Context) bool {
	v, _, _ := c.refreshFlight.Do(refreshFlightID, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(bool)
}

func (c *Client) refresh(ctx context.Context) bool {
	generation := c.ledger.Generation()

	accessToken, err := c.requestRefresh(ctx)
	if err == nil {
		if c.ledger.SetIfGeneration(generation, accessToken) {
			return true
		}
		log.Debug().Msg("Refresh result ignored: session changed while refreshing")
		return false
	}

	log.Debug().Err(err).Msg("Silent refresh failed")
	if c.ledger.ClearIfGeneration(generation) {
		c.runSessionCleared()
	}
	return false
}

func (c *Client) requestRefresh(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, EndpointRefresh, nil, requestOptions{anonymous: true})
	if err != nil {
		return "", err
	}
	if err := CheckResponse(resp, "Refresh failed"); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("refresh response has no access token")
	}
	return tr.AccessToken, nil
}

func (c *Client) runSessionCleared() {
	c.hooksMu.RLock()
	hooks := append([]func(){}, c.sessionCleared...)
	c.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, o requestOptions) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, networkError(method, endpoint, err)
		}
	}

	u := c.baseURL + endpoint
	if len(o.query) > 0 {
		u += "?" + o.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] build request %s %s: %w", method, endpoint, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !o.anonymous {
		if tok := c.ledger.Token(); tok != nil {
			tok.SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(method, endpoint, err)
	}

	log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("API request")
	return resp, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
