// Package client provides an HTTP client with retry logic for upstream APIs.
//
// Every upstream integration goes through this client. Transport failures
// (timeouts, connection errors, 5xx responses) are retried with exponential
// backoff and, once the retry budget is exhausted, surface as ordinary errors
// that fetch boundaries convert to an unavailable result. They never abort a
// scan.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/git-pkgs/trustscore/fetch"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	defaultMaxRetries     = 2
	defaultBaseDelay      = time.Second
	defaultUserAgent      = "trustscore"
)

// Client is an HTTP client with per-attempt timeouts and retry with
// exponential backoff.
type Client struct {
	http           *http.Client
	userAgent      string
	maxRetries     int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	breaker        *fetch.Guard
	authFn         func(url string) (headerName, headerValue string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.attemptTimeout = d
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBreaker routes requests through per-host circuit breakers.
func WithBreaker(g *fetch.Guard) Option {
	return func(c *Client) {
		c.breaker = g
	}
}

// WithAuthFunc sets a function that returns an auth header for a given URL.
// Return empty strings to skip authentication for that URL.
func WithAuthFunc(fn func(url string) (headerName, headerValue string)) Option {
	return func(c *Client) {
		c.authFn = fn
	}
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Transport: fetch.NewTransport(),
		},
		userAgent:      defaultUserAgent,
		maxRetries:     defaultMaxRetries,
		baseDelay:      defaultBaseDelay,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultClient returns a client with sensible defaults:
// - 10s per-attempt timeout
// - 2 retries with exponential backoff starting at 1s
// - Retry on connection errors, 429 and 5xx responses
func DefaultClient() *Client {
	return NewClient()
}

// WithUserAgent returns a copy of the client using the given User-Agent.
func (c *Client) WithUserAgent(ua string) *Client {
	clone := *c
	clone.userAgent = ua
	return &clone
}

// GetJSON fetches url and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// PostJSON posts payload as JSON to url and decodes the response into v.
func (c *Client) PostJSON(ctx context.Context, url string, payload, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, url, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// GetBody fetches url and returns the raw response body.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// TryGetJSON fetches and decodes url into v, reporting success. Any transport
// or decode failure yields false, never an error. This is the fetch-or-null
// primitive every best-effort integration is built on.
func (c *Client) TryGetJSON(ctx context.Context, url string, v any) bool {
	return c.GetJSON(ctx, url, v) == nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.doOnce(ctx, method, url, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if httpErr, ok := err.(*HTTPError); ok && !httpErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	if c.breaker != nil {
		var body []byte
		err := c.breaker.Do(url, func() error {
			var reqErr error
			body, reqErr = c.request(ctx, method, url, payload)
			return reqErr
		})
		return body, err
	}
	return c.request(ctx, method, url, payload)
}

func (c *Client) request(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authFn != nil {
		if name, value := c.authFn(url); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       string(snippet),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return body, nil
}
