package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const userAgent = "corpora/1 (+https://github.com/crimson-sun/corpora)"

// Client downloads over HTTP(S) with an optional proxy and retry budget.
type Client struct {
	httpClient *http.Client
	retries    int
	backoff    func(attempt int, lastErr *StatusError) time.Duration
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout. Zero means no timeout, which is
// the default: large archives can take longer than any fixed bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithProxy routes every request through the given proxy. Without it the
// standard HTTP_PROXY/HTTPS_PROXY environment variables apply.
func WithProxy(proxy *url.URL) Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
}

// WithRetries allows up to n extra attempts on 429 and 5xx responses.
// The default is 0: a failed request fails the download.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		backoff: backoffDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open sends a GET request and returns the response body for streaming.
// Returns *StatusError for non-2xx responses. Retries on 429 (with
// Retry-After) and 5xx (exponential backoff) when retries are enabled.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	var lastErr *StatusError
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt, lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, 0, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, 0, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.Body, resp.ContentLength, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()

		statusErr := &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body)}

		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = statusErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = statusErr
			continue
		}

		return nil, 0, statusErr
	}

	return nil, 0, lastErr
}

// backoffDelay returns the wait duration before a retry attempt.
func backoffDelay(attempt int, lastErr *StatusError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// Exponential backoff: 1s, 2s, 4s
	return time.Duration(1<<(attempt-1)) * time.Second
}
