// Package fetch opens remote dataset files as byte streams.
// The cache resolver owns where the bytes go; transports only produce them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Fetcher opens a remote object for reading. size is the content length
// when the transport knows it, -1 otherwise. The caller closes the reader.
type Fetcher interface {
	Open(ctx context.Context, rawURL string) (rc io.ReadCloser, size int64, err error)
}

// Schemes dispatches to a Fetcher by URL scheme ("https", "s3", ...).
type Schemes map[string]Fetcher

// Open routes rawURL to the fetcher registered for its scheme.
func (s Schemes) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: parse url: %w", err)
	}
	f, ok := s[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, 0, fmt.Errorf("fetch: no transport for scheme %q", u.Scheme)
	}
	return f.Open(ctx, rawURL)
}

// Standard returns the transports corpora uses by default: h for http and
// https, and an S3 client for s3:// built on first use.
func Standard(h *Client, region, endpoint string) Schemes {
	return Schemes{
		"http":  h,
		"https": h,
		"s3":    &lazyS3{region: region, endpoint: endpoint},
	}
}

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}
