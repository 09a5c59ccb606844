// Package webhook POSTs batches of records to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/sink"
)

const (
	defaultBatchSize = 500
	defaultTimeout   = 30 * time.Second
	maxRetries       = 3
)

// Option configures a Sink.
type Option func(*Sink)

// WithHeaders sets HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(s *Sink) { s.headers = h }
}

// WithBatchSize sets how many records go into one POST. Default: 500.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// withBackoff overrides the retry delay; tests use it to avoid sleeping.
func withBackoff(f func(attempt int) time.Duration) Option {
	return func(s *Sink) { s.backoff = f }
}

// Sink accumulates records and POSTs each full batch as a JSON array.
// Server errors (5xx) and transport failures are retried with exponential
// backoff.
type Sink struct {
	client    *http.Client
	url       string
	headers   map[string]string
	batchSize int
	backoff   func(attempt int) time.Duration
	pending   []sink.Record
}

// New creates a Sink targeting url.
func New(url string, opts ...Option) *Sink {
	s := &Sink{
		client:    &http.Client{Timeout: defaultTimeout},
		url:       url,
		batchSize: defaultBatchSize,
		backoff:   func(attempt int) time.Duration { return time.Duration(1<<(attempt-1)) * time.Second },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	s.pending = append(s.pending, rec)
	if len(s.pending) >= s.batchSize {
		return s.flush(ctx)
	}
	return nil
}

// Close sends any remaining records.
func (s *Sink) Close() error {
	return s.flush(context.Background())
}

func (s *Sink) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("webhook sink: marshal: %w", err)
	}
	if err := s.post(ctx, body); err != nil {
		return err
	}
	metrics.RecordsExportedTotal.WithLabelValues("webhook").Add(float64(len(batch)))
	return nil
}

func (s *Sink) post(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.backoff(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("webhook sink: %w", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook sink: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("webhook sink: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("webhook sink: %w", err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook sink: HTTP %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
