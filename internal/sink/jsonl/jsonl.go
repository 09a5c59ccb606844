package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/sink"
)

const defaultBufSize = 64 * 1024

// Option configures a Sink.
type Option func(*Sink)

// WithMaxSize sets the file size (bytes) at which the file is rotated to
// {path}.1, {path}.2 and so on. 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(s *Sink) { s.maxSize = bytes }
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(s *Sink) { s.bufSize = bytes }
}

// WithTruncate discards any existing contents of the file instead of
// appending to them.
func WithTruncate() Option {
	return func(s *Sink) { s.truncate = true }
}

// Sink appends records to a file as newline-delimited JSON.
type Sink struct {
	mu       sync.Mutex
	w        *bufio.Writer
	f        *os.File
	path     string
	maxSize  int64
	written  int64
	bufSize  int
	truncate bool
}

// New opens (or creates) path for appending, or for overwriting with
// WithTruncate.
func New(path string, opts ...Option) (*Sink, error) {
	s := &Sink{path: path, bufSize: defaultBufSize}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) Write(_ context.Context, rec sink.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("jsonl sink: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSize > 0 && s.written > 0 && s.written+int64(len(data)) > s.maxSize {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("jsonl sink: rotate: %w", err)
		}
	}
	n, err := s.w.Write(data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("jsonl sink: write: %w", err)
	}
	metrics.RecordsExportedTotal.WithLabelValues("jsonl").Inc()
	return nil
}

// Close flushes the buffer and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("jsonl sink: flush: %w", err)
	}
	return s.f.Close()
}

func (s *Sink) open() error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if s.truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl sink: open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("jsonl sink: stat %s: %w", s.path, err)
	}
	s.f = f
	s.w = bufio.NewWriterSize(f, s.bufSize)
	s.written = info.Size()
	return nil
}

// rotate shifts {path}.N to {path}.N+1 (keeping at most 10), moves the
// current file to {path}.1 and reopens path.
func (s *Sink) rotate() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	for i := 9; i >= 1; i-- {
		// Missing generations are expected.
		os.Rename(fmt.Sprintf("%s.%d", s.path, i), fmt.Sprintf("%s.%d", s.path, i+1))
	}
	if err := os.Rename(s.path, s.path+".1"); err != nil {
		return err
	}
	return s.open()
}
