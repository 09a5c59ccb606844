// Package postgres exports records into a PostgreSQL table with COPY.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/sink"
)

const (
	defaultChunkSize    = 1000
	defaultCloseTimeout = 30 * time.Second
)

var columns = []string{"dataset", "split", "idx", "label", "ids"}

// DB is the subset of *pgxpool.Pool the sink uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Option configures a Sink.
type Option func(*Sink)

// WithChunkSize sets how many records are buffered per COPY. Default: 1000.
func WithChunkSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// Sink buffers records and copies them into a table in chunks.
type Sink struct {
	db        DB
	table     pgx.Identifier
	chunkSize int
	pending   [][]any
	closeFn   func()
}

// Connect opens a pool for url, creates table if needed and returns a Sink
// that closes the pool on Close.
func Connect(ctx context.Context, url, table string, opts ...Option) (*Sink, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}
	s := New(pool, table, opts...)
	s.closeFn = pool.Close
	if err := s.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New creates a Sink over an existing connection. table may be
// schema-qualified ("public.examples").
func New(db DB, table string, opts ...Option) *Sink {
	s := &Sink{
		db:        db,
		table:     pgx.Identifier(strings.Split(table, ".")),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTable creates the export table if it does not exist.
func (s *Sink) CreateTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`create table if not exists %s (
	dataset text not null,
	split   text not null,
	idx     bigint not null,
	label   integer not null,
	ids     bigint[] not null,
	primary key (dataset, split, idx)
)`, s.table.Sanitize())
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres sink: create table: %w", err)
	}
	return nil
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	s.pending = append(s.pending, []any{rec.Dataset, rec.Split, int64(rec.Index), int32(rec.Label), rec.IDs})
	if len(s.pending) >= s.chunkSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush copies any buffered records.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	rows := s.pending
	s.pending = nil
	n, err := s.db.CopyFrom(ctx, s.table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres sink: copy %d rows: %w", len(rows), err)
	}
	metrics.RecordsExportedTotal.WithLabelValues("postgres").Add(float64(n))
	slog.Debug("copied records", "table", s.table.Sanitize(), "rows", n)
	return nil
}

// Close flushes remaining records and releases the pool if the sink owns it.
func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()
	err := s.Flush(ctx)
	if s.closeFn != nil {
		s.closeFn()
	}
	return err
}
