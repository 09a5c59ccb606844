package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crimson-sun/corpora/internal/sink"
)

type fakeDB struct {
	execs   []string
	copies  [][][]any
	table   pgx.Identifier
	copyErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.table = table
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, vals)
	}
	f.copies = append(f.copies, rows)
	return int64(len(rows)), nil
}

func record(i int) sink.Record {
	return sink.Record{Dataset: "IMDB", Split: "train", Index: i, Label: i % 2, IDs: []int64{int64(i), 1}}
}

func TestChunkedCopy(t *testing.T) {
	db := &fakeDB{}
	s := New(db, "public.examples", WithChunkSize(2))
	for i := 0; i < 5; i++ {
		if err := s.Write(context.Background(), record(i)); err != nil {
			t.Fatal(err)
		}
	}
	if len(db.copies) != 2 {
		t.Fatalf("expected 2 full chunks before close, got %d", len(db.copies))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(db.copies) != 3 || len(db.copies[2]) != 1 {
		t.Fatalf("close should flush the remainder, copies=%d", len(db.copies))
	}
	if got := db.table.Sanitize(); got != `"public"."examples"` {
		t.Fatalf("table = %s", got)
	}
	row := db.copies[0][1]
	if row[0] != "IMDB" || row[2] != int64(1) || row[3] != int32(1) {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestCreateTable(t *testing.T) {
	db := &fakeDB{}
	s := New(db, "corpora_examples")
	if err := s.CreateTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], `create table if not exists "corpora_examples"`) {
		t.Fatalf("unexpected DDL: %v", db.execs)
	}
}

func TestCopyError(t *testing.T) {
	boom := errors.New("connection reset")
	s := New(&fakeDB{copyErr: boom}, "t", WithChunkSize(1))
	if err := s.Write(context.Background(), record(0)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped copy error, got %v", err)
	}
}

func TestConnectLive(t *testing.T) {
	url := os.Getenv("CORPORA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CORPORA_TEST_DATABASE_URL not set")
	}
	s, err := Connect(context.Background(), url, "corpora_test_examples")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
