package jsonl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/corpora/internal/sink"
)

func testRecord(i int) sink.Record {
	return sink.Record{Dataset: "AmazonReviewPolarity", Split: "train", Index: i, Label: 2, IDs: []int64{5, 9, 1}}
}

func TestWriteProducesValidNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Write(context.Background(), testRecord(i)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for i, line := range lines {
		var rec sink.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		if rec.Index != i || len(rec.IDs) != 3 {
			t.Errorf("line %d: %+v", i, rec)
		}
	}
	if !strings.Contains(lines[0], `"ids":[5,9,1]`) {
		t.Errorf("unexpected encoding: %s", lines[0])
	}
}

func TestAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for run := 0; run < 2; run++ {
		s, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		s.Write(context.Background(), testRecord(run))
		s.Close()
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("got %d lines, want 2", n)
	}
}

func TestTruncateReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for run := 0; run < 2; run++ {
		s, err := New(path, WithTruncate())
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 3; i++ {
			if err := s.Write(context.Background(), testRecord(i)); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 3 {
		t.Fatalf("got %d lines, want 3", n)
	}
}

func TestRotationTriggersAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	s, err := New(path, WithMaxSize(200), WithBufSize(16))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := s.Write(context.Background(), testRecord(i)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 200 {
		t.Errorf("active file is %d bytes, exceeds max size", info.Size())
	}
}

func TestNewBadPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "out.jsonl")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
