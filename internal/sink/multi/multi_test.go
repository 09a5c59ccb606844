package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/corpora/internal/sink"
)

type mockSink struct {
	records  []sink.Record
	writeErr error
	closeErr error
	closed   bool
}

func (m *mockSink) Write(_ context.Context, rec sink.Record) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockSink) Close() error {
	m.closed = true
	return m.closeErr
}

func TestFanOut(t *testing.T) {
	a, b := &mockSink{}, &mockSink{}
	m := New(a, b)
	rec := sink.Record{Dataset: "IMDB", Index: 1}
	if err := m.Write(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("a=%d b=%d records", len(a.records), len(b.records))
	}
}

func TestFailureDoesNotStopDelivery(t *testing.T) {
	errA := errors.New("a broke")
	a, b := &mockSink{writeErr: errA}, &mockSink{}
	m := New(a, b)
	err := m.Write(context.Background(), sink.Record{})
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error to contain errA, got %v", err)
	}
	if len(b.records) != 1 {
		t.Fatal("second sink should still receive the record")
	}
}

func TestCloseClosesAll(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	a, b := &mockSink{closeErr: errA}, &mockSink{closeErr: errB}
	err := New(a, b).Close()
	if !a.closed || !b.closed {
		t.Fatal("every sink must be closed")
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
}
