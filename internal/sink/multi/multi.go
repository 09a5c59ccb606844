package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/corpora/internal/sink"
)

// Multi fans records out to several sinks in order. A failing sink does not
// stop delivery to the rest; errors are joined.
type Multi struct {
	sinks []sink.Sink
}

// New creates a Multi over sinks.
func New(sinks ...sink.Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Write(ctx context.Context, rec sink.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
