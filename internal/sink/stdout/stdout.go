package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/sink"
)

// Sink writes JSON-encoded records to a stream, stdout by default.
type Sink struct {
	enc *json.Encoder
}

// New creates a Sink writing to w, or os.Stdout when w is nil.
func New(w io.Writer, pretty bool) *Sink {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Sink{enc: enc}
}

func (s *Sink) Write(_ context.Context, rec sink.Record) error {
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("stdout sink: %w", err)
	}
	metrics.RecordsExportedTotal.WithLabelValues("stdout").Inc()
	return nil
}

func (s *Sink) Close() error {
	return nil
}
