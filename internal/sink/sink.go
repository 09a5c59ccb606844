// Package sink defines destinations for processed examples.
package sink

import "context"

// Record is one processed example tagged with where it came from.
type Record struct {
	Dataset string  `json:"dataset"`
	Split   string  `json:"split"`
	Index   int     `json:"index"`
	Label   int     `json:"label"`
	IDs     []int64 `json:"ids"`
}

// Sink receives records. Close flushes anything buffered.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}
