// Package registry maps dataset names to their load and process functions.
// Dataset packages register themselves from init.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/text"
)

// LoadFunc fetches a dataset and returns its requested splits in order.
type LoadFunc func(ctx context.Context, opts dataset.LoadOptions) ([]*dataset.Dataset, error)

// ProcessFunc tokenizes a loaded split, building or applying a vocabulary.
type ProcessFunc func(ds *dataset.Dataset, opts process.Options) (*process.Dataset, *text.Vocab, error)

var (
	loaders    = map[string]LoadFunc{}
	processors = map[string]ProcessFunc{}
	names      = map[string]string{} // lowercased key → registered name
)

func key(name string) string { return strings.ToLower(name) }

// RegisterLoader adds a loader under the given dataset name.
func RegisterLoader(name string, fn LoadFunc) {
	loaders[key(name)] = fn
	names[key(name)] = name
}

// RegisterProcessor adds a processor under the given dataset name.
func RegisterProcessor(name string, fn ProcessFunc) {
	processors[key(name)] = fn
	names[key(name)] = name
}

// Loader returns the loader for name, matched case-insensitively.
func Loader(name string) (LoadFunc, error) {
	fn, ok := loaders[key(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dataset: %s", name)
	}
	return fn, nil
}

// Processor returns the processor for name, matched case-insensitively.
func Processor(name string) (ProcessFunc, error) {
	fn, ok := processors[key(name)]
	if !ok {
		return nil, fmt.Errorf("no processor for dataset: %s", name)
	}
	return fn, nil
}

// Canonical returns the name a dataset was registered under.
func Canonical(name string) (string, bool) {
	n, ok := names[key(name)]
	return n, ok
}

// Names returns the registered dataset names, sorted.
func Names() []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
