package corpora

import (
	"context"
	"fmt"
	"slices"

	"github.com/crimson-sun/corpora/internal/cache"
	"github.com/crimson-sun/corpora/internal/dataset"
	_ "github.com/crimson-sun/corpora/internal/datasets/amazonreviewpolarity"
	_ "github.com/crimson-sun/corpora/internal/datasets/imdb"
	"github.com/crimson-sun/corpora/internal/fetch"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/registry"
	"github.com/crimson-sun/corpora/internal/text"
)

type (
	// Dataset is one loaded split: labels and raw text in file order.
	Dataset = dataset.Dataset
	// Row is one labelled text sample.
	Row = dataset.Row
	// Processed is a tokenized split.
	Processed = process.Dataset
	// Example is one tokenized row.
	Example = process.Example
	// Vocab maps tokens to ids.
	Vocab = text.Vocab
	// Tokenizer splits text into tokens.
	Tokenizer = text.Tokenizer
)

// Datasets returns the names of the available datasets.
func Datasets() []string {
	return registry.Names()
}

// Load fetches the named dataset (case-insensitive) and returns its splits in
// the requested order.
func Load(ctx context.Context, name string, opts ...Option) ([]*Dataset, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	load, err := registry.Loader(name)
	if err != nil {
		return nil, fmt.Errorf("corpora: %w", err)
	}
	splits, err := load(ctx, loadOptions(o))
	if err != nil {
		return nil, fmt.Errorf("corpora: %w", err)
	}
	return splits, nil
}

// LoadSplit is Load for a single split.
func LoadSplit(ctx context.Context, name, split string, opts ...Option) (*Dataset, error) {
	splits, err := Load(ctx, name, append(slices.Clone(opts), WithSplits(split))...)
	if err != nil {
		return nil, err
	}
	return splits[0], nil
}

// Process tokenizes ds and maps tokens to ids. Without WithVocab it fits a
// new vocabulary on ds; with it, unseen tokens map to the vocabulary's
// unknown id and the same vocabulary is returned.
func Process(ds *Dataset, opts ...Option) (*Processed, *Vocab, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	popts := process.Options{Column: o.column, Tokenizer: o.tokenizer, Vocab: o.vocab, Build: o.build}
	if ds == nil {
		return nil, nil, fmt.Errorf("corpora: nil dataset")
	}
	proc, err := registry.Processor(ds.Name())
	if err != nil {
		return process.Process(ds, popts)
	}
	return proc(ds, popts)
}

func loadOptions(o options) dataset.LoadOptions {
	var hopts []fetch.Option
	if o.timeout > 0 {
		hopts = append(hopts, fetch.WithTimeout(o.timeout))
	}
	if o.proxy != nil {
		hopts = append(hopts, fetch.WithProxy(o.proxy))
	}
	if o.retries > 0 {
		hopts = append(hopts, fetch.WithRetries(o.retries))
	}
	var copts []cache.Option
	if !o.quiet && o.progress != nil {
		copts = append(copts, cache.WithProgress(o.progress))
	}
	return dataset.LoadOptions{
		Root:     o.root,
		Splits:   o.splits,
		Resolver: cache.New(fetch.Standard(fetch.NewHTTP(hopts...), o.region, o.endpoint), copts...),
		URL:      o.mirror,
		Checksum: o.checksum,
	}
}
