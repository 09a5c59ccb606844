// Package process turns a loaded dataset split into integer-id examples.
package process

import (
	"fmt"
	"log/slog"

	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/text"
)

// Example is one processed row.
type Example struct {
	Label int
	IDs   []int64
}

// Dataset is a processed split. It satisfies dataset.Source[Example].
type Dataset struct {
	name     string
	split    string
	examples []Example
}

func (d *Dataset) Len() int            { return len(d.examples) }
func (d *Dataset) At(i int) Example    { return d.examples[i] }
func (d *Dataset) Name() string        { return d.name }
func (d *Dataset) Split() string       { return d.split }
func (d *Dataset) Examples() []Example { return d.examples }

// Options controls Process. The zero value tokenizes the dataset's text
// column with a case-preserving BasicTokenizer and fits a new vocabulary.
type Options struct {
	Column    string         // must name the dataset's text column; empty means that column
	Tokenizer text.Tokenizer // default &text.BasicTokenizer{}
	Vocab     *text.Vocab    // nil fits a new vocabulary from ds
	Build     []text.BuildOption
}

// Process tokenizes every row of ds and maps tokens to ids. Without a vocab
// it first builds one from ds (fit mode); otherwise it applies the given
// vocab, sending unseen tokens to its unknown id, and returns it unchanged.
func Process(ds *dataset.Dataset, opts Options) (*Dataset, *text.Vocab, error) {
	if ds == nil {
		return nil, nil, fmt.Errorf("process: nil dataset")
	}
	col := opts.Column
	if col == "" {
		col = ds.TextColumn()
	}
	if col != ds.TextColumn() {
		return nil, nil, fmt.Errorf("process: %s has no text column %q (have %q)", ds.Name(), col, ds.TextColumn())
	}
	tok := opts.Tokenizer
	if tok == nil {
		tok = &text.BasicTokenizer{}
	}

	tokens := make([][]string, ds.Len())
	for i, row := range dataset.All[dataset.Row](ds) {
		toks, err := text.Tokenize(tok, row.Text)
		if err != nil {
			return nil, nil, fmt.Errorf("process: %s/%s row %d: %w", ds.Name(), ds.Split(), i, err)
		}
		tokens[i] = toks
	}

	vocab := opts.Vocab
	if vocab == nil {
		v, err := text.Build(tokens, opts.Build...)
		if err != nil {
			return nil, nil, fmt.Errorf("process: %w", err)
		}
		vocab = v
		slog.Info("vocabulary built", "dataset", ds.Name(), "split", ds.Split(), "size", vocab.Size())
	}

	out := &Dataset{name: ds.Name(), split: ds.Split(), examples: make([]Example, ds.Len())}
	var unknown int
	for i, toks := range tokens {
		ids, n := vocab.Lookups(toks)
		unknown += n
		out.examples[i] = Example{Label: ds.At(i).Label, IDs: ids}
	}
	metrics.UnknownTokensTotal.Add(float64(unknown))
	slog.Debug("split processed",
		"dataset", ds.Name(),
		"split", ds.Split(),
		"rows", out.Len(),
		"unknown_tokens", unknown)
	return out, vocab, nil
}
