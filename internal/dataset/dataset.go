// Package dataset holds parsed dataset splits and generic helpers for
// iterating, sharding, batching and splitting any indexable source.
package dataset

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/crimson-sun/corpora/internal/cache"
)

// Row is one labelled text sample.
type Row struct {
	Label int
	Text  string
}

// Dataset is one split of a named dataset, held in file order.
type Dataset struct {
	name    string
	split   string
	columns []string
	labels  []int
	texts   []string
}

// New builds a Dataset over parallel label and text slices. columns names the
// label column followed by the text column.
func New(name, split string, columns []string, labels []int, texts []string) (*Dataset, error) {
	if len(labels) != len(texts) {
		return nil, fmt.Errorf("dataset: %s/%s: %d labels but %d texts", name, split, len(labels), len(texts))
	}
	if len(columns) != 2 {
		return nil, fmt.Errorf("dataset: %s/%s: want 2 column names, got %d", name, split, len(columns))
	}
	return &Dataset{
		name:    name,
		split:   split,
		columns: append([]string(nil), columns...),
		labels:  labels,
		texts:   texts,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.labels) }

// At returns row i. It panics if i is out of range, like a slice index.
func (d *Dataset) At(i int) Row { return Row{Label: d.labels[i], Text: d.texts[i]} }

func (d *Dataset) Name() string  { return d.name }
func (d *Dataset) Split() string { return d.split }

// Columns returns the column names, label first.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// TextColumn returns the name of the text column.
func (d *Dataset) TextColumn() string { return d.columns[1] }

// LoadOptions controls how a dataset's splits are fetched and read.
type LoadOptions struct {
	Root     string          // cache root; files land under Root/datasets/<Name>
	Splits   []string        // splits to load, in order; empty means the dataset default
	Resolver *cache.Resolver // required
	URL      string          // overrides the dataset's download URL
	Checksum string          // overrides the expected checksum; used only with URL
}

// ResolveSplits validates requested against the splits a dataset provides.
// An empty request selects every available split. Order follows the request.
func ResolveSplits(requested, available []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), available...), nil
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if !slices.Contains(available, s) {
			return nil, fmt.Errorf("dataset: unknown split %q (available: %s)", s, strings.Join(available, ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

// CacheDir returns the directory a dataset's files are cached in.
func CacheDir(root, name string) string {
	return filepath.Join(root, "datasets", name)
}
