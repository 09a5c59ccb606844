// Package imdb loads the Large Movie Review Dataset: 25k training and 25k
// test reviews, one file per review, labelled 1 (pos) or 0 (neg).
package imdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/corpora/internal/archive"
	"github.com/crimson-sun/corpora/internal/cache"
	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/metrics"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/registry"
	"github.com/crimson-sun/corpora/internal/text"
)

const (
	Name     = "IMDB"
	URL      = "http://ai.stanford.edu/~amaas/data/sentiment/aclImdb_v1.tar.gz"
	MD5      = "7c2ac02c03563afcf9b574c7e56c153a"
	FileName = "aclImdb_v1.tar.gz"

	ExtractedDir = "aclImdb"
	TextColumn   = "text"
)

// Splits lists the available splits in their default order.
var Splits = []string{"train", "test"}

// polarities are read in this order within a split.
var polarities = []struct {
	dir   string
	label int
}{
	{"neg", 0},
	{"pos", 1},
}

func init() {
	registry.RegisterLoader(Name, Load)
	registry.RegisterProcessor(Name, Process)
}

// Load downloads and extracts the archive if needed, then reads the
// requested splits. Within a split, negative reviews precede positive ones
// and files are read in name order.
func Load(ctx context.Context, opts dataset.LoadOptions) ([]*dataset.Dataset, error) {
	if opts.Resolver == nil {
		return nil, errors.New("imdb: load options need a resolver")
	}
	splits, err := dataset.ResolveSplits(opts.Splits, Splits)
	if err != nil {
		return nil, fmt.Errorf("imdb: %w", err)
	}

	entry := cache.Entry{URL: URL, Checksum: MD5, Dir: dataset.CacheDir(opts.Root, Name), FileName: FileName}
	if opts.URL != "" {
		entry.URL, entry.Checksum = opts.URL, opts.Checksum
	}
	path, err := opts.Resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("imdb: %w", err)
	}
	if _, err := archive.Extract(path, entry.Dir, ExtractedDir); err != nil {
		return nil, fmt.Errorf("imdb: %w", err)
	}

	out := make([]*dataset.Dataset, 0, len(splits))
	for _, split := range splits {
		labels, texts, err := readSplit(filepath.Join(entry.Dir, ExtractedDir, split))
		if err != nil {
			return nil, err
		}
		ds, err := dataset.New(Name, split, []string{"label", TextColumn}, labels, texts)
		if err != nil {
			return nil, err
		}
		slog.Info("split loaded", "dataset", Name, "split", split, "rows", ds.Len())
		out = append(out, ds)
	}
	return out, nil
}

func readSplit(dir string) ([]int, []string, error) {
	var (
		labels []int
		texts  []string
	)
	for _, p := range polarities {
		entries, err := os.ReadDir(filepath.Join(dir, p.dir))
		if err != nil {
			return nil, nil, fmt.Errorf("imdb: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, p.dir, e.Name()))
			if err != nil {
				return nil, nil, fmt.Errorf("imdb: %w", err)
			}
			labels = append(labels, p.label)
			texts = append(texts, strings.TrimSpace(string(data)))
		}
	}
	metrics.RowsParsedTotal.Add(float64(len(labels)))
	return labels, texts, nil
}

// Process tokenizes the text column. See process.Process.
func Process(ds *dataset.Dataset, opts process.Options) (*process.Dataset, *text.Vocab, error) {
	if opts.Column == "" {
		opts.Column = TextColumn
	}
	return process.Process(ds, opts)
}
