// Package amazonreviewpolarity loads the Amazon Review Polarity corpus:
// 3.6M training and 400k test reviews labelled 1 (negative) or 2 (positive).
package amazonreviewpolarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/crimson-sun/corpora/internal/archive"
	"github.com/crimson-sun/corpora/internal/cache"
	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/registry"
	"github.com/crimson-sun/corpora/internal/rows"
	"github.com/crimson-sun/corpora/internal/text"
)

const (
	Name     = "AmazonReviewPolarity"
	URL      = "https://drive.google.com/uc?export=download&id=0Bz8a_Dbh9QhbaW12WVVZS2drcnM&confirm=t"
	MD5      = "fe39f8b653cada45afd5792e0f0e8f9b"
	FileName = "amazon_review_polarity_csv.tar.gz"

	// ExtractedDir is the top-level directory inside the archive.
	ExtractedDir = "amazon_review_polarity_csv"
	TextColumn   = "title_text"
)

// Splits lists the available splits in their default order.
var Splits = []string{"train", "test"}

var splitFiles = map[string]string{
	"train": "train.csv",
	"test":  "test.csv",
}

func init() {
	registry.RegisterLoader(Name, Load)
	registry.RegisterProcessor(Name, Process)
}

// Load downloads, verifies and extracts the archive if needed, then parses
// the requested splits. Results follow the order of opts.Splits.
func Load(ctx context.Context, opts dataset.LoadOptions) ([]*dataset.Dataset, error) {
	if opts.Resolver == nil {
		return nil, errors.New("amazonreviewpolarity: load options need a resolver")
	}
	splits, err := dataset.ResolveSplits(opts.Splits, Splits)
	if err != nil {
		return nil, fmt.Errorf("amazonreviewpolarity: %w", err)
	}

	entry := cache.Entry{URL: URL, Checksum: MD5, Dir: dataset.CacheDir(opts.Root, Name), FileName: FileName}
	if opts.URL != "" {
		entry.URL, entry.Checksum = opts.URL, opts.Checksum
	}
	path, err := opts.Resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("amazonreviewpolarity: %w", err)
	}
	if _, err := archive.Extract(path, entry.Dir, ExtractedDir); err != nil {
		return nil, fmt.Errorf("amazonreviewpolarity: %w", err)
	}

	out := make([]*dataset.Dataset, 0, len(splits))
	for _, split := range splits {
		file := filepath.Join(entry.Dir, ExtractedDir, splitFiles[split])
		labels, texts, err := rows.Parse(file, rows.Options{})
		if err != nil {
			return nil, fmt.Errorf("amazonreviewpolarity: %w", err)
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

// Process tokenizes the title_text column. See process.Process.
func Process(ds *dataset.Dataset, opts process.Options) (*process.Dataset, *text.Vocab, error) {
	if opts.Column == "" {
		opts.Column = TextColumn
	}
	return process.Process(ds, opts)
}
