// Package pipeline drives a registered dataset from download to exported
// records: load, tokenize, look up, write.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/registry"
	"github.com/crimson-sun/corpora/internal/sink"
	"github.com/crimson-sun/corpora/internal/text"
)

const (
	VocabFile    = "vocab.txt"
	ManifestFile = "manifest.json"
)

// Job describes one run.
type Job struct {
	Dataset       string
	Splits        []string // empty means the dataset default
	Tokenizer     text.Tokenizer
	TokenizerName string      // recorded in the manifest
	Vocab         *text.Vocab // nil fits a vocabulary on the first split
	Build         []text.BuildOption
	OutDir        string // where vocab.txt and manifest.json go; empty skips both
}

// SplitSummary is the per-split part of a Manifest.
type SplitSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// Manifest summarizes a completed run.
type Manifest struct {
	RunID     string         `json:"run_id"`
	Dataset   string         `json:"dataset"`
	Splits    []SplitSummary `json:"splits"`
	VocabSize int            `json:"vocab_size"`
	Fitted    bool           `json:"vocab_fitted"`
	Tokenizer string         `json:"tokenizer"`
	CreatedAt time.Time      `json:"created_at"`
}

// Pipeline connects dataset loading, processing and a sink.
type Pipeline struct {
	load dataset.LoadOptions
	sink sink.Sink
}

// New creates a Pipeline that loads with opts and writes to out. opts.Splits
// is ignored; splits come from each Job.
func New(opts dataset.LoadOptions, out sink.Sink) *Pipeline {
	return &Pipeline{load: opts, sink: out}
}

// Run loads job.Dataset, processes the first split in fit mode (unless a
// vocabulary is supplied) and the rest in apply mode, and streams every
// example to the sink. Any failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Manifest, error) {
	name, ok := registry.Canonical(job.Dataset)
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown dataset: %s", job.Dataset)
	}
	load, err := registry.Loader(name)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	proc, err := registry.Processor(name)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	opts := p.load
	opts.Splits = job.Splits
	splits, err := load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline load: %w", err)
	}

	m := &Manifest{
		RunID:     uuid.NewString(),
		Dataset:   name,
		Fitted:    job.Vocab == nil,
		Tokenizer: job.TokenizerName,
		CreatedAt: time.Now().UTC(),
	}
	vocab := job.Vocab
	for _, ds := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, v, err := proc(ds, process.Options{Tokenizer: job.Tokenizer, Vocab: vocab, Build: job.Build})
		if err != nil {
			return nil, fmt.Errorf("pipeline process %s: %w", ds.Split(), err)
		}
		vocab = v
		if err := p.export(ctx, out); err != nil {
			return nil, err
		}
		m.Splits = append(m.Splits, SplitSummary{Name: ds.Split(), Rows: out.Len()})
		slog.Info("split exported", "dataset", name, "split", ds.Split(), "rows", out.Len())
	}
	if vocab != nil {
		m.VocabSize = vocab.Size()
	}

	if job.OutDir != "" {
		if err := writeOutputs(job.OutDir, vocab, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (p *Pipeline) export(ctx context.Context, ds *process.Dataset) error {
	for i, ex := range dataset.All[process.Example](ds) {
		rec := sink.Record{
			Dataset: ds.Name(),
			Split:   ds.Split(),
			Index:   i,
			Label:   ex.Label,
			IDs:     ex.IDs,
		}
		if err := p.sink.Write(ctx, rec); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

func writeOutputs(dir string, vocab *text.Vocab, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if vocab != nil {
		if err := vocab.Save(filepath.Join(dir, VocabFile)); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// Close shuts down the sink.
func (p *Pipeline) Close() error {
	return p.sink.Close()
}
