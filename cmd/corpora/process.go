package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/corpora/internal/pipeline"
	"github.com/crimson-sun/corpora/internal/sink"
	"github.com/crimson-sun/corpora/internal/sink/jsonl"
	"github.com/crimson-sun/corpora/internal/sink/multi"
	"github.com/crimson-sun/corpora/internal/sink/postgres"
	"github.com/crimson-sun/corpora/internal/sink/stdout"
	"github.com/crimson-sun/corpora/internal/sink/webhook"
	"github.com/crimson-sun/corpora/internal/text"
)

type processFlags struct {
	splits     []string
	tokenizer  string
	vocab      string
	minCount   int
	topK       int
	outDir     string
	sinks      []string
	jsonlPath  string
	maxSize    int64
	webhookURL string
	pretty     bool
	mirror     string
	checksum   string
}

func newProcessCmd(a *app) *cobra.Command {
	var pf processFlags
	cmd := &cobra.Command{
		Use:   "process <dataset>",
		Short: "Tokenize a dataset, build or apply a vocabulary and export examples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd, args[0], pf)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&pf.splits, "split", nil, "splits to process, in order; the first one fits the vocabulary (default all)")
	f.StringVar(&pf.tokenizer, "tokenizer", "basic", "basic, basic-lower, whitespace or hf:<tokenizer.json>")
	f.StringVar(&pf.vocab, "vocab", "", "existing vocabulary file; skips fitting")
	f.IntVar(&pf.minCount, "min-count", 1, "drop tokens seen fewer times when fitting")
	f.IntVar(&pf.topK, "top-k", 0, "keep only the most frequent tokens when fitting (0 keeps all)")
	f.StringVar(&pf.outDir, "out", ".", "directory for vocab.txt and manifest.json")
	f.StringSliceVar(&pf.sinks, "sink", []string{"jsonl"}, "jsonl, stdout, postgres or webhook; repeat to fan out")
	f.StringVar(&pf.jsonlPath, "jsonl", "", "JSON Lines output path (default <out>/examples.jsonl)")
	f.Int64Var(&pf.maxSize, "jsonl-max-size", 0, "rotate the JSON Lines file after this many bytes (0 disables)")
	f.StringVar(&pf.webhookURL, "webhook-url", "", "endpoint for the webhook sink")
	f.BoolVar(&pf.pretty, "pretty", false, "indent stdout records")
	mirrorFlags(cmd, &pf.mirror, &pf.checksum)
	return cmd
}

func (a *app) runProcess(cmd *cobra.Command, name string, pf processFlags) error {
	tok, err := text.ByName(pf.tokenizer)
	if err != nil {
		return err
	}
	var vocab *text.Vocab
	if pf.vocab != "" {
		if vocab, err = text.LoadVocab(pf.vocab); err != nil {
			return err
		}
	}

	opts, err := a.loadOptions(pf.splits)
	if err != nil {
		return err
	}
	opts.URL, opts.Checksum = pf.mirror, pf.checksum

	out, files, err := a.openSinks(cmd, pf)
	if err != nil {
		return err
	}
	p := pipeline.New(opts, out)

	m, runErr := p.Run(cmd.Context(), pipeline.Job{
		Dataset:       name,
		Splits:        pf.splits,
		Tokenizer:     tok,
		TokenizerName: pf.tokenizer,
		Vocab:         vocab,
		Build:         []text.BuildOption{text.WithMinFreq(pf.minCount), text.WithTopK(pf.topK)},
		OutDir:        pf.outDir,
	})
	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		// Drop partial exports so a failed run leaves no records behind.
		for _, f := range files {
			os.Remove(f)
		}
		return runErr
	}

	w := cmd.ErrOrStderr()
	for _, s := range m.Splits {
		fmt.Fprintf(w, "%s\t%s\t%d examples\n", m.Dataset, s.Name, s.Rows)
	}
	fmt.Fprintf(w, "vocabulary: %d tokens (run %s)\n", m.VocabSize, m.RunID)
	return nil
}

// openSinks builds the selected sinks and returns the local files they
// write.
func (a *app) openSinks(cmd *cobra.Command, pf processFlags) (sink.Sink, []string, error) {
	var (
		sinks []sink.Sink
		files []string
	)
	fail := func(err error) (sink.Sink, []string, error) {
		for _, s := range sinks {
			s.Close()
		}
		for _, f := range files {
			os.Remove(f)
		}
		return nil, nil, err
	}
	for _, kind := range pf.sinks {
		switch kind {
		case "jsonl":
			path := pf.jsonlPath
			if path == "" {
				path = filepath.Join(pf.outDir, "examples.jsonl")
			}
			jopts := []jsonl.Option{jsonl.WithTruncate()}
			if pf.maxSize > 0 {
				jopts = append(jopts, jsonl.WithMaxSize(pf.maxSize))
			}
			s, err := jsonl.New(path, jopts...)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
			files = append(files, path)
		case "stdout":
			sinks = append(sinks, stdout.New(cmd.OutOrStdout(), pf.pretty))
		case "postgres":
			if a.cfg.Export.DatabaseURL == "" {
				return fail(fmt.Errorf("postgres sink needs export.database_url or CORPORA_DATABASE_URL"))
			}
			s, err := postgres.Connect(cmd.Context(), a.cfg.Export.DatabaseURL, a.cfg.Export.Table)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "webhook":
			if pf.webhookURL == "" {
				return fail(fmt.Errorf("webhook sink needs --webhook-url"))
			}
			sinks = append(sinks, webhook.New(pf.webhookURL))
		default:
			return fail(fmt.Errorf("unknown sink %q", kind))
		}
	}
	switch len(sinks) {
	case 0:
		return nil, nil, fmt.Errorf("no sink selected")
	case 1:
		return sinks[0], files, nil
	}
	return multi.New(sinks...), files, nil
}
