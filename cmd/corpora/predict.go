package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/corpora/internal/infer"
	"github.com/crimson-sun/corpora/internal/process"
	"github.com/crimson-sun/corpora/internal/registry"
	"github.com/crimson-sun/corpora/internal/text"
)

type predictFlags struct {
	model       string
	vocab       string
	tokenizer   string
	split       string
	batch       int
	maxLen      int
	labelOffset int
	mirror      string
	checksum    string
}

func newPredictCmd(a *app) *cobra.Command {
	var pf predictFlags
	cmd := &cobra.Command{
		Use:   "predict <dataset>",
		Short: "Score a split with an ONNX classifier and report accuracy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPredict(cmd, args[0], pf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&pf.model, "model", "", "ONNX classifier taking input_ids (required)")
	f.StringVar(&pf.vocab, "vocab", "", "vocabulary the model was trained with (required)")
	f.StringVar(&pf.tokenizer, "tokenizer", "basic", "tokenizer the vocabulary was built with")
	f.StringVar(&pf.split, "split", "test", "split to score")
	f.IntVar(&pf.batch, "batch", 32, "examples per inference call")
	f.IntVar(&pf.maxLen, "max-len", 256, "truncate sequences to this many tokens")
	f.IntVar(&pf.labelOffset, "label-offset", 0, "added to the predicted class before comparing with the dataset label")
	mirrorFlags(cmd, &pf.mirror, &pf.checksum)
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("vocab")
	return cmd
}

func (a *app) runPredict(cmd *cobra.Command, name string, pf predictFlags) error {
	if pf.batch <= 0 || pf.maxLen <= 0 {
		return fmt.Errorf("--batch and --max-len must be positive")
	}
	load, err := registry.Loader(name)
	if err != nil {
		return err
	}
	proc, err := registry.Processor(name)
	if err != nil {
		return err
	}
	tok, err := text.ByName(pf.tokenizer)
	if err != nil {
		return err
	}
	vocab, err := text.LoadVocab(pf.vocab)
	if err != nil {
		return err
	}

	opts, err := a.loadOptions([]string{pf.split})
	if err != nil {
		return err
	}
	opts.URL, opts.Checksum = pf.mirror, pf.checksum
	splits, err := load(cmd.Context(), opts)
	if err != nil {
		return err
	}
	ds, _, err := proc(splits[0], process.Options{Tokenizer: tok, Vocab: vocab})
	if err != nil {
		return err
	}

	clf, err := infer.Open(pf.model, a.cfg.Infer.Library)
	if err != nil {
		return err
	}
	defer clf.Close()

	var total, correct int
	for b := range process.Batches(ds, pf.batch, pf.maxLen, vocab.PadID()) {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		preds, err := clf.Predict(b)
		if err != nil {
			return err
		}
		for i, p := range preds {
			if int64(p+pf.labelOffset) == b.Labels[i] {
				correct++
			}
		}
		total += len(preds)
	}
	slog.Info("prediction complete", "dataset", ds.Name(), "split", ds.Split(), "examples", total)

	acc := 0.0
	if total > 0 {
		acc = float64(correct) / float64(total)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d/%d correct\taccuracy %.4f\n", ds.Name(), ds.Split(), correct, total, acc)
	return nil
}
