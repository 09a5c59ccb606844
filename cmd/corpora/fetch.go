package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/corpora/internal/registry"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		splits   []string
		mirror   string
		checksum string
	)
	cmd := &cobra.Command{
		Use:   "fetch <dataset>",
		Short: "Download, verify and extract a dataset, then report split sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			load, err := registry.Loader(args[0])
			if err != nil {
				return err
			}
			opts, err := a.loadOptions(splits)
			if err != nil {
				return err
			}
			opts.URL, opts.Checksum = mirror, checksum
			got, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, ds := range got {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", ds.Name(), ds.Split(), ds.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&splits, "split", nil, "splits to load, in order (default all)")
	mirrorFlags(cmd, &mirror, &checksum)
	return cmd
}
