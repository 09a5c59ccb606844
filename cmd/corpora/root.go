package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/corpora/internal/cache"
	"github.com/crimson-sun/corpora/internal/config"
	"github.com/crimson-sun/corpora/internal/dataset"
	"github.com/crimson-sun/corpora/internal/fetch"
	"github.com/crimson-sun/corpora/internal/logging"
	"github.com/crimson-sun/corpora/internal/metrics"
)

// app carries state shared by every subcommand.
type app struct {
	cfg        config.Config
	configPath string
	stderr     io.Writer

	// Persistent flag values, applied over cfg when set.
	root        string
	logLevel    string
	logJSON     bool
	proxy       string
	quiet       bool
	metricsFile string
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "corpora",
		Short:         "Download, cache and tokenize text classification datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.cfg.MetricsFile == "" {
				return nil
			}
			return metrics.WriteFile(a.cfg.MetricsFile)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.root, "root", "", "cache root (default ~/.corpora)")
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	f.StringVar(&a.proxy, "proxy", "", "proxy URL for downloads")
	f.BoolVar(&a.quiet, "quiet", false, "hide the download progress bar")
	f.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		newListCmd(a),
		newFetchCmd(a),
		newProcessCmd(a),
		newPredictCmd(a),
	)
	return cmd
}

// setup loads configuration, lets explicit flags override it and installs
// the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		a.cfg.Root = a.root
	}
	if flags.Changed("log-level") {
		a.cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		a.cfg.Log.JSON = a.logJSON
	}
	if flags.Changed("proxy") {
		a.cfg.Fetch.Proxy = a.proxy
	}
	if flags.Changed("quiet") {
		a.cfg.Fetch.Quiet = a.quiet
	}
	if flags.Changed("metrics-file") {
		a.cfg.MetricsFile = a.metricsFile
	}

	a.stderr = cmd.ErrOrStderr()
	logging.Init(a.stderr, a.cfg.Log.JSON, logging.ParseLevel(a.cfg.Log.Level))
	return nil
}

// loadOptions builds dataset load options from the resolved configuration.
func (a *app) loadOptions(splits []string) (dataset.LoadOptions, error) {
	var hopts []fetch.Option
	if a.cfg.Fetch.Timeout > 0 {
		hopts = append(hopts, fetch.WithTimeout(a.cfg.Fetch.Timeout))
	}
	if a.cfg.Fetch.Retries > 0 {
		hopts = append(hopts, fetch.WithRetries(a.cfg.Fetch.Retries))
	}
	if a.cfg.Fetch.Proxy != "" {
		u, err := url.Parse(a.cfg.Fetch.Proxy)
		if err != nil {
			return dataset.LoadOptions{}, fmt.Errorf("invalid proxy %q: %w", a.cfg.Fetch.Proxy, err)
		}
		hopts = append(hopts, fetch.WithProxy(u))
	}

	copts := []cache.Option{cache.WithLogger(slog.Default())}
	if !a.cfg.Fetch.Quiet {
		copts = append(copts, cache.WithProgress(a.stderr))
	}
	transports := fetch.Standard(fetch.NewHTTP(hopts...), a.cfg.Storage.Region, a.cfg.Storage.Endpoint)
	return dataset.LoadOptions{
		Root:     a.cfg.Root,
		Splits:   splits,
		Resolver: cache.New(transports, copts...),
	}, nil
}

// mirrorFlags adds --url/--checksum to cmd for loading from a mirror.
func mirrorFlags(cmd *cobra.Command, urlDst, sumDst *string) {
	cmd.Flags().StringVar(urlDst, "url", "", "download from this URL (http, https or s3) instead of the dataset origin")
	cmd.Flags().StringVar(sumDst, "checksum", "", "expected hex MD5 or SHA-256 of the --url archive")
}
