// Package metrics holds the Prometheus collectors shared by the pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registry every corpora collector is registered on.
// It is separate from the global default so tests and embedders control it.
var Registry = prometheus.NewRegistry()

var (
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpora_cache_hits_total",
			Help: "Count of resolves served from a checksum-valid cached file",
		},
		[]string{"file"},
	)

	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpora_downloads_total",
			Help: "Count of download attempts",
		},
		[]string{"scheme", "status"},
	)

	DownloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corpora_download_bytes_total",
			Help: "Bytes written to the cache by downloads",
		},
	)

	ChecksumFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corpora_checksum_failures_total",
			Help: "Count of downloads rejected for checksum mismatch",
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpora_extractions_total",
			Help: "Count of archive extractions by outcome",
		},
		[]string{"format", "result"},
	)

	RowsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corpora_rows_parsed_total",
			Help: "Rows read by the row parser",
		},
	)

	UnknownTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corpora_unknown_tokens_total",
			Help: "Tokens mapped to the unknown id during vocab lookup",
		},
	)

	RecordsExportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpora_records_exported_total",
			Help: "Processed records written to sinks",
		},
		[]string{"sink"},
	)
)

func init() {
	Registry.MustRegister(
		CacheHitsTotal,
		DownloadsTotal,
		DownloadBytesTotal,
		ChecksumFailuresTotal,
		ExtractionsTotal,
		RowsParsedTotal,
		UnknownTokensTotal,
		RecordsExportedTotal,
	)
}

// WriteFile writes the current metric values in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
