package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapiexport_build_info",
			Help: "Build information of the exporter",
		},
		[]string{"version", "commit", "date"},
	)

	PagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapiexport_pages_fetched_total",
			Help: "Total number of remote pages fetched",
		},
		[]string{"status"},
	)

	PageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swapiexport_page_fetch_duration_seconds",
			Help:    "Duration of remote page requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
	)

	RecordsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapiexport_records_fetched_total",
			Help: "Total number of records fetched per entity type",
		},
		[]string{"entity"},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapiexport_fetch_errors_total",
			Help: "Total number of failed entity fetches",
		},
		[]string{"entity", "kind"},
	)

	ExportTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapiexport_export_total",
			Help: "Total number of exports by destination type",
		},
		[]string{"destination", "status"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapiexport_export_duration_seconds",
			Help:    "Duration of exports",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"destination"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapiexport_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swapiexport_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~410s
		},
	)
)
