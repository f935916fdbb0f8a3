package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slicer_runs_total",
		Help: "Total number of slicing runs by outcome.",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slicer_run_seconds",
		Help:    "Time spent on a complete slicing run.",
		Buckets: prometheus.DefBuckets,
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slicer_stage_seconds",
		Help:    "Time spent in one stage of a slicing run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	SlicesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slicer_slices_total",
		Help: "Total number of service slices produced.",
	})

	SliceDeclarations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slicer_slice_declarations",
		Help:    "Number of declarations in a produced slice, the service included.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	GraphDeclarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slicer_graph_declarations",
		Help: "Number of top-level declarations of the last sliced program.",
	})

	GraphCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slicer_graph_cycles",
		Help: "Number of reference cycles found in the last sliced program.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slicer_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RemoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slicer_remote_requests_total",
		Help: "Total number of remote tool calls by outcome.",
	}, []string{"outcome"})
)
