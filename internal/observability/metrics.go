package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset build. Counters are per-process; with in-process ranks they
// aggregate naturally across the group.
type Metrics struct {
	UnitsProcessed prometheus.Counter
	UnitsSkipped   prometheus.Counter
	KeysGathered   prometheus.Counter
	RowsGathered   prometheus.Counter
	JobRunning     prometheus.Gauge

	// Phase timing metrics.
	MapPhaseDuration    prometheus.Histogram
	GatherPhaseDuration prometheus.Histogram
	WriteDuration       prometheus.Histogram
}

// NewMetrics creates and registers all build metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UnitsProcessed,
		m.UnitsSkipped,
		m.KeysGathered,
		m.RowsGathered,
		m.JobRunning,
		m.MapPhaseDuration,
		m.GatherPhaseDuration,
		m.WriteDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UnitsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_ml",
			Name:      "units_processed_total",
			Help:      "Storm directories that contributed rows to the dataset.",
		}),
		UnitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_ml",
			Name:      "units_skipped_total",
			Help:      "Storm directories skipped for missing or unusable data.",
		}),
		KeysGathered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_ml",
			Name:      "keys_gathered_total",
			Help:      "Dataset keys assembled on the coordinator.",
		}),
		RowsGathered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_ml",
			Name:      "rows_gathered_total",
			Help:      "Total rows received by the coordinator across all keys.",
		}),
		JobRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_ml",
			Name:      "job_running",
			Help:      "1 while the build is active, 0 when finished.",
		}),
		MapPhaseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_ml",
			Name:      "map_phase_duration_seconds",
			Help:      "Per-rank duration of the local extraction phase.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
		GatherPhaseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_ml",
			Name:      "gather_phase_duration_seconds",
			Help:      "Duration of the collective per-key gather phase.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900},
		}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_ml",
			Name:      "write_duration_seconds",
			Help:      "Duration of the final dataset write on the coordinator.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300},
		}),
	}
}
