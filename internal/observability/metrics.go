package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ocean_regrid"

// Metrics holds the Prometheus counters and histograms of the regrid pipeline.
type Metrics struct {
	FilesProcessed    *prometheus.CounterVec // labels: backend={netcdf,native,none}
	Units             *prometheus.CounterVec // labels: outcome={ok,failed,skipped}, kind={decode,schema,data,...}
	ArtifactsProduced prometheus.Counter
	UnitDuration      prometheus.Histogram
	BatchDuration     prometheus.Histogram
	InspectCache      *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.Units,
		m.ArtifactsProduced,
		m.UnitDuration,
		m.BatchDuration,
		m.InspectCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Uploaded files processed, by decoding backend.",
		}, []string{"backend"}),
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Regrid units (file, variable) by outcome and error kind.",
		}, []string{"outcome", "kind"}),
		ArtifactsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_produced_total",
			Help:      "Result tables written.",
		}),
		UnitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Duration of one extract-interpolate-encode unit.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete regrid batch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		InspectCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspect_cache_total",
			Help:      "Inspect cache lookups by result.",
		}, []string{"result"}),
	}
}
