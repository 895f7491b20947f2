package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climatelens"

// Metrics holds the Prometheus counters and histograms for the story pipeline.
type Metrics struct {
	// Pipeline metrics.
	PipelineRuns     *prometheus.CounterVec   // labels: outcome={generated,fallback}
	PipelineRejected prometheus.Counter       // triggers rejected while a run was active
	StepDuration     *prometheus.HistogramVec // labels: step={location,conditions,generation}
	Fallbacks        *prometheus.CounterVec   // labels: phase={location,conditions,generation}
	PipelineRunning  prometheus.Gauge

	// Playback metrics.
	PlaybackStarts *prometheus.CounterVec // labels: language
	PlaybackErrors prometheus.Counter

	// Persistence metrics.
	StoriesSaved *prometheus.CounterVec // labels: outcome={success,error}

	gatherer prometheus.Gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_rejected_total",
			Help:      "Generate triggers rejected because a run was in flight.",
		}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Duration of each pipeline step.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"step"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_fallbacks_total",
			Help:      "Runs that ended with the local story, by the phase that failed.",
		}, []string{"phase"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in flight.",
		}),
		PlaybackStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_starts_total",
			Help:      "Utterances started by language.",
		}, []string{"language"}),
		PlaybackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Utterances that ended with a device error.",
		}),
		StoriesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_saved_total",
			Help:      "Story persistence attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRuns,
		m.PipelineRejected,
		m.StepDuration,
		m.Fallbacks,
		m.PipelineRunning,
		m.PlaybackStarts,
		m.PlaybackErrors,
		m.StoriesSaved,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// Handler serves the registry the metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
