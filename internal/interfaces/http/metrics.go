package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds the Prometheus metrics for the analysis service.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RequestDuration  *prometheus.HistogramVec
	AnalysisDuration prometheus.Histogram
	AnalysisRuns     *prometheus.CounterVec
	CacheHitRatio    prometheus.Gauge
}

// NewMetricsRegistry builds all metric collectors on a private registry
// so tests can run multiple servers without collisions.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		registry: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pctrun_http_request_duration_seconds",
				Help:    "HTTP request duration by path and status",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"path", "status"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pctrun_analysis_duration_seconds",
				Help:    "Duration of analysis runs",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		AnalysisRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pctrun_analysis_runs_total",
				Help: "Analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pctrun_cache_hit_ratio",
				Help: "Current cache hit ratio (0.0 to 1.0)",
			},
		),
	}
}

// Register attaches all collectors.
func (m *MetricsRegistry) Register() error {
	collectors := []prometheus.Collector{
		m.RequestDuration,
		m.AnalysisDuration,
		m.AnalysisRuns,
		m.CacheHitRatio,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics endpoint.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the registry for tests.
func (m *MetricsRegistry) Gather() prometheus.Gatherer { return m.registry }

// ObserveRequest records one HTTP request.
func (m *MetricsRegistry) ObserveRequest(path string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveAnalysis records one analysis run.
func (m *MetricsRegistry) ObserveAnalysis(outcome string, d time.Duration) {
	m.AnalysisRuns.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

// SetCacheHitRatio publishes the current cache effectiveness.
func (m *MetricsRegistry) SetCacheHitRatio(ratio float64) {
	m.CacheHitRatio.Set(ratio)
}
