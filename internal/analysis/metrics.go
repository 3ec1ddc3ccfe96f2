package analysis

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for analyses. A nil *Metrics records nothing.
type Metrics struct {
	AnalysesTotal  *prometheus.CounterVec
	PassesTotal    *prometheus.CounterVec
	FallbacksTotal *prometheus.CounterVec
	PassDuration   *prometheus.HistogramVec
	FlagsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers the analysis metrics on the default registry.
//
// Registration happens once per process; later calls return the same instance.
//
// Metrics:
//   - convoscan_analyses_total{outcome} - complete, ambiguous or rejected
//   - convoscan_passes_total{pass,provenance} - pass results by path
//   - convoscan_pass_fallbacks_total{pass,reason} - heuristic substitutions
//   - convoscan_pass_duration_seconds{pass} - model-backed pass latency
//   - convoscan_flags_total{polarity,source} - flags emitted
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			AnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convoscan_analyses_total",
					Help: "Total number of analyses by outcome",
				},
				[]string{"outcome"},
			),
			PassesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convoscan_passes_total",
					Help: "Total number of analysis passes by provenance",
				},
				[]string{"pass", "provenance"},
			),
			FallbacksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convoscan_pass_fallbacks_total",
					Help: "Total number of heuristic substitutions by reason",
				},
				[]string{"pass", "reason"},
			),
			PassDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "convoscan_pass_duration_seconds",
					Help:    "Duration of model-backed analysis passes in seconds",
					Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"pass"},
			),
			FlagsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convoscan_flags_total",
					Help: "Total number of flags emitted",
				},
				[]string{"polarity", "source"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) countAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) countPass(pass string, p Provenance) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(pass, string(p)).Inc()
}

func (m *Metrics) countFallback(pass, reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(pass, reason).Inc()
}

func (m *Metrics) observeDuration(pass string, d time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func (m *Metrics) countFlags(fs []flags.Flag) {
	if m == nil {
		return
	}
	for _, f := range fs {
		m.FlagsTotal.WithLabelValues(string(f.Polarity), string(f.Source)).Inc()
	}
}
