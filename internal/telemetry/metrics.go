package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors updated during a run. Create one per
// registry with NewMetrics.
type Metrics struct {
	MembersFolded        prometheus.Counter
	Decompositions       prometheus.Counter
	DecompositionSeconds prometheus.Histogram
	EnsembleSize         prometheus.Gauge
	Runs                 *prometheus.CounterVec
}

// NewMetrics registers the ensemble collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MembersFolded: f.NewCounter(prometheus.CounterOpts{
			Name: "esse_members_folded_total",
			Help: "Ensemble members folded into the uncertainty covariance matrix.",
		}),
		Decompositions: f.NewCounter(prometheus.CounterOpts{
			Name: "esse_decompositions_total",
			Help: "Decomposition oracle calls that returned a rank pair.",
		}),
		DecompositionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "esse_decomposition_duration_seconds",
			Help:    "Latency of decomposition oracle calls.",
			Buckets: prometheus.DefBuckets,
		}),
		EnsembleSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "esse_ensemble_size",
			Help: "Current ensemble size of the active run.",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esse_runs_total",
			Help: "Finished runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
	}
}

// ObserveDecomposition records one successful decomposition call.
func (m *Metrics) ObserveDecomposition(d time.Duration) {
	m.Decompositions.Inc()
	m.DecompositionSeconds.Observe(d.Seconds())
}

// RecordRun counts a finished run. Failed runs use outcome "failed".
func (m *Metrics) RecordRun(strategy, outcome string) {
	m.Runs.WithLabelValues(strategy, outcome).Inc()
}
