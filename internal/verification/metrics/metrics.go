package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for verification operations.
type Metrics struct {
	Verifications     *prometheus.CounterVec
	LedgerCrossChecks *prometheus.CounterVec
	BatchSize         prometheus.Histogram
	VerifyLatency     prometheus.Histogram
}

// New registers and returns verification metrics collectors.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_verifications_total",
			Help: "Total verification requests, labeled by entry point and verdict",
		}, []string{"via", "verdict"}),
		LedgerCrossChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_ledger_cross_checks_total",
			Help: "Ledger cross-check attempts during verification, labeled by outcome",
		}, []string{"outcome"}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_verification_batch_size",
			Help:    "Distribution of batch verification sizes",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),
		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_verification_latency_seconds",
			Help:    "Latency of single verification operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveVerdict records a verification outcome.
func (m *Metrics) ObserveVerdict(via string, valid bool) {
	verdict := "invalid"
	if valid {
		verdict = "valid"
	}
	m.Verifications.WithLabelValues(via, verdict).Inc()
}
