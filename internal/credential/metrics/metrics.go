package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the credential lifecycle.
type Metrics struct {
	CredentialsIssued    prometheus.Counter
	CredentialsMinted    prometheus.Counter
	CredentialsRevoked   prometheus.Counter
	AnchorAttempts       *prometheus.CounterVec
	AnchorRetrySweeps    prometheus.Counter
	LedgerRevokeFailures prometheus.Counter
	IssuanceRetries      prometheus.Histogram
	IssuanceLatency      prometheus.Histogram
}

// New registers and returns lifecycle metrics collectors.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_credentials_issued_total",
			Help: "Total number of credentials issued (persisted locally)",
		}),
		CredentialsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_credentials_minted_total",
			Help: "Total number of credentials anchored on the ledger",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		AnchorAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_anchor_attempts_total",
			Help: "Total anchor attempts, labeled by outcome",
		}, []string{"outcome"}),
		AnchorRetrySweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_anchor_retry_sweeps_total",
			Help: "Total sweeps performed by the deferred anchoring worker",
		}),
		LedgerRevokeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_ledger_revoke_failures_total",
			Help: "Ledger-side revoke failures tolerated during local revocation",
		}),
		IssuanceRetries: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_issuance_retries",
			Help:    "Distribution of persistence attempts per issuance",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		IssuanceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_issuance_latency_seconds",
			Help:    "Latency of issuance operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveAnchorOutcome(outcome string) {
	m.AnchorAttempts.WithLabelValues(outcome).Inc()
}
