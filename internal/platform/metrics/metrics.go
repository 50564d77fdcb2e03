package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the issuance and
// verification paths.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	AnchorResults      *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	BulkJobs           *prometheus.CounterVec
	LedgerCallDuration prometheus.Histogram
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credverse_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credverse_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		AnchorResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credverse_anchor_results_total",
			Help: "Ledger anchor attempts by outcome",
		}, []string{"outcome"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credverse_verifications_total",
			Help: "Verification checks by result",
		}, []string{"result"}),
		BulkJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credverse_bulk_jobs_total",
			Help: "Bulk issuance jobs by final status",
		}, []string{"status"}),
		LedgerCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credverse_ledger_call_duration_seconds",
			Help:    "Duration of ledger backend calls",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 90},
		}),
	}
}

// IncrementIssued records a successful credential issuance.
func (m *Metrics) IncrementIssued() {
	m.CredentialsIssued.Inc()
}

// IncrementRevoked records a credential revocation.
func (m *Metrics) IncrementRevoked() {
	m.CredentialsRevoked.Inc()
}

// ObserveAnchor records the outcome of a ledger anchor attempt.
func (m *Metrics) ObserveAnchor(outcome string) {
	m.AnchorResults.WithLabelValues(outcome).Inc()
}

// ObserveVerification records a verification result label.
func (m *Metrics) ObserveVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

// ObserveBulkJob records a bulk job reaching a terminal status.
func (m *Metrics) ObserveBulkJob(status string) {
	m.BulkJobs.WithLabelValues(status).Inc()
}

// ObserveLedgerCall records the duration of a ledger backend call.
// Call with time.Now() captured at the start of the call.
func (m *Metrics) ObserveLedgerCall(start time.Time) {
	m.LedgerCallDuration.Observe(time.Since(start).Seconds())
}
