package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the issuance and verification
// pipeline. Registered once at startup and injected where needed.
type Metrics struct {
	DocumentsIssued  *prometheus.CounterVec
	DocumentsRevoked *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec

	RegistryAttempts     *prometheus.CounterVec
	RegistryCallDuration *prometheus.HistogramVec
	CircuitTransitions   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates metrics on a caller-supplied registerer. Tests use a fresh
// registry to avoid duplicate registration across cases.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_documents_issued_total",
			Help: "Documents issued, by document type.",
		}, []string{"document_type"}),
		DocumentsRevoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_documents_revoked_total",
			Help: "Documents revoked, by document type.",
		}, []string{"document_type"}),
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_verification_verdicts_total",
			Help: "Verification verdicts, by outcome.",
		}, []string{"verdict"}),
		RegistryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_registry_attempts_total",
			Help: "Registry call attempts, by registry and outcome.",
		}, []string{"registry", "outcome"}),
		RegistryCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veridoc_registry_call_duration_seconds",
			Help:    "Latency of individual registry call attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"registry"}),
		CircuitTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_circuit_transitions_total",
			Help: "Circuit breaker transitions, by registry and target state.",
		}, []string{"registry", "state"}),
	}
}

// ObserveRegistryCall records one registry attempt with its outcome and latency.
func (m *Metrics) ObserveRegistryCall(registry, outcome string, elapsed time.Duration) {
	m.RegistryAttempts.WithLabelValues(registry, outcome).Inc()
	m.RegistryCallDuration.WithLabelValues(registry).Observe(elapsed.Seconds())
}
