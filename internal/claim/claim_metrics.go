package claim

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the claims engine.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	CoercedVerdicts    prometheus.Counter
	ClassifierDuration prometheus.Histogram
	ClassifierFailures prometheus.Counter
	TransitionsTotal   *prometheus.CounterVec
	GateChecksTotal    *prometheus.CounterVec
	EvidenceUploads    *prometheus.CounterVec
	NotifyFailures     prometheus.Counter
	DecisionDuration   prometheus.Histogram
}

// NewMetrics registers and returns claims engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_decisions_total",
			Help: "Automated triage decisions by verdict.",
		}, []string{"verdict"}),
		CoercedVerdicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimflow_coerced_verdicts_total",
			Help: "Classifier verdicts outside the contract coerced to referred.",
		}),
		ClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimflow_classifier_duration_seconds",
			Help:    "Duration of classifier calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		ClassifierFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimflow_classifier_failures_total",
			Help: "Classifier calls that failed (claim left retryable).",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_transitions_total",
			Help: "Successful claim status transitions by edge.",
		}, []string{"from", "to"}),
		GateChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_evidence_gate_checks_total",
			Help: "Evidence gate outcomes per upload.",
		}, []string{"outcome"}),
		EvidenceUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_evidence_uploads_total",
			Help: "Evidence uploads by document type and result.",
		}, []string{"type", "result"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimflow_notify_failures_total",
			Help: "Decision notifications that failed to dispatch.",
		}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimflow_decision_duration_seconds",
			Help:    "End-to-end automated decisioning duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.CoercedVerdicts,
		m.ClassifierDuration,
		m.ClassifierFailures,
		m.TransitionsTotal,
		m.GateChecksTotal,
		m.EvidenceUploads,
		m.NotifyFailures,
		m.DecisionDuration,
	)

	return m
}
