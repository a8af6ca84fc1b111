// Package metrics exposes Prometheus instrumentation for assessments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kamilpajak/heartrisk/internal/submission"
	"github.com/kamilpajak/heartrisk/pkg/assessment"
)

// Metrics holds Prometheus metrics for the assessment workflow.
type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	DiscardedTotal     prometheus.Counter
	RejectedTotal      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
}

// New registers and returns assessment metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartrisk_submissions_total",
			Help: "Resolved submissions by status and failure kind.",
		}, []string{"status", "failure"}),
		SubmissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heartrisk_submission_duration_seconds",
			Help:    "Round trip time of prediction requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"status"}),
		DiscardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartrisk_responses_discarded_total",
			Help: "Responses dropped because their form was closed.",
		}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartrisk_submissions_rejected_total",
			Help: "Submit requests refused before reaching the service, by reason.",
		}, []string{"reason"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartrisk_validation_failures_total",
			Help: "Field edits that failed validation, by field and kind.",
		}, []string{"field", "kind"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heartrisk_sessions_active",
			Help: "Open form sessions.",
		}),
	}

	reg.MustRegister(
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.DiscardedTotal,
		m.RejectedTotal,
		m.ValidationFailures,
		m.SessionsActive,
	)

	return m
}

// Hooks returns controller hooks that record submission outcomes.
func (m *Metrics) Hooks() submission.Hooks {
	return submission.Hooks{
		OnComplete: func(status submission.Status, failure submission.FailureKind, d time.Duration) {
			m.SubmissionsTotal.WithLabelValues(string(status), string(failure)).Inc()
			m.SubmissionDuration.WithLabelValues(string(status)).Observe(d.Seconds())
		},
		OnDiscard: func() {
			m.DiscardedTotal.Inc()
		},
	}
}

// ObserveValidation counts a failed field edit. A nil error is ignored.
func (m *Metrics) ObserveValidation(err *assessment.ValidationError) {
	if err == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(err.Key, string(err.Kind)).Inc()
}

// Reject counts a submit request refused locally.
func (m *Metrics) Reject(reason string) {
	m.RejectedTotal.WithLabelValues(reason).Inc()
}
