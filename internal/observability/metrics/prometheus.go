// Package metrics provides Prometheus metrics for the clinical decision
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	TriageSubmissions     *prometheus.CounterVec
	TriageFallbacks       prometheus.Counter
	DrugVerifications     *prometheus.CounterVec
	DrugFallbacks         prometheus.Counter
	PrescriptionsCreated  prometheus.Counter
	ProcessingDuration    *prometheus.HistogramVec
	AlertsSent            prometheus.Counter
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		TriageSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_submissions_total",
			Help: "Total triage submissions by urgency category",
		}, []string{"category", "source"}),
		TriageFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_fallbacks_total",
			Help: "Triage assessments served by the rule-based fallback",
		}),
		DrugVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drug_verifications_total",
			Help: "Total drug verifications by status",
		}, []string{"status", "source"}),
		DrugFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drug_fallbacks_total",
			Help: "Drug verifications served by the rule-based fallback",
		}),
		PrescriptionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prescriptions_created_total",
			Help: "Total prescriptions issued",
		}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decision_processing_duration_seconds",
			Help:    "Decision request processing duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "urgent_alerts_sent_total",
			Help: "On-call alerts sent for urgent triage decisions",
		}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.TriageSubmissions,
		m.TriageFallbacks,
		m.DrugVerifications,
		m.DrugFallbacks,
		m.PrescriptionsCreated,
		m.ProcessingDuration,
		m.AlertsSent,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
