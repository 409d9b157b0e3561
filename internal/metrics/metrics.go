package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks operation attempts per transport and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_attempts_total",
			Help: "Total number of operation attempts",
		},
		[]string{"transport", "kind", "outcome"},
	)

	// AttemptLatency tracks attempt latency per transport
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_attempt_latency_seconds",
			Help:    "Operation attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "kind"},
	)

	// BreakerTransitionsTotal tracks circuit breaker state transitions
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"key", "to"},
	)

	// BreakerState exposes the current breaker state (0=closed, 1=half-open, 2=open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courier_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"key"},
	)

	// DeadLetterSize tracks the number of entries in the dead-letter queue
	DeadLetterSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_dead_letter_size",
			Help: "Current number of dead-letter entries",
		},
	)

	// ProbeStatus exposes the latest probe status (0=healthy, 1=degraded, 2=unhealthy, 3=unknown)
	ProbeStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courier_probe_status",
			Help: "Latest health probe status (0=healthy, 1=degraded, 2=unhealthy, 3=unknown)",
		},
		[]string{"probe"},
	)

	// ProbeDuration tracks health probe duration
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"probe"},
	)

	// SelectionsTotal tracks transport selection decisions
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_selections_total",
			Help: "Total number of transport selection decisions",
		},
		[]string{"kind", "transport"},
	)
)
