package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgate_validation_total",
			Help: "SQL validation decisions by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	clarificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlgate_clarifications_total",
			Help: "Schema-usage mismatches surfaced as clarifications.",
		},
	)
	planRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgate_plan_requests_total",
			Help: "Planner responses by plan kind.",
		},
		[]string{"kind"},
	)
	statementsExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgate_statements_executed_total",
			Help: "Statements handed to the executor, by statement kind.",
		},
		[]string{"kind"},
	)
	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlgate_execution_duration_seconds",
			Help:    "Statement batch execution latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(
		validationTotal,
		clarificationsTotal,
		planRequestsTotal,
		statementsExecutedTotal,
		executionDurationSeconds,
	)
}

func ObserveValidation(mode string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	validationTotal.WithLabelValues(mode, outcome).Inc()
}

func IncrementClarification() {
	clarificationsTotal.Inc()
}

func ObservePlan(kind string) {
	planRequestsTotal.WithLabelValues(kind).Inc()
}

func ObserveExecution(kinds []string, duration time.Duration) {
	for _, kind := range kinds {
		statementsExecutedTotal.WithLabelValues(kind).Inc()
	}
	executionDurationSeconds.Observe(duration.Seconds())
}
