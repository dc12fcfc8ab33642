// Package metrics exposes Prometheus collectors for the assistant core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MemorySelections counts memory selection requests per company.
	MemorySelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bokpilot",
		Subsystem: "memory",
		Name:      "selections_total",
		Help:      "Number of memory selection requests.",
	}, []string{"company_id"})

	// PlanDecisions counts submitted plan decisions by decision and outcome.
	PlanDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bokpilot",
		Subsystem: "plan",
		Name:      "decisions_total",
		Help:      "Number of submitted plan decisions.",
	}, []string{"decision", "status"})

	// ActionExecutions counts executed actions by type and result.
	ActionExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bokpilot",
		Subsystem: "plan",
		Name:      "action_executions_total",
		Help:      "Number of executed plan actions.",
	}, []string{"action_type", "result"})

	// PlanExecutionDuration observes end-to-end plan execution time.
	PlanExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bokpilot",
		Subsystem: "plan",
		Name:      "execution_duration_seconds",
		Help:      "End-to-end duration of plan execution.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
