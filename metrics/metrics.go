// Package metrics exposes Prometheus counters for run observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TestsStarted counts test executions dispatched by the orchestrator.
	TestsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "tests_started_total",
		Help:      "Number of test executions started.",
	})

	// TestsCompleted counts finished tests by terminal status.
	TestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "tests_completed_total",
		Help:      "Number of test executions finished, by terminal status.",
	}, []string{"status"})

	// TurnsExecuted counts conversation turns generated across all tests.
	TurnsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "turns_executed_total",
		Help:      "Number of conversation turns generated.",
	})

	// ProviderRetries counts transient provider failures that were retried.
	ProviderRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "provider_retries_total",
		Help:      "Number of retried transient LLM provider failures.",
	})
)
