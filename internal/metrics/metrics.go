// Package metrics holds the Prometheus collectors shared by the pipeline,
// the search providers and the scrape strategies.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeHit   = "hit"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Stage status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "status"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_search_provider_calls_total",
			Help: "Search provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	StrategyCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_scrape_strategy_calls_total",
			Help: "Scrape strategy attempts by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	RunRetries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insight_run_retries",
			Help:    "Targeted-search retries per completed run",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_runs_total",
			Help: "Pipeline runs by final status",
		},
		[]string{"status"},
	)
)

// ObserveStage records one stage execution.
func ObserveStage(stage, status string, d time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// RecordProvider counts one provider call. err takes precedence over n.
func RecordProvider(provider string, n int, err error) {
	ProviderCalls.WithLabelValues(provider, outcome(n, err)).Inc()
}

// RecordStrategy counts one scrape strategy attempt.
func RecordStrategy(strategy string, n int, err error) {
	StrategyCalls.WithLabelValues(strategy, outcome(n, err)).Inc()
}

// RecordRun counts a finished run and, when it completed, its retries.
func RecordRun(status string, retries int) {
	RunsTotal.WithLabelValues(status).Inc()
	if status == "done" {
		RunRetries.Observe(float64(retries))
	}
}

func outcome(n int, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case n == 0:
		return OutcomeEmpty
	default:
		return OutcomeHit
	}
}
