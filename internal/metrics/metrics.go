// Package metrics exposes Prometheus collectors for search runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts finished runs by terminal state.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatcher_runs_total",
			Help: "Finished search runs by terminal state",
		},
		[]string{"state"},
	)

	// ActiveRuns is the number of runs currently executing.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmatcher_active_runs",
			Help: "Search runs currently executing",
		},
	)

	// ProviderCalls counts provider searches by outcome (ok, error, rejected).
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatcher_provider_calls_total",
			Help: "Provider search calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks provider search latency.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobmatcher_provider_duration_seconds",
			Help:    "Provider search latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Candidates counts listings by pipeline outcome.
	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatcher_candidates_total",
			Help: "Candidate listings by outcome (found, new, duplicate, irrelevant, saved, failed)",
		},
		[]string{"outcome"},
	)

	// ScorerLatency tracks scorer call latency by stage.
	ScorerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobmatcher_scorer_duration_seconds",
			Help:    "Scorer call latency in seconds by stage (relevance, affinity)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

// Outcome labels for Candidates.
const (
	OutcomeFound      = "found"
	OutcomeNew        = "new"
	OutcomeDuplicate  = "duplicate"
	OutcomeIrrelevant = "irrelevant"
	OutcomeSaved      = "saved"
	OutcomeFailed     = "failed"
)

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// NewServer serves /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
