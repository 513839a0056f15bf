package scraper

import (
	"sync"
	"time"

	"job-matcher-go/internal/status"
)

// Stats aggregates outcomes across runs for periodic reporting.
type Stats struct {
	mu        sync.RWMutex
	runs      map[status.State]int64
	totals    status.Counters
	providers map[string]ProviderStats
	lastRun   time.Duration
}

// ProviderStats tracks performance per provider
type ProviderStats struct {
	Calls        int64         `json:"calls"`
	Errors       int64         `json:"errors"`
	Listings     int64         `json:"listings"`
	ResponseTime time.Duration `json:"response_time"`
	LastCalled   time.Time     `json:"last_called"`
	LastError    string        `json:"last_error,omitempty"`
}

// StatsSnapshot is a copy of Stats safe to read without locking.
type StatsSnapshot struct {
	Runs            map[status.State]int64   `json:"runs"`
	Totals          status.Counters          `json:"totals"`
	Providers       map[string]ProviderStats `json:"providers"`
	LastRunDuration time.Duration            `json:"last_run_duration"`
}

// NewStats creates empty stats.
func NewStats() *Stats {
	return &Stats{
		runs:      make(map[status.State]int64),
		providers: make(map[string]ProviderStats),
	}
}

// RecordProviderCall records the outcome of one guarded provider search.
func (s *Stats) RecordProviderCall(provider string, listings int, err error, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.providers[provider]
	ps.Calls++
	ps.ResponseTime = took
	ps.LastCalled = time.Now()
	if err != nil {
		ps.Errors++
		ps.LastError = err.Error()
	} else {
		ps.Listings += int64(listings)
	}
	s.providers[provider] = ps
}

// RecordRun adds a finished run to the totals.
func (s *Stats) RecordRun(run status.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.State]++
	s.totals.Found += run.Counters.Found
	s.totals.New += run.Counters.New
	s.totals.Duplicates += run.Counters.Duplicates
	s.totals.SkippedIrrelevant += run.Counters.SkippedIrrelevant
	s.totals.ProviderErrors += run.Counters.ProviderErrors
	s.totals.Saved += run.Counters.Saved
	if run.FinishedAt != nil {
		s.lastRun = run.FinishedAt.Sub(run.StartedAt)
	}
}

// Snapshot returns a copy of the current stats.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make(map[status.State]int64, len(s.runs))
	for k, v := range s.runs {
		runs[k] = v
	}
	providers := make(map[string]ProviderStats, len(s.providers))
	for k, v := range s.providers {
		providers[k] = v
	}
	return StatsSnapshot{
		Runs:            runs,
		Totals:          s.totals,
		Providers:       providers,
		LastRunDuration: s.lastRun,
	}
}
