package scraper

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"job-matcher-go/internal/metrics"
	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
)

// StopSource answers whether a subject was asked to stop.
type StopSource interface {
	IsStopRequested(ctx context.Context, subjectID string) bool
}

// SearchOutcome is what the executor collected across all queries.
type SearchOutcome struct {
	Candidates []models.Candidate
	Stopped    bool
}

// Executor runs planned queries against the routed providers.
type Executor struct {
	registry *sources.Registry
	stops    StopSource
	logger   *zap.Logger
}

// NewExecutor creates a search executor.
func NewExecutor(registry *sources.Registry, stops StopSource, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, stops: stops, logger: logger.Named("executor")}
}

// Execute processes queries in order. For each query the compatible providers
// are searched concurrently; a failing provider is counted and logged but
// never aborts the query or the run. If a stop is observed before a query,
// everything collected so far is discarded.
func (e *Executor) Execute(ctx context.Context, subjectID string, profile models.SearchProfile, queries []models.SearchQuery, tracker *status.Tracker) SearchOutcome {
	var all []models.Candidate

	for i, q := range queries {
		if stopRequested(ctx, e.stops, subjectID) {
			tracker.Logf("Stop requested, abandoning search before query %d/%d", i+1, len(queries))
			return SearchOutcome{Stopped: true}
		}

		tracker.SetProgress(i+1, q.Label())
		names := e.registry.Resolve(q.Domain)
		if len(names) == 0 {
			tracker.Logf("No provider accepts domain %q, skipping %s", q.Domain, q.Label())
			e.logger.Warn("query dropped, no compatible provider",
				zap.String("subject_id", subjectID),
				zap.String("domain", q.Domain),
				zap.String("query", q.QueryText))
			continue
		}

		tracker.Logf("Query %d/%d %s -> %v", i+1, len(queries), q.Label(), names)
		req := sources.BuildRequest(q, profile)
		all = append(all, e.fanOut(ctx, names, req, tracker)...)
	}

	return SearchOutcome{Candidates: all}
}

// fanOut searches every named provider concurrently and merges the results
// in provider order.
func (e *Executor) fanOut(ctx context.Context, names []string, req sources.SearchRequest, tracker *status.Tracker) []models.Candidate {
	results := make([][]models.Candidate, len(names))

	var g errgroup.Group
	for idx, name := range names {
		g.Go(func() error {
			provider, err := e.registry.Get(name)
			if err == nil {
				results[idx], err = provider.Search(ctx, req)
			}
			if err != nil {
				results[idx] = nil
				if ctx.Err() != nil {
					// Cancelled run, not a provider fault.
					return nil
				}
				perr := &sources.ProviderError{Provider: name, Query: req.Query, Err: err}
				tracker.Add(status.ProviderErrors, 1)
				tracker.Logf("Provider %s failed for %q: %v", name, req.Query, err)
				e.logger.Warn("provider search failed", zap.Error(perr))
				return nil
			}

			n := len(results[idx])
			tracker.Add(status.Found, n)
			metrics.Candidates.WithLabelValues(metrics.OutcomeFound).Add(float64(n))
			tracker.Logf("%s returned %d listings for %q", name, n, req.Query)
			return nil
		})
	}
	// Goroutines never return errors; failures are isolated above.
	_ = g.Wait()

	var merged []models.Candidate
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

func stopRequested(ctx context.Context, stops StopSource, subjectID string) bool {
	if ctx.Err() != nil {
		return true
	}
	return stops != nil && stops.IsStopRequested(ctx, subjectID)
}
