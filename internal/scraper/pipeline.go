package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"job-matcher-go/internal/metrics"
	"job-matcher-go/internal/models"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

// DefaultAnalysisConcurrency caps simultaneous scorer calls per run.
const DefaultAnalysisConcurrency = 10

// Scorer judges listings against a profile in two stages.
type Scorer interface {
	CheckRelevance(ctx context.Context, title, roleDescription string) (models.RelevanceVerdict, error)
	ScoreAffinity(ctx context.Context, meta models.AnalysisMetadata, profile models.SearchProfile) (models.AffinityVerdict, error)
}

// AnalysisResult tallies the pipeline's outcomes.
type AnalysisResult struct {
	Saved      int
	Irrelevant int
	Duplicates int
	Failed     int
	Stopped    bool
}

// Pipeline scores unique candidates under a concurrency cap and persists the
// accepted ones.
type Pipeline struct {
	scorer Scorer
	store  storage.JobStore
	stops  StopSource
	limit  int
	logger *zap.Logger
}

// NewPipeline creates an analysis pipeline. A limit below one uses the default.
func NewPipeline(scorer Scorer, store storage.JobStore, stops StopSource, limit int, logger *zap.Logger) *Pipeline {
	if limit < 1 {
		limit = DefaultAnalysisConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		scorer: scorer,
		store:  store,
		stops:  stops,
		limit:  limit,
		logger: logger.Named("pipeline"),
	}
}

type unitTally struct {
	saved, irrelevant, duplicates, failed atomic.Int64
	stopped                               atomic.Bool
}

// Analyze processes all candidates and waits for every started unit. Once a
// stop is observed no further unit starts; units already past the stop check
// run to completion. A cancelled ctx is a hard stop: in-flight units return
// without persisting.
func (p *Pipeline) Analyze(ctx context.Context, subjectID string, profile models.SearchProfile, candidates []models.Candidate, tracker *status.Tracker) AnalysisResult {
	sem := semaphore.NewWeighted(int64(p.limit))
	var wg sync.WaitGroup
	var tally unitTally

	for i, c := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			tally.stopped.Store(true)
			break
		}
		if tally.stopped.Load() || stopRequested(ctx, p.stops, subjectID) {
			sem.Release(1)
			tally.stopped.Store(true)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			p.analyzeOne(ctx, subjectID, profile, i, len(candidates), c, tracker, &tally)
		}()
	}
	wg.Wait()

	if tally.stopped.Load() {
		tracker.Logf("Stop requested, remaining listings were not analyzed")
	}
	return AnalysisResult{
		Saved:      int(tally.saved.Load()),
		Irrelevant: int(tally.irrelevant.Load()),
		Duplicates: int(tally.duplicates.Load()),
		Failed:     int(tally.failed.Load()),
		Stopped:    tally.stopped.Load(),
	}
}

func (p *Pipeline) analyzeOne(ctx context.Context, subjectID string, profile models.SearchProfile, idx, total int, c models.Candidate, tracker *status.Tracker, tally *unitTally) {
	if stopRequested(ctx, p.stops, subjectID) {
		tally.stopped.Store(true)
		return
	}

	label := unitLabel(c)
	tracker.SetProgress(idx+1, label)
	tracker.Logf("Analyzing %d/%d: %s", idx+1, total, label)

	start := time.Now()
	relevance, err := p.scorer.CheckRelevance(ctx, c.Title, profile.RoleDescription)
	metrics.ObserveSince(metrics.ScorerLatency.WithLabelValues("relevance"), start)
	if ctx.Err() != nil {
		tally.stopped.Store(true)
		return
	}
	if err != nil {
		p.logger.Warn("relevance check failed, assuming relevant",
			zap.String("subject_id", subjectID), zap.String("title", c.Title), zap.Error(err))
		relevance = models.RelevanceVerdict{Relevant: true, Reason: "relevance check failed"}
	}
	if !relevance.Relevant {
		tally.irrelevant.Add(1)
		tracker.Add(status.SkippedIrrelevant, 1)
		metrics.Candidates.WithLabelValues(metrics.OutcomeIrrelevant).Inc()
		tracker.Logf("Skipped %s: %s", label, relevance.Reason)
		return
	}

	start = time.Now()
	affinity, err := p.scorer.ScoreAffinity(ctx, BuildMetadata(c), profile)
	metrics.ObserveSince(metrics.ScorerLatency.WithLabelValues("affinity"), start)
	if ctx.Err() != nil {
		tally.stopped.Store(true)
		return
	}
	if err != nil {
		p.logger.Warn("affinity scoring failed",
			zap.String("subject_id", subjectID), zap.String("title", c.Title), zap.Error(err))
		affinity = models.AffinityVerdict{Score: 0, Analysis: "Affinity analysis failed: " + err.Error(), WorthApplying: false}
	}
	affinity.Score = models.ClampScore(affinity.Score)

	job := models.NewJob(c, affinity, profile)
	job.DistanceKm = distanceKm(profile, c)

	// A cancelled run persists nothing, even for units already scored.
	if ctx.Err() != nil {
		tally.stopped.Store(true)
		return
	}

	if _, err := p.store.Create(ctx, job); err != nil {
		if errors.Is(err, storage.ErrDuplicateJob) {
			tally.duplicates.Add(1)
			tracker.Add(status.Duplicates, 1)
			metrics.Candidates.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			tracker.Logf("Already stored: %s", label)
			return
		}
		tally.failed.Add(1)
		tracker.Add(status.ProviderErrors, 1)
		metrics.Candidates.WithLabelValues(metrics.OutcomeFailed).Inc()
		tracker.Logf("Failed to save %s: %v", label, err)
		p.logger.Error("persist job failed",
			zap.String("subject_id", subjectID), zap.String("title", c.Title), zap.Error(err))
		return
	}

	tally.saved.Add(1)
	tracker.Add(status.Saved, 1)
	metrics.Candidates.WithLabelValues(metrics.OutcomeSaved).Inc()
	tracker.Logf("Saved %s (score %d)", label, affinity.Score)
}
