package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-matcher-go/internal/metrics"
	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
	"job-matcher-go/internal/tasks"
)

// ErrRunInProgress is returned when a subject already has an active run.
var ErrRunInProgress = errors.New("a search is already running for this profile")

// StopFlags is a cancellation source that can also be written to.
type StopFlags interface {
	StopSource
	RequestStop(ctx context.Context, subjectID string) error
	Clear(ctx context.Context, subjectID string) error
}

// StatusMirror publishes run snapshots outside the process, so any replica
// can answer status polls.
type StatusMirror interface {
	Publish(ctx context.Context, run status.RunStatus) error
	Fetch(ctx context.Context, subjectID string) (status.RunStatus, bool, error)
	Delete(ctx context.Context, subjectID string) error
}

// DefaultMirrorInterval is how often a live run is republished to the mirror.
const DefaultMirrorInterval = 2 * time.Second

// Dependencies are the collaborators of an Orchestrator. Mirror and Stats
// are optional.
type Dependencies struct {
	Registry       *sources.Registry
	Planner        Planner
	Scorer         Scorer
	Store          storage.JobStore
	Stops          StopFlags
	Tasks          *tasks.Registry
	Board          *status.Board
	Mirror         StatusMirror
	MirrorInterval time.Duration
	Stats          *Stats
}

// Orchestrator runs searches: plan, search, dedup, analyze.
type Orchestrator struct {
	deps     Dependencies
	executor *Executor
	pipeline *Pipeline
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewOrchestrator wires an orchestrator. analysisConcurrency below one uses
// DefaultAnalysisConcurrency.
func NewOrchestrator(deps Dependencies, analysisConcurrency int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Tasks == nil {
		deps.Tasks = tasks.NewRegistry()
	}
	if deps.Board == nil {
		deps.Board = status.NewBoard(logger)
	}
	if deps.Stops == nil {
		deps.Stops = tasks.NewStopFlags()
	}
	if deps.Stats == nil {
		deps.Stats = NewStats()
	}
	if deps.MirrorInterval <= 0 {
		deps.MirrorInterval = DefaultMirrorInterval
	}

	return &Orchestrator{
		deps:     deps,
		executor: NewExecutor(deps.Registry, deps.Stops, logger),
		pipeline: NewPipeline(deps.Scorer, deps.Store, deps.Stops, analysisConcurrency, logger),
		logger:   logger.Named("orchestrator"),
	}
}

// Start launches a run in the background and returns its id. The run is
// detached from ctx's cancellation; use Cancel or Stop to end it early.
func (o *Orchestrator) Start(ctx context.Context, profile models.SearchProfile) (string, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tracker, err := o.begin(ctx, profile, cancel)
	if err != nil {
		cancel()
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.execute(runCtx, tracker, profile)
	}()
	return tracker.Snapshot().RunID, nil
}

// Run executes a run synchronously and returns its final status.
func (o *Orchestrator) Run(ctx context.Context, profile models.SearchProfile) (status.RunStatus, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker, err := o.begin(ctx, profile, cancel)
	if err != nil {
		return status.RunStatus{}, err
	}
	return o.execute(runCtx, tracker, profile), nil
}

// begin claims the subject in the task registry, resets its stop flag and
// publishes a fresh tracker so status polls see the new run immediately.
func (o *Orchestrator) begin(ctx context.Context, profile models.SearchProfile, cancel context.CancelFunc) (*status.Tracker, error) {
	if profile.ID == "" {
		return nil, errors.New("profile id must not be empty")
	}

	runID := uuid.NewString()
	if err := o.deps.Tasks.Register(profile.ID, runID, cancel); err != nil {
		if errors.Is(err, tasks.ErrAlreadyRegistered) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	if err := o.deps.Stops.Clear(ctx, profile.ID); err != nil {
		o.logger.Warn("failed to clear stop flag", zap.String("subject_id", profile.ID), zap.Error(err))
	}
	return o.deps.Board.Begin(profile.ID, runID), nil
}

func (o *Orchestrator) execute(ctx context.Context, tracker *status.Tracker, profile models.SearchProfile) (final status.RunStatus) {
	subjectID := profile.ID
	runID := tracker.Snapshot().RunID
	defer o.deps.Tasks.Unregister(subjectID, runID)

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	logger := o.logger.With(zap.String("subject_id", subjectID), zap.String("run_id", runID))
	logger.Info("search run started", zap.String("profile", profile.Name))

	var mirror *mirrorLoop

	defer func() {
		if r := recover(); r != nil {
			logger.Error("search run panicked", zap.Any("panic", r))
			if !tracker.State().Terminal() {
				_ = tracker.Fail(fmt.Sprintf("internal error: %v", r))
			}
			final = o.finish(ctx, tracker, mirror, logger)
		}
	}()

	tracker.Logf("Search started for profile %q", profile.Name)
	o.publish(ctx, tracker)
	mirror = o.startMirror(ctx, tracker)

	// Generating
	queries, err := PlanQueries(ctx, o.deps.Planner, profile, o.deps.Registry.Descriptors(), profile.MaxQueries)
	if err != nil {
		if ctx.Err() != nil {
			return o.stop(ctx, tracker, mirror, logger)
		}
		_ = tracker.Fail(err.Error())
		return o.finish(ctx, tracker, mirror, logger)
	}
	tracker.Logf("Planned %d unique queries", len(queries))

	// Searching
	if err := tracker.Transition(status.StateSearching); err != nil {
		logger.Error("unexpected state", zap.Error(err))
	}
	tracker.SetTotal(len(queries))
	o.publish(ctx, tracker)

	outcome := o.executor.Execute(ctx, subjectID, profile, queries, tracker)
	if outcome.Stopped || ctx.Err() != nil {
		return o.stop(ctx, tracker, mirror, logger)
	}

	existing, err := o.deps.Store.ExistingIdentifiers(ctx, profile.Scope())
	if err != nil {
		_ = tracker.Fail(fmt.Sprintf("load existing jobs: %v", err))
		return o.finish(ctx, tracker, mirror, logger)
	}
	unique, duplicates := Dedupe(outcome.Candidates, existing)
	tracker.Add(status.Duplicates, duplicates)
	tracker.Add(status.New, len(unique))
	metrics.Candidates.WithLabelValues(metrics.OutcomeDuplicate).Add(float64(duplicates))
	metrics.Candidates.WithLabelValues(metrics.OutcomeNew).Add(float64(len(unique)))
	tracker.Logf("Found %d listings: %d new, %d already seen", len(outcome.Candidates), len(unique), duplicates)

	// Analyzing
	if err := tracker.Transition(status.StateAnalyzing); err != nil {
		logger.Error("unexpected state", zap.Error(err))
	}
	tracker.SetTotal(len(unique))
	o.publish(ctx, tracker)

	result := o.pipeline.Analyze(ctx, subjectID, profile, unique, tracker)
	if result.Stopped || ctx.Err() != nil {
		return o.stop(ctx, tracker, mirror, logger)
	}

	tracker.Logf("Search finished: %d saved, %d irrelevant, %d failed", result.Saved, result.Irrelevant, result.Failed)
	if err := tracker.Transition(status.StateDone); err != nil {
		logger.Error("unexpected state", zap.Error(err))
	}
	return o.finish(ctx, tracker, mirror, logger)
}

func (o *Orchestrator) stop(ctx context.Context, tracker *status.Tracker, mirror *mirrorLoop, logger *zap.Logger) status.RunStatus {
	tracker.Logf("Search stopped")
	if err := tracker.Transition(status.StateStopped); err != nil {
		logger.Error("unexpected state", zap.Error(err))
	}
	return o.finish(ctx, tracker, mirror, logger)
}

func (o *Orchestrator) finish(ctx context.Context, tracker *status.Tracker, mirror *mirrorLoop, logger *zap.Logger) status.RunStatus {
	// The terminal snapshot must be the last one published.
	mirror.stop()
	snap := tracker.Snapshot()
	metrics.RunsTotal.WithLabelValues(string(snap.State)).Inc()
	o.deps.Stats.RecordRun(snap)
	o.publish(ctx, tracker)

	logger.Info("search run finished",
		zap.String("state", string(snap.State)),
		zap.Int("found", snap.Counters.Found),
		zap.Int("new", snap.Counters.New),
		zap.Int("duplicates", snap.Counters.Duplicates),
		zap.Int("skipped_irrelevant", snap.Counters.SkippedIrrelevant),
		zap.Int("provider_errors", snap.Counters.ProviderErrors),
		zap.Int("saved", snap.Counters.Saved),
		zap.String("error", snap.ErrorMessage))
	return snap
}

func (o *Orchestrator) publish(ctx context.Context, tracker *status.Tracker) {
	if o.deps.Mirror == nil {
		return
	}
	// Publishing must work even after a hard cancel of the run.
	if err := o.deps.Mirror.Publish(context.WithoutCancel(ctx), tracker.Snapshot()); err != nil {
		o.logger.Warn("failed to publish run status", zap.Error(err))
	}
}

// mirrorLoop republishes a live run on a fixed interval so replicas polling
// the mirror see counters and log move during a phase.
type mirrorLoop struct {
	done chan struct{}
	exit chan struct{}
	once sync.Once
}

func (o *Orchestrator) startMirror(ctx context.Context, tracker *status.Tracker) *mirrorLoop {
	if o.deps.Mirror == nil {
		return nil
	}
	m := &mirrorLoop{done: make(chan struct{}), exit: make(chan struct{})}
	go func() {
		defer close(m.exit)
		ticker := time.NewTicker(o.deps.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				o.publish(ctx, tracker)
			}
		}
	}()
	return m
}

// stop ends the loop and waits for an in-flight publish. Safe on nil.
func (m *mirrorLoop) stop() {
	if m == nil {
		return
	}
	m.once.Do(func() { close(m.done) })
	<-m.exit
}

// Status returns the latest status of subjectID. The in-process board wins;
// the mirror answers for runs owned by another process.
func (o *Orchestrator) Status(ctx context.Context, subjectID string) status.RunStatus {
	if snap, ok := o.deps.Board.Get(subjectID); ok {
		return snap
	}
	if o.deps.Mirror != nil {
		snap, ok, err := o.deps.Mirror.Fetch(ctx, subjectID)
		if err != nil {
			o.logger.Warn("failed to fetch mirrored status", zap.String("subject_id", subjectID), zap.Error(err))
		} else if ok {
			return snap
		}
	}
	return status.Unknown(subjectID)
}

// Stop asks the run of subjectID to stop at its next checkpoint.
func (o *Orchestrator) Stop(ctx context.Context, subjectID string) error {
	if err := o.deps.Stops.RequestStop(ctx, subjectID); err != nil {
		return fmt.Errorf("request stop: %w", err)
	}
	if t, ok := o.deps.Board.Tracker(subjectID); ok && !t.State().Terminal() {
		t.Logf("Stop requested")
	}
	return nil
}

// Cancel hard-cancels the in-flight run of subjectID. It reports whether a
// run was active; cancelling nothing is not an error.
func (o *Orchestrator) Cancel(subjectID string) bool {
	return o.deps.Tasks.Cancel(subjectID)
}

// Clear forgets the finished status of subjectID. It returns false while a
// run is still active.
func (o *Orchestrator) Clear(ctx context.Context, subjectID string) bool {
	if o.deps.Tasks.Active(subjectID) || !o.deps.Board.Clear(subjectID) {
		return false
	}
	if o.deps.Mirror != nil {
		if err := o.deps.Mirror.Delete(ctx, subjectID); err != nil {
			o.logger.Warn("failed to delete mirrored status", zap.String("subject_id", subjectID), zap.Error(err))
		}
	}
	return true
}

// Active reports whether subjectID has a run in flight.
func (o *Orchestrator) Active(subjectID string) bool {
	return o.deps.Tasks.Active(subjectID)
}

// Providers lists the enabled providers.
func (o *Orchestrator) Providers() []sources.Descriptor {
	return o.deps.Registry.Descriptors()
}

// Stats returns aggregated run statistics.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.deps.Stats.Snapshot()
}

// Shutdown cancels every active run and waits for background runs to finish
// or ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.deps.Tasks.CancelAll()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
