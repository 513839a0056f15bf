package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

type memoryMirror struct {
	mu   sync.Mutex
	runs map[string]status.RunStatus
}

func (m *memoryMirror) Publish(_ context.Context, run status.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.SubjectID] = run
	return nil
}

func (m *memoryMirror) Fetch(_ context.Context, subjectID string) (status.RunStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[subjectID]
	return run, ok, nil
}

func (m *memoryMirror) Delete(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, subjectID)
	return nil
}

func newTestOrchestrator(t *testing.T, planner Planner, store storage.JobStore, providers ...*fakeProvider) *Orchestrator {
	t.Helper()
	return NewOrchestrator(Dependencies{
		Registry: newTestRegistry(providers...),
		Planner:  planner,
		Scorer:   &fakeScorer{},
		Store:    store,
	}, 4, nil)
}

func TestOrchestrator_RunCompletes(t *testing.T) {
	store := storage.NewMemoryStore()
	planner := fakePlanner{queries: []models.SearchQuery{query("golang"), query("GoLang"), query("rust")}}
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 2)}
	o := newTestOrchestrator(t, planner, store, provider)

	profile := testProfile()
	run, err := o.Run(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, status.StateDone, run.State)
	assert.Equal(t, 4, run.TotalUnits)
	assert.Equal(t, 4, run.Counters.Found)
	assert.Equal(t, 4, run.Counters.New)
	assert.Equal(t, 4, run.Counters.Saved)
	assert.Zero(t, run.Counters.Duplicates)
	assert.NotNil(t, run.FinishedAt)
	assert.EqualValues(t, 2, provider.calls.Load())
	assert.False(t, o.Active(profile.ID))

	// A second run finds nothing new.
	again, err := o.Run(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, status.StateDone, again.State)
	assert.Equal(t, 4, again.Counters.Found)
	assert.Equal(t, 4, again.Counters.Duplicates)
	assert.Zero(t, again.Counters.New)
	assert.Zero(t, again.Counters.Saved)

	stats := o.Stats()
	assert.EqualValues(t, 2, stats.Runs[status.StateDone])
	assert.Equal(t, 4, stats.Totals.Saved)
}

func TestOrchestrator_PlannerFailure(t *testing.T) {
	o := newTestOrchestrator(t, fakePlanner{err: errors.New("quota exceeded")}, storage.NewMemoryStore())

	run, err := o.Run(context.Background(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, status.StateError, run.State)
	assert.Contains(t, run.ErrorMessage, "quota exceeded")
	assert.Zero(t, run.Counters.Found)
}

func TestOrchestrator_RejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT},
		search: func(ctx context.Context, _ sources.SearchRequest) ([]models.Candidate, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}}
	mirror := &memoryMirror{runs: make(map[string]status.RunStatus)}
	o := NewOrchestrator(Dependencies{
		Registry: newTestRegistry(provider),
		Planner:  fakePlanner{queries: []models.SearchQuery{query("golang")}},
		Scorer:   &fakeScorer{},
		Store:    storage.NewMemoryStore(),
		Mirror:   mirror,
	}, 2, nil)

	profile := testProfile()
	runID, err := o.Start(context.Background(), profile)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	<-entered
	assert.True(t, o.Active(profile.ID))
	assert.Equal(t, status.StateSearching, o.Status(context.Background(), profile.ID).State)

	_, err = o.Start(context.Background(), profile)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.False(t, o.Clear(context.Background(), profile.ID))

	assert.True(t, o.Cancel(profile.ID))
	require.Eventually(t, func() bool {
		return !o.Active(profile.ID)
	}, 2*time.Second, 10*time.Millisecond)

	run := o.Status(context.Background(), profile.ID)
	assert.Equal(t, status.StateStopped, run.State)
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, status.StateStopped, mirror.runs[profile.ID].State)

	assert.True(t, o.Clear(context.Background(), profile.ID))
	assert.Equal(t, status.StateUnknown, o.Status(context.Background(), profile.ID).State)
	assert.False(t, o.Cancel(profile.ID), "cancelling an idle subject is a no-op")
}

func TestOrchestrator_StopBeforeSearch(t *testing.T) {
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 1)}
	planner := &stoppingPlanner{queries: []models.SearchQuery{query("golang")}}
	o := newTestOrchestrator(t, planner, storage.NewMemoryStore(), provider)
	planner.orchestrator = o

	run, err := o.Run(context.Background(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, status.StateStopped, run.State)
	assert.Zero(t, provider.calls.Load())
}

func TestOrchestrator_ShutdownWaitsForRuns(t *testing.T) {
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT},
		search: func(ctx context.Context, _ sources.SearchRequest) ([]models.Candidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
	o := newTestOrchestrator(t, fakePlanner{queries: []models.SearchQuery{query("golang")}}, storage.NewMemoryStore(), provider)

	_, err := o.Start(context.Background(), testProfile())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
	assert.Equal(t, status.StateStopped, o.Status(context.Background(), testProfile().ID).State)
}

// stoppingPlanner requests a stop while planning, as a user clicking stop
// during generation would.
type stoppingPlanner struct {
	queries      []models.SearchQuery
	orchestrator *Orchestrator
}

func (s *stoppingPlanner) Plan(ctx context.Context, profile models.SearchProfile, _ []sources.Descriptor, _ int) ([]models.SearchQuery, error) {
	if err := s.orchestrator.Stop(ctx, profile.ID); err != nil {
		return nil, err
	}
	return s.queries, nil
}

func TestOrchestrator_MirrorFollowsLiveRun(t *testing.T) {
	release := make(chan struct{})
	scorer := &fakeScorer{relevance: func(title string) (models.RelevanceVerdict, error) {
		if title == "golang engineer 1" {
			<-release
		}
		return models.RelevanceVerdict{Relevant: true}, nil
	}}
	mirror := &memoryMirror{runs: make(map[string]status.RunStatus)}
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 2)}
	o := NewOrchestrator(Dependencies{
		Registry:       newTestRegistry(provider),
		Planner:        fakePlanner{queries: []models.SearchQuery{query("golang")}},
		Scorer:         scorer,
		Store:          storage.NewMemoryStore(),
		Mirror:         mirror,
		MirrorInterval: 5 * time.Millisecond,
	}, 1, nil)

	profile := testProfile()
	_, err := o.Start(context.Background(), profile)
	require.NoError(t, err)

	// The analyzing boundary publishes Saved=0; a later snapshot mid-phase
	// must carry the first save.
	require.Eventually(t, func() bool {
		run, ok, _ := mirror.Fetch(context.Background(), profile.ID)
		return ok && run.State == status.StateAnalyzing && run.Counters.Saved == 1
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool {
		return !o.Active(profile.ID)
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, o.Shutdown(context.Background()))

	run, ok, _ := mirror.Fetch(context.Background(), profile.ID)
	require.True(t, ok)
	assert.Equal(t, status.StateDone, run.State)
	assert.Equal(t, 2, run.Counters.Saved)
}
