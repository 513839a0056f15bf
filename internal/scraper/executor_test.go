package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/tasks"
)

func TestExecutor_RoutesToWildcardAndDomainProviders(t *testing.T) {
	wildcard := &fakeProvider{name: "job_room", domains: []string{sources.AnyDomain}, search: listingsFor("job_room", 2)}
	itOnly := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 3)}
	finance := &fakeProvider{name: "finjobs", domains: []string{models.DomainFinance}, search: listingsFor("finjobs", 1)}

	exec := NewExecutor(newTestRegistry(wildcard, itOnly, finance), tasks.NewStopFlags(), nil)
	tracker := status.NewTracker("profile-1", "run-1", nil)

	out := exec.Execute(context.Background(), "profile-1", testProfile(), []models.SearchQuery{query("golang")}, tracker)

	assert.False(t, out.Stopped)
	require.Len(t, out.Candidates, 5)
	assert.Equal(t, "job_room", out.Candidates[0].SourcePlatform)
	assert.Equal(t, "remotive", out.Candidates[4].SourcePlatform)
	assert.EqualValues(t, 1, wildcard.calls.Load())
	assert.EqualValues(t, 1, itOnly.calls.Load())
	assert.Zero(t, finance.calls.Load())

	snap := tracker.Snapshot()
	assert.Equal(t, 5, snap.Counters.Found)
	assert.Equal(t, 1, snap.CurrentUnitIndex)
	assert.Equal(t, "[Keyword] golang", snap.CurrentLabel)
}

func TestExecutor_ProviderFailureIsIsolated(t *testing.T) {
	broken := &fakeProvider{name: "job_room", domains: []string{sources.AnyDomain},
		search: func(context.Context, sources.SearchRequest) ([]models.Candidate, error) {
			return nil, errors.New("connection reset")
		}}
	healthy := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 2)}

	exec := NewExecutor(newTestRegistry(broken, healthy), tasks.NewStopFlags(), nil)
	tracker := status.NewTracker("profile-1", "run-1", nil)

	out := exec.Execute(context.Background(), "profile-1", testProfile(), []models.SearchQuery{query("golang"), query("rust")}, tracker)

	assert.False(t, out.Stopped)
	assert.Len(t, out.Candidates, 4)
	assert.EqualValues(t, 2, broken.calls.Load())

	snap := tracker.Snapshot()
	assert.Equal(t, 2, snap.Counters.ProviderErrors)
	assert.Equal(t, 4, snap.Counters.Found)
}

func TestExecutor_SkipsQueryWithoutProvider(t *testing.T) {
	itOnly := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 1)}

	exec := NewExecutor(newTestRegistry(itOnly), tasks.NewStopFlags(), nil)
	tracker := status.NewTracker("profile-1", "run-1", nil)

	q := query("controller")
	q.Domain = models.DomainFinance
	out := exec.Execute(context.Background(), "profile-1", testProfile(), []models.SearchQuery{q}, tracker)

	assert.False(t, out.Stopped)
	assert.Empty(t, out.Candidates)
	assert.Zero(t, itOnly.calls.Load())
	assert.Zero(t, tracker.Snapshot().Counters.ProviderErrors)
}

func TestExecutor_StopDiscardsCollected(t *testing.T) {
	stops := tasks.NewStopFlags()
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT},
		search: func(ctx context.Context, req sources.SearchRequest) ([]models.Candidate, error) {
			_ = stops.RequestStop(ctx, "profile-1")
			return listingsFor("remotive", 2)(ctx, req)
		}}

	exec := NewExecutor(newTestRegistry(provider), stops, nil)
	tracker := status.NewTracker("profile-1", "run-1", nil)

	out := exec.Execute(context.Background(), "profile-1", testProfile(), []models.SearchQuery{query("golang"), query("rust")}, tracker)

	assert.True(t, out.Stopped)
	assert.Empty(t, out.Candidates)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestExecutor_CancelledContextStops(t *testing.T) {
	provider := &fakeProvider{name: "remotive", domains: []string{models.DomainIT}, search: listingsFor("remotive", 1)}
	exec := NewExecutor(newTestRegistry(provider), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := exec.Execute(ctx, "profile-1", testProfile(), []models.SearchQuery{query("golang")}, status.NewTracker("profile-1", "run-1", nil))
	assert.True(t, out.Stopped)
	assert.Zero(t, provider.calls.Load())
}

func TestExecutor_CancelledRunIsNotProviderFault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &fakeProvider{name: "job_room", domains: []string{sources.AnyDomain},
		search: func(ctx context.Context, _ sources.SearchRequest) ([]models.Candidate, error) {
			cancel()
			return nil, ctx.Err()
		}}
	waiting := &fakeProvider{name: "remotive", domains: []string{models.DomainIT},
		search: func(ctx context.Context, _ sources.SearchRequest) ([]models.Candidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}

	exec := NewExecutor(newTestRegistry(cancelling, waiting), tasks.NewStopFlags(), nil)
	tracker := status.NewTracker("profile-1", "run-1", nil)

	out := exec.Execute(ctx, "profile-1", testProfile(), []models.SearchQuery{query("golang"), query("rust")}, tracker)

	assert.True(t, out.Stopped)
	assert.Empty(t, out.Candidates)
	assert.EqualValues(t, 1, cancelling.calls.Load())
	assert.Zero(t, tracker.Snapshot().Counters.ProviderErrors)
}
