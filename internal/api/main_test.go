package api

import (
	"context"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

type fakeSearch struct {
	startErr  error
	started   []string
	runs      map[string]status.RunStatus
	active    map[string]bool
	stopped   []string
	cancelled []string
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{runs: map[string]status.RunStatus{}, active: map[string]bool{}}
}

func (f *fakeSearch) Start(_ context.Context, profile models.SearchProfile) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, profile.ID)
	f.active[profile.ID] = true
	f.runs[profile.ID] = status.RunStatus{RunID: "run-1", SubjectID: profile.ID, State: status.StateGenerating}
	return "run-1", nil
}

func (f *fakeSearch) Status(_ context.Context, subjectID string) status.RunStatus {
	if run, ok := f.runs[subjectID]; ok {
		return run
	}
	return status.Unknown(subjectID)
}

func (f *fakeSearch) Stop(_ context.Context, subjectID string) error {
	f.stopped = append(f.stopped, subjectID)
	return nil
}

func (f *fakeSearch) Cancel(subjectID string) bool {
	f.cancelled = append(f.cancelled, subjectID)
	was := f.active[subjectID]
	delete(f.active, subjectID)
	return was
}

func (f *fakeSearch) Clear(_ context.Context, subjectID string) bool {
	if f.active[subjectID] {
		return false
	}
	delete(f.runs, subjectID)
	return true
}

func (f *fakeSearch) Active(subjectID string) bool { return f.active[subjectID] }

func (f *fakeSearch) Providers() []sources.Descriptor {
	return []sources.Descriptor{{Name: "job_room", AcceptedDomains: []string{sources.AnyDomain}}}
}

func (f *fakeSearch) Stats() scraper.StatsSnapshot {
	return scraper.StatsSnapshot{Runs: map[status.State]int64{status.StateDone: 2}}
}

type fakeSchedules struct {
	scheduled []models.SearchProfile
}

func (f *fakeSchedules) Schedule(profile models.SearchProfile) error {
	f.scheduled = append(f.scheduled, profile)
	return nil
}

func (f *fakeSchedules) Jobs() []string {
	out := make([]string, 0, len(f.scheduled))
	for _, p := range f.scheduled {
		out = append(out, "search_profile_"+p.ID)
	}
	return out
}

func newTestServer(search SearchService, store *storage.MemoryStore, schedules ScheduleService) *Server {
	return NewServer(search, store, store, schedules, nil)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}
