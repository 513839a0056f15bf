package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newStoreWithProfile() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.SaveProfile(models.SearchProfile{ID: "p1", UserID: "u1", Name: "Backend", ScheduleEnabled: true, ScheduleIntervalHours: 6})
	return store
}

func serve(server *Server, method, url string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, url, nil)
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

func TestStartSearchAPI(t *testing.T) {
	testCases := []struct {
		name          string
		profileID     string
		startErr      error
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder, search *fakeSearch)
	}{
		{
			name:      "Accepted",
			profileID: "p1",
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder, search *fakeSearch) {
				require.Equal(t, http.StatusAccepted, recorder.Code)

				var resp startSearchResponse
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
				require.Equal(t, "run-1", resp.RunID)
				require.Equal(t, "p1", resp.ProfileID)
				require.Equal(t, string(status.StateGenerating), resp.State)
				require.Equal(t, []string{"p1"}, search.started)
			},
		},
		{
			name:      "AlreadyRunning",
			profileID: "p1",
			startErr:  scraper.ErrRunInProgress,
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder, search *fakeSearch) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name:      "ProfileNotFound",
			profileID: "missing",
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder, search *fakeSearch) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
				require.Empty(t, search.started)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			search := newFakeSearch()
			search.startErr = tc.startErr
			server := newTestServer(search, newStoreWithProfile(), nil)

			recorder := serve(server, http.MethodPost, "/api/v1/profiles/"+tc.profileID+"/search")
			tc.checkResponse(t, recorder, search)
		})
	}
}

func TestGetSearchStatusAPI(t *testing.T) {
	search := newFakeSearch()
	server := newTestServer(search, newStoreWithProfile(), nil)

	recorder := serve(server, http.MethodGet, "/api/v1/profiles/p1/search/status")
	require.Equal(t, http.StatusOK, recorder.Code)

	var run status.RunStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &run))
	require.Equal(t, status.StateUnknown, run.State)

	search.runs["p1"] = status.RunStatus{SubjectID: "p1", State: status.StateAnalyzing, Counters: status.Counters{Found: 12}}
	recorder = serve(server, http.MethodGet, "/api/v1/profiles/p1/search/status")
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &run))
	require.Equal(t, status.StateAnalyzing, run.State)
	require.Equal(t, 12, run.Counters.Found)
}

func TestStopAndCancelAPI(t *testing.T) {
	search := newFakeSearch()
	server := newTestServer(search, newStoreWithProfile(), nil)
	_, err := search.Start(context.Background(), models.SearchProfile{ID: "p1"})
	require.NoError(t, err)

	recorder := serve(server, http.MethodPost, "/api/v1/profiles/p1/search/stop")
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Equal(t, []string{"p1"}, search.stopped)

	// Clearing an active run is refused.
	recorder = serve(server, http.MethodDelete, "/api/v1/profiles/p1/search/status")
	require.Equal(t, http.StatusConflict, recorder.Code)

	recorder = serve(server, http.MethodDelete, "/api/v1/profiles/p1/search")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"cancelled": true}`, recorder.Body.String())

	// Cancelling again is a no-op.
	recorder = serve(server, http.MethodDelete, "/api/v1/profiles/p1/search")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"cancelled": false}`, recorder.Body.String())

	recorder = serve(server, http.MethodDelete, "/api/v1/profiles/p1/search/status")
	require.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestListJobsAPI(t *testing.T) {
	store := newStoreWithProfile()
	_, err := store.Create(context.Background(), models.Job{ProfileID: "p1", UserID: "u1", Platform: "remotive", PlatformJobID: "1", Title: "Go Dev", AffinityScore: 80})
	require.NoError(t, err)
	server := newTestServer(newFakeSearch(), store, nil)

	recorder := serve(server, http.MethodGet, "/api/v1/profiles/p1/jobs")
	require.Equal(t, http.StatusOK, recorder.Code)

	var jobs []models.Job
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	require.Equal(t, "Go Dev", jobs[0].Title)

	recorder = serve(server, http.MethodGet, "/api/v1/profiles/other/jobs")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `[]`, recorder.Body.String())
}

func TestScheduleAPI(t *testing.T) {
	store := newStoreWithProfile()

	recorder := serve(newTestServer(newFakeSearch(), store, nil), http.MethodPost, "/api/v1/profiles/p1/schedule")
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	schedules := &fakeSchedules{}
	server := newTestServer(newFakeSearch(), store, schedules)

	recorder = serve(server, http.MethodPost, "/api/v1/profiles/p1/schedule")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, schedules.scheduled, 1)
	require.Equal(t, 6, schedules.scheduled[0].ScheduleIntervalHours)

	recorder = serve(server, http.MethodGet, "/api/v1/schedules")
	require.JSONEq(t, `["search_profile_p1"]`, recorder.Body.String())
}

func TestSourcesAndStatsAPI(t *testing.T) {
	server := newTestServer(newFakeSearch(), newStoreWithProfile(), nil)

	recorder := serve(server, http.MethodGet, "/api/v1/sources")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "job_room")

	recorder = serve(server, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"done":2`)

	recorder = serve(server, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, recorder.Code)
}
