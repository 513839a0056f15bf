package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/httpclient"
)

func TestRemotiveSearch(t *testing.T) {
	recent := time.Now().Add(-48 * time.Hour).Format("2006-01-02T15:04:05")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang developer", r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jobs":[
			{"id":7,"url":"https://remotive.com/7","title":"Go Dev","company_name":"Acme","job_type":"full_time","publication_date":"`+recent+`","candidate_required_location":""},
			{"id":8,"url":"https://remotive.com/8","title":"Old","company_name":"Acme","publication_date":"2001-01-01T00:00:00"}
		]}`)
	}))
	defer srv.Close()

	src := NewRemotiveSource(httpclient.NewHttpClient(time.Second), srv.URL)
	got, err := src.Search(context.Background(), SearchRequest{Query: "golang developer", PostedWithinDays: 30, PageSize: 50})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, RemotiveName, got[0].SourcePlatform)
	assert.Equal(t, "7", got[0].PlatformID)
	assert.Equal(t, "Remote", got[0].Location)
	assert.Equal(t, models.JobTypeFullTime, got[0].JobType)
	assert.Equal(t, "https://remotive.com/7", got[0].EffectiveURL())
}

func TestRemotiveSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewRemotiveSource(httpclient.NewHttpClient(time.Second), srv.URL)
	_, err := src.Search(context.Background(), SearchRequest{Query: "x"})
	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Temporary())
}

func TestRemoteOKSearchFiltersLocally(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"legal":"notice"},
			{"id":"1","slug":"go-dev","company":"Acme","position":"Senior Golang Engineer","tags":["golang","backend"],"date":"`+now+`","apply_url":"https://acme.io/apply"},
			{"id":"2","slug":"php","company":"Other","position":"PHP Developer","tags":["php"],"date":"`+now+`"}
		]`)
	}))
	defer srv.Close()

	src := NewRemoteOKSource(httpclient.NewHttpClient(time.Second), srv.URL)
	got, err := src.Search(context.Background(), SearchRequest{Query: "Golang backend"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].PlatformID)
	assert.Equal(t, "https://acme.io/apply", got[0].EffectiveURL())
	assert.Equal(t, "https://remoteok.com/remote-jobs/go-dev", got[0].PlatformURL)
	assert.Equal(t, "Remote", got[0].Location)
}

func TestJobRoomSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobadservice/api/jobAdvertisements/_search", r.URL.Path)
		assert.Equal(t, "ZGU=", r.URL.Query().Get("_ng"))

		var payload jobRoomSearchPayload
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, []string{"Buchhalter"}, payload.Keywords)
		assert.Equal(t, 80, payload.WorkloadPercentageMin)

		_, _ = io.WriteString(w, `{"content":[{"jobAdvertisement":{
			"id":"42","createdTime":"2024-05-01T10:00:00Z",
			"jobContent":{
				"externalUrl":"",
				"jobDescriptions":[{"languageIsoCode":"fr","title":"Comptable","description":"fr"},{"languageIsoCode":"de","title":"Buchhalter","description":"<p>de</p>"}],
				"company":{"name":"Treuhand AG","city":"Bern"},
				"location":{"city":"Zürich","coordinates":{"lat":"47.37","lon":8.54}},
				"employment":{"permanent":true,"workloadPercentageMin":80,"workloadPercentageMax":100},
				"languageSkills":[{"languageIsoCode":"de","spokenLevel":"C1"}]
			}}}]}`)
	}))
	defer srv.Close()

	src := NewJobRoomSource(httpclient.NewHttpClient(time.Second), srv.URL)
	got, err := src.Search(context.Background(), SearchRequest{Query: "Buchhalter", Language: "de", WorkloadMin: 80, WorkloadMax: 100, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, JobRoomName, c.SourcePlatform)
	assert.Equal(t, "42", c.PlatformID)
	assert.Equal(t, "Buchhalter", c.Title)
	assert.Equal(t, "Zürich", c.Location)
	assert.Equal(t, srv.URL+"/offerten/stelle/42", c.EffectiveURL())
	assert.Equal(t, "80-100%", c.WorkloadLabel())
	assert.Equal(t, []string{"de (C1)"}, c.LanguageLabels())
	require.NotNil(t, c.Coordinates)
	assert.InDelta(t, 47.37, c.Coordinates.Lat, 0.001)
	require.NotNil(t, c.PostedDate)
	assert.Equal(t, models.JobTypeFullTime, c.JobType)
}

func TestParseCreatedTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01T10:00:00.123+02:00", time.Date(2024, 5, 1, 8, 0, 0, 123000000, time.UTC), true},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01T10:00:00.654321", time.Date(2024, 5, 1, 10, 0, 0, 654321000, time.UTC), true},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range tests {
		got, ok := parseCreatedTime(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
		}
	}
}
