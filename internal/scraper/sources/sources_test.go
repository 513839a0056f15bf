package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
)

type stubProvider struct {
	desc Descriptor
}

func (s stubProvider) Info() Descriptor { return s.desc }

func (s stubProvider) Search(context.Context, SearchRequest) ([]models.Candidate, error) {
	return nil, nil
}

func newStub(name string, domains ...string) stubProvider {
	return stubProvider{desc: Descriptor{Name: name, AcceptedDomains: domains}}
}

func TestResolve(t *testing.T) {
	providers := []Descriptor{
		{Name: "job_room", AcceptedDomains: []string{AnyDomain}},
		{Name: "swissdevjobs", AcceptedDomains: []string{"it"}},
		{Name: "finjobs", AcceptedDomains: []string{"finance", "general"}},
	}

	tests := []struct {
		domain string
		want   []string
	}{
		{domain: "it", want: []string{"job_room", "swissdevjobs"}},
		{domain: "finance", want: []string{"job_room", "finjobs"}},
		{domain: "health", want: []string{"job_room"}},
		{domain: "", want: []string{"job_room"}},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got := Resolve(tt.domain, providers)
			assert.Equal(t, tt.want, got)
			// Same input, same answer.
			assert.Equal(t, got, Resolve(tt.domain, providers))
		})
	}
}

func TestResolveWithoutWildcardCanBeEmpty(t *testing.T) {
	providers := []Descriptor{{Name: "swissdevjobs", AcceptedDomains: []string{"it"}}}
	assert.Empty(t, Resolve("finance", providers))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newStub("b", "it"), ProviderConfig{Enabled: true}))
	require.NoError(t, reg.Register(newStub("a", AnyDomain), ProviderConfig{Enabled: true}))
	require.NoError(t, reg.Register(newStub("off", AnyDomain), ProviderConfig{Enabled: false}))

	err := reg.Register(newStub("a", "it"), ProviderConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	// Registration order, not name order; disabled providers are left out.
	assert.Equal(t, []string{"b", "a"}, reg.Resolve("it"))
	assert.Equal(t, []string{"a"}, reg.Resolve("finance"))

	descs := reg.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "b", descs[0].Name)

	_, err = reg.Get("off")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	p, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Info().Name)
}

func TestParseWorkload(t *testing.T) {
	tests := []struct {
		in       string
		min, max int
	}{
		{"", 0, 100},
		{"80-100%", 80, 100},
		{"60%", 60, 60},
		{" 100 - 80 ", 80, 100},
		{"full", 0, 100},
		{"50-x", 0, 100},
	}
	for _, tt := range tests {
		lo, hi := ParseWorkload(tt.in)
		assert.Equal(t, tt.min, lo, tt.in)
		assert.Equal(t, tt.max, hi, tt.in)
	}
}

func TestBuildRequest(t *testing.T) {
	lat, lon := 47.37, 8.54
	profile := models.SearchProfile{
		LocationFilter: " Zurich ",
		WorkloadFilter: "80-100%",
		Latitude:       &lat,
		Longitude:      &lon,
	}
	q := models.SearchQuery{Domain: "it", Type: models.QueryTypeKeyword, QueryText: " golang ", Language: "de"}

	req := BuildRequest(q, profile)
	assert.Equal(t, "golang", req.Query)
	assert.Equal(t, "Zurich", req.Location)
	assert.Equal(t, "de", req.Language)
	assert.Equal(t, 30, req.PostedWithinDays)
	assert.Equal(t, 50, req.PageSize)
	assert.Equal(t, 80, req.WorkloadMin)
	assert.Equal(t, 100, req.WorkloadMax)
	require.NotNil(t, req.Radius)
	assert.Equal(t, 50, req.Radius.DistanceKm)
	assert.Equal(t, lat, req.Radius.Center.Lat)

	profile.Latitude = nil
	profile.PostedWithinDays = 7
	req = BuildRequest(models.SearchQuery{QueryText: "x"}, profile)
	assert.Nil(t, req.Radius)
	assert.Equal(t, 7, req.PostedWithinDays)
	assert.Equal(t, "en", req.Language)
}
