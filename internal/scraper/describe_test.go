package scraper

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher-go/internal/models"
)

func TestBuildMetadata(t *testing.T) {
	c := models.Candidate{
		Title:       "Go Developer",
		Company:     "Acme",
		Location:    "Zürich",
		Description: "<p>Build <b>services</b></p><script>track()</script>",
		WorkloadMin: 80,
		WorkloadMax: 100,
		Languages:   []models.LanguageSkill{{Code: "de", Level: "C1"}},
	}

	meta := BuildMetadata(c)
	assert.Equal(t, "Go Developer", meta.Title)
	assert.Equal(t, "Build services", meta.Description)
	assert.Equal(t, "80-100%", meta.Workload)
	assert.Equal(t, []string{"de (C1)"}, meta.Languages)
}

func TestBuildMetadata_TruncatesDescription(t *testing.T) {
	meta := BuildMetadata(models.Candidate{Description: strings.Repeat("a", 5000)})
	assert.LessOrEqual(t, utf8.RuneCountInString(meta.Description), maxDescriptionChars+3)
	assert.True(t, strings.HasSuffix(meta.Description, "..."))
}

func TestUnitLabel(t *testing.T) {
	assert.Equal(t, "(untitled)", unitLabel(models.Candidate{}))
	long := unitLabel(models.Candidate{Title: strings.Repeat("x", 200)})
	assert.LessOrEqual(t, utf8.RuneCountInString(long), 63)
}

func TestDistanceKm(t *testing.T) {
	lat, lon := 47.3769, 8.5417
	profile := models.SearchProfile{Latitude: &lat, Longitude: &lon}

	assert.Nil(t, distanceKm(profile, models.Candidate{}))
	assert.Nil(t, distanceKm(models.SearchProfile{}, models.Candidate{Coordinates: &models.Coordinates{Lat: 46.948, Lon: 7.4474}}))

	d := distanceKm(profile, models.Candidate{Coordinates: &models.Coordinates{Lat: 46.948, Lon: 7.4474}})
	require.NotNil(t, d)
	assert.InDelta(t, 95, *d, 5)
}
