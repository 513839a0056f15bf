package scraper

import (
	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/textutil"
)

const (
	maxDescriptionChars = 2000
	maxLabelChars       = 60
)

// unitLabel is the short progress label of one analysis unit.
func unitLabel(c models.Candidate) string {
	title := c.Title
	if title == "" {
		title = "(untitled)"
	}
	return textutil.Truncate(title, maxLabelChars)
}

// BuildMetadata prepares the listing view handed to the affinity scorer.
func BuildMetadata(c models.Candidate) models.AnalysisMetadata {
	return models.AnalysisMetadata{
		Title:       c.Title,
		Company:     c.Company,
		Location:    c.Location,
		Description: textutil.Truncate(textutil.CleanHTML(c.Description), maxDescriptionChars),
		Workload:    c.WorkloadLabel(),
		Languages:   c.LanguageLabels(),
	}
}

// distanceKm returns the distance between the profile's reference point and
// the listing, when both are known.
func distanceKm(p models.SearchProfile, c models.Candidate) *float64 {
	from := p.Coordinates()
	if from == nil || c.Coordinates == nil {
		return nil
	}
	d := textutil.HaversineKm(from.Lat, from.Lon, c.Coordinates.Lat, c.Coordinates.Lon)
	return &d
}
