package sources

import (
	"strconv"
	"strings"

	"job-matcher-go/internal/models"
)

const (
	defaultPageSize         = 50
	defaultPostedWithinDays = 30
	defaultRadiusKm         = 50
)

// RadiusSearch restricts results to a circle around a point.
type RadiusSearch struct {
	Center     models.Coordinates
	DistanceKm int
}

// SearchRequest is the provider-neutral search built from a query and a profile.
type SearchRequest struct {
	Query            string
	QueryType        models.QueryType
	Domain           string
	Language         string
	Location         string
	PostedWithinDays int
	WorkloadMin      int
	WorkloadMax      int
	PageSize         int
	Radius           *RadiusSearch
}

// BuildRequest combines a planned query with the profile's filters.
func BuildRequest(q models.SearchQuery, p models.SearchProfile) SearchRequest {
	req := SearchRequest{
		Query:            strings.TrimSpace(q.QueryText),
		QueryType:        q.Type,
		Domain:           q.Domain,
		Language:         q.Language,
		Location:         strings.TrimSpace(p.LocationFilter),
		PostedWithinDays: p.PostedWithinDays,
		PageSize:         defaultPageSize,
	}
	if req.PostedWithinDays <= 0 {
		req.PostedWithinDays = defaultPostedWithinDays
	}
	if req.Language == "" {
		req.Language = "en"
	}
	req.WorkloadMin, req.WorkloadMax = ParseWorkload(p.WorkloadFilter)

	if center := p.Coordinates(); center != nil {
		dist := p.MaxDistanceKm
		if dist <= 0 {
			dist = defaultRadiusKm
		}
		req.Radius = &RadiusSearch{Center: *center, DistanceKm: dist}
	}
	return req
}

// ParseWorkload parses "80-100%" or "60%" into a range. Anything unparsable
// yields 0..100.
func ParseWorkload(filter string) (int, int) {
	filter = strings.TrimSpace(strings.ReplaceAll(filter, "%", ""))
	if filter == "" {
		return 0, 100
	}

	parts := strings.SplitN(filter, "-", 2)
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 100
	}
	hi := lo
	if len(parts) == 2 {
		if hi, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return 0, 100
		}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
