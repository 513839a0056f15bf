package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/httpclient"
)

const JobRoomName = "job_room"

// languageParams are the base64 encoded values of the _ng query parameter.
var languageParams = map[string]string{
	"en": "ZW4=",
	"de": "ZGU=",
	"fr": "ZnI=",
	"it": "aXQ=",
}

// JobRoomSource searches the Swiss public employment service (job-room.ch).
// It covers every profession, so it accepts all domains.
type JobRoomSource struct {
	client  *httpclient.HttpClient
	baseURL string
}

// NewJobRoomSource creates a new job-room.ch source
func NewJobRoomSource(client *httpclient.HttpClient, baseURL string) *JobRoomSource {
	if baseURL == "" {
		baseURL = "https://www.job-room.ch"
	}
	return &JobRoomSource{
		client:  client,
		baseURL: baseURL,
	}
}

func (j *JobRoomSource) Info() Descriptor {
	return Descriptor{
		Name:            JobRoomName,
		AcceptedDomains: []string{AnyDomain},
		Description:     "Swiss public employment service, all professions (job-room.ch)",
		RateLimit:       30,
	}
}

type jobRoomRadius struct {
	GeoPoint struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geoPoint"`
	Distance int `json:"distance"`
}

type jobRoomSearchPayload struct {
	WorkloadPercentageMin int            `json:"workloadPercentageMin"`
	WorkloadPercentageMax int            `json:"workloadPercentageMax"`
	Permanent             *bool          `json:"permanent"`
	CompanyName           *string        `json:"companyName"`
	OnlineSince           int            `json:"onlineSince"`
	DisplayRestricted     bool           `json:"displayRestricted"`
	ProfessionCodes       []any          `json:"professionCodes"`
	Keywords              []string       `json:"keywords"`
	CommunalCodes         []string       `json:"communalCodes"`
	CantonCodes           []string       `json:"cantonCodes"`
	RadiusSearchRequest   *jobRoomRadius `json:"radiusSearchRequest,omitempty"`
}

type jobRoomSearchResponse struct {
	Content []jobRoomHit `json:"content"`
}

type jobRoomHit struct {
	JobAdvertisement jobRoomAdvertisement `json:"jobAdvertisement"`
}

type jobRoomAdvertisement struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime"`
	JobContent  struct {
		ExternalURL     string `json:"externalUrl"`
		JobDescriptions []struct {
			LanguageIsoCode string `json:"languageIsoCode"`
			Title           string `json:"title"`
			Description     string `json:"description"`
		} `json:"jobDescriptions"`
		Company struct {
			Name string `json:"name"`
			City string `json:"city"`
		} `json:"company"`
		Location *struct {
			City        string `json:"city"`
			PostalCode  string `json:"postalCode"`
			Coordinates *struct {
				Lat flexFloat `json:"lat"`
				Lon flexFloat `json:"lon"`
			} `json:"coordinates"`
		} `json:"location"`
		Employment struct {
			Permanent             *bool `json:"permanent"`
			WorkloadPercentageMin *int  `json:"workloadPercentageMin"`
			WorkloadPercentageMax *int  `json:"workloadPercentageMax"`
		} `json:"employment"`
		LanguageSkills []struct {
			LanguageIsoCode string `json:"languageIsoCode"`
			SpokenLevel     string `json:"spokenLevel"`
			WrittenLevel    string `json:"writtenLevel"`
		} `json:"languageSkills"`
	} `json:"jobContent"`
}

func (j *JobRoomSource) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	payload := jobRoomSearchPayload{
		WorkloadPercentageMin: req.WorkloadMin,
		WorkloadPercentageMax: req.WorkloadMax,
		OnlineSince:           req.PostedWithinDays,
		ProfessionCodes:       []any{},
		Keywords:              []string{req.Query},
		CommunalCodes:         []string{},
		CantonCodes:           []string{},
	}
	if payload.WorkloadPercentageMax == 0 {
		payload.WorkloadPercentageMax = 100
	}
	if req.Radius != nil {
		radius := &jobRoomRadius{Distance: req.Radius.DistanceKm}
		radius.GeoPoint.Lat = req.Radius.Center.Lat
		radius.GeoPoint.Lon = req.Radius.Center.Lon
		payload.RadiusSearchRequest = radius
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job-room payload: %w", err)
	}

	lang, ok := languageParams[req.Language]
	if !ok {
		lang = languageParams["en"]
	}
	params := url.Values{}
	params.Set("page", "0")
	params.Set("size", strconv.Itoa(req.PageSize))
	params.Set("sort", "date_desc")
	params.Set("_ng", lang)
	endpoint := j.baseURL + "/jobadservice/api/jobAdvertisements/_search?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build job-room request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", j.baseURL)

	resp, err := j.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from job-room: %w", err)
	}
	raw, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("job-room: %w", err)
	}

	var response jobRoomSearchResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to parse job-room response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(response.Content))
	for _, hit := range response.Content {
		candidates = append(candidates, j.toCandidate(hit.JobAdvertisement, req.Language))
	}
	return candidates, nil
}

func (j *JobRoomSource) toCandidate(ad jobRoomAdvertisement, lang string) models.Candidate {
	content := ad.JobContent
	c := models.Candidate{
		SourcePlatform: JobRoomName,
		PlatformID:     ad.ID,
		ExternalURL:    content.ExternalURL,
		Company:        content.Company.Name,
	}
	if ad.ID != "" {
		c.PlatformURL = j.baseURL + "/offerten/stelle/" + ad.ID
	}

	// Prefer the description in the requested language, else the first one.
	for i, desc := range content.JobDescriptions {
		if i == 0 || desc.LanguageIsoCode == lang {
			c.Title = desc.Title
			c.Description = desc.Description
		}
		if desc.LanguageIsoCode == lang {
			break
		}
	}

	if loc := content.Location; loc != nil {
		c.Location = loc.City
		if loc.Coordinates != nil {
			lat, lon := float64(loc.Coordinates.Lat), float64(loc.Coordinates.Lon)
			if lat != 0 && lon != 0 {
				c.Coordinates = &models.Coordinates{Lat: lat, Lon: lon}
			}
		}
	}
	if c.Location == "" {
		c.Location = content.Company.City
	}

	emp := content.Employment
	c.WorkloadMin, c.WorkloadMax = 100, 100
	if emp.WorkloadPercentageMin != nil {
		c.WorkloadMin = *emp.WorkloadPercentageMin
	}
	if emp.WorkloadPercentageMax != nil {
		c.WorkloadMax = *emp.WorkloadPercentageMax
	}
	switch {
	case c.WorkloadMax < 100:
		c.JobType = models.JobTypePartTime
	case emp.Permanent != nil && !*emp.Permanent:
		c.JobType = models.JobTypeContract
	default:
		c.JobType = models.JobTypeFullTime
	}

	for _, skill := range content.LanguageSkills {
		level := skill.SpokenLevel
		if level == "" {
			level = skill.WrittenLevel
		}
		c.Languages = append(c.Languages, models.LanguageSkill{Code: skill.LanguageIsoCode, Level: level})
	}

	if ad.CreatedTime != "" {
		if created, ok := parseCreatedTime(ad.CreatedTime); ok {
			c.PostedDate = &created
		}
	}
	return c
}

// flexFloat accepts coordinates encoded either as numbers or as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// Job-Room timestamps are ISO 8601, with or without a zone. Zone-less values
// are taken as UTC.
var createdTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseCreatedTime(v string) (time.Time, bool) {
	for _, layout := range createdTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
