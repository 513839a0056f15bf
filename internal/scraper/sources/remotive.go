package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/httpclient"
)

const RemotiveName = "remotive"

// RemotiveSource searches the Remotive remote-jobs API.
type RemotiveSource struct {
	client  *httpclient.HttpClient
	baseURL string
}

// NewRemotiveSource creates a new Remotive source
func NewRemotiveSource(client *httpclient.HttpClient, baseURL string) *RemotiveSource {
	if baseURL == "" {
		baseURL = "https://remotive.com/api/remote-jobs"
	}
	return &RemotiveSource{
		client:  client,
		baseURL: baseURL,
	}
}

func (r *RemotiveSource) Info() Descriptor {
	return Descriptor{
		Name:            RemotiveName,
		AcceptedDomains: []string{models.DomainIT},
		Description:     "Remote software, data and devops jobs (remotive.com)",
		RateLimit:       100,
	}
}

// RemotiveResponse represents the API response from Remotive
type RemotiveResponse struct {
	Jobs []RemotiveJob `json:"jobs"`
}

// RemotiveJob represents a job from Remotive API
type RemotiveJob struct {
	ID                        int    `json:"id"`
	URL                       string `json:"url"`
	Title                     string `json:"title"`
	CompanyName               string `json:"company_name"`
	Category                  string `json:"category"`
	JobType                   string `json:"job_type"`
	PublicationDate           string `json:"publication_date"`
	CandidateRequiredLocation string `json:"candidate_required_location"`
	Salary                    string `json:"salary"`
	Description               string `json:"description"`
}

func (r *RemotiveSource) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("search", req.Query)
	if req.PageSize > 0 {
		params.Set("limit", strconv.Itoa(req.PageSize))
	}

	resp, err := r.client.Get(ctx, r.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from Remotive: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("remotive: %w", err)
	}

	var response RemotiveResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse Remotive response: %w", err)
	}

	cutoff := postedCutoff(req.PostedWithinDays)
	candidates := make([]models.Candidate, 0, len(response.Jobs))
	for _, job := range response.Jobs {
		posted := parseRemotiveDate(job.PublicationDate)
		if posted != nil && !cutoff.IsZero() && posted.Before(cutoff) {
			continue
		}

		location := job.CandidateRequiredLocation
		if location == "" {
			location = "Remote"
		}

		candidates = append(candidates, models.Candidate{
			SourcePlatform: RemotiveName,
			PlatformID:     strconv.Itoa(job.ID),
			PlatformURL:    job.URL,
			Title:          job.Title,
			Company:        job.CompanyName,
			Location:       location,
			Description:    job.Description,
			Salary:         job.Salary,
			JobType:        remotiveJobType(job.JobType),
			PostedDate:     posted,
		})
	}

	return candidates, nil
}

// parseRemotiveDate tries the date layouts Remotive has been seen to use.
func parseRemotiveDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	formats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return &parsed
		}
	}
	return nil
}

// remotiveJobType maps Remotive job types to our standardized job types
func remotiveJobType(jobType string) string {
	jobTypeLower := strings.ToLower(jobType)

	switch {
	case strings.Contains(jobTypeLower, "full_time"), strings.Contains(jobTypeLower, "full-time"):
		return models.JobTypeFullTime
	case strings.Contains(jobTypeLower, "part_time"), strings.Contains(jobTypeLower, "part-time"):
		return models.JobTypePartTime
	case strings.Contains(jobTypeLower, "contract"):
		return models.JobTypeContract
	case strings.Contains(jobTypeLower, "freelance"):
		return models.JobTypeFreelance
	case strings.Contains(jobTypeLower, "intern"):
		return models.JobTypeInternship
	}
	return ""
}

func postedCutoff(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().AddDate(0, 0, -days)
}
