package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/httpclient"
)

const RemoteOKName = "remoteok"

// RemoteOKSource searches the RemoteOK feed. The API has no query parameter
// for free text, so the feed is filtered locally.
type RemoteOKSource struct {
	client  *httpclient.HttpClient
	baseURL string
}

// NewRemoteOKSource creates a new RemoteOK source
func NewRemoteOKSource(client *httpclient.HttpClient, baseURL string) *RemoteOKSource {
	if baseURL == "" {
		baseURL = "https://remoteok.com/api"
	}
	return &RemoteOKSource{
		client:  client,
		baseURL: baseURL,
	}
}

func (r *RemoteOKSource) Info() Descriptor {
	return Descriptor{
		Name:            RemoteOKName,
		AcceptedDomains: []string{models.DomainIT},
		Description:     "Remote tech jobs feed (remoteok.com)",
		RateLimit:       60,
	}
}

// RemoteOKJob represents a job from RemoteOK API
type RemoteOKJob struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	ApplyURL    string    `json:"apply_url"`
	Date        time.Time `json:"date"`
	SalaryMin   int       `json:"salary_min"`
	SalaryMax   int       `json:"salary_max"`
}

func (r *RemoteOKSource) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	resp, err := r.client.Get(ctx, r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from RemoteOK: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("remoteok: %w", err)
	}

	var feed []RemoteOKJob
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse RemoteOK response: %w", err)
	}

	terms := strings.Fields(strings.ToLower(req.Query))
	cutoff := postedCutoff(req.PostedWithinDays)

	var candidates []models.Candidate
	for _, job := range feed {
		// The first element is a legal notice without an id.
		if job.ID == "" {
			continue
		}
		if !cutoff.IsZero() && !job.Date.IsZero() && job.Date.Before(cutoff) {
			continue
		}
		if !matchesTerms(terms, job) {
			continue
		}

		c := models.Candidate{
			SourcePlatform: RemoteOKName,
			PlatformID:     job.ID,
			PlatformURL:    job.URL,
			ExternalURL:    job.ApplyURL,
			Title:          job.Position,
			Company:        job.Company,
			Location:       job.Location,
			Description:    job.Description,
			Salary:         remoteOKSalary(job.SalaryMin, job.SalaryMax),
			JobType:        remoteOKJobType(job.Tags),
		}
		if c.PlatformURL == "" {
			c.PlatformURL = fmt.Sprintf("https://remoteok.com/remote-jobs/%s", job.Slug)
		}
		if c.Location == "" {
			c.Location = "Remote"
		}
		if !job.Date.IsZero() {
			posted := job.Date
			c.PostedDate = &posted
		}

		candidates = append(candidates, c)
		if req.PageSize > 0 && len(candidates) >= req.PageSize {
			break
		}
	}

	return candidates, nil
}

// matchesTerms requires every query term to appear in the position or tags.
func matchesTerms(terms []string, job RemoteOKJob) bool {
	haystack := strings.ToLower(job.Position + " " + strings.Join(job.Tags, " "))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func remoteOKSalary(lo, hi int) string {
	switch {
	case lo > 0 && hi > 0:
		return fmt.Sprintf("$%d-$%d", lo, hi)
	case hi > 0:
		return fmt.Sprintf("up to $%d", hi)
	case lo > 0:
		return fmt.Sprintf("from $%d", lo)
	}
	return ""
}

// remoteOKJobType extracts job type from tags
func remoteOKJobType(tags []string) string {
	for _, tag := range tags {
		switch strings.ToLower(tag) {
		case "full-time", "fulltime", "permanent":
			return models.JobTypeFullTime
		case "part-time", "parttime":
			return models.JobTypePartTime
		case "contract", "contractor":
			return models.JobTypeContract
		case "freelance":
			return models.JobTypeFreelance
		case "internship", "intern":
			return models.JobTypeInternship
		}
	}
	return models.JobTypeFullTime
}
