package models

import "time"

// Job is a scored listing as persisted by a Job Store.
type Job struct {
	ID               string     `json:"id,omitempty"`
	ProfileID        string     `json:"profile_id"`
	UserID           string     `json:"user_id,omitempty"`
	Platform         string     `json:"platform"`
	PlatformJobID    string     `json:"platform_job_id,omitempty"`
	Title            string     `json:"title"`
	Company          string     `json:"company"`
	Location         string     `json:"location"`
	URL              string     `json:"url"`
	Description      string     `json:"description,omitempty"`
	Salary           string     `json:"salary,omitempty"`
	PostedDate       *time.Time `json:"posted_date,omitempty"`
	JobType          string     `json:"job_type,omitempty"` // full-time, part-time, contract, freelance
	Workload         string     `json:"workload,omitempty"`
	AffinityScore    int        `json:"affinity_score"`
	AffinityAnalysis string     `json:"affinity_analysis,omitempty"`
	WorthApplying    bool       `json:"worth_applying"`
	DistanceKm       *float64   `json:"distance_km,omitempty"`
	ScrapedAt        time.Time  `json:"scraped_at"`
}

const (
	JobTypeFullTime   = "full-time"
	JobTypePartTime   = "part-time"
	JobTypeContract   = "contract"
	JobTypeFreelance  = "freelance"
	JobTypeInternship = "internship"
)

// NewJob builds the row persisted for an accepted candidate.
func NewJob(c Candidate, v AffinityVerdict, p SearchProfile) Job {
	return Job{
		ProfileID:        p.ID,
		UserID:           p.Scope(),
		Platform:         c.SourcePlatform,
		PlatformJobID:    c.PlatformID,
		Title:            c.Title,
		Company:          c.Company,
		Location:         c.Location,
		URL:              c.EffectiveURL(),
		Description:      c.Description,
		Salary:           c.Salary,
		PostedDate:       c.PostedDate,
		JobType:          c.JobType,
		Workload:         c.WorkloadLabel(),
		AffinityScore:    v.Score,
		AffinityAnalysis: v.Analysis,
		WorthApplying:    v.WorthApplying,
		ScrapedAt:        time.Now().UTC(),
	}
}
