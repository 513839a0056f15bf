package models

import (
	"fmt"
	"strings"
	"time"
)

// LanguageSkill is a language requirement attached to a listing.
type LanguageSkill struct {
	Code  string `json:"code"`
	Level string `json:"level,omitempty"`
}

func (l LanguageSkill) String() string {
	if l.Level == "" {
		return l.Code
	}
	return fmt.Sprintf("%s (%s)", l.Code, l.Level)
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Candidate is a single listing returned by a provider, before dedup and scoring.
type Candidate struct {
	SourcePlatform string          `json:"source_platform"`
	PlatformID     string          `json:"platform_id,omitempty"`
	ExternalURL    string          `json:"external_url,omitempty"`
	PlatformURL    string          `json:"platform_url,omitempty"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location"`
	Description    string          `json:"description,omitempty"`
	Salary         string          `json:"salary,omitempty"`
	JobType        string          `json:"job_type,omitempty"`
	WorkloadMin    int             `json:"workload_min,omitempty"`
	WorkloadMax    int             `json:"workload_max,omitempty"`
	Languages      []LanguageSkill `json:"languages,omitempty"`
	PostedDate     *time.Time      `json:"posted_date,omitempty"`
	Coordinates    *Coordinates    `json:"coordinates,omitempty"`
}

// EffectiveURL is the link a user should follow: the employer's own page when
// known, else the listing on the platform.
func (c Candidate) EffectiveURL() string {
	if c.ExternalURL != "" {
		return c.ExternalURL
	}
	return c.PlatformURL
}

// WorkloadLabel renders the workload range as "80-100%", or "" when unknown.
func (c Candidate) WorkloadLabel() string {
	switch {
	case c.WorkloadMin == 0 && c.WorkloadMax == 0:
		return ""
	case c.WorkloadMin == c.WorkloadMax || c.WorkloadMin == 0:
		return fmt.Sprintf("%d%%", c.WorkloadMax)
	default:
		return fmt.Sprintf("%d-%d%%", c.WorkloadMin, c.WorkloadMax)
	}
}

// LanguageLabels renders language requirements as "de (C1)".
func (c Candidate) LanguageLabels() []string {
	labels := make([]string, 0, len(c.Languages))
	for _, l := range c.Languages {
		if strings.TrimSpace(l.Code) == "" {
			continue
		}
		labels = append(labels, l.String())
	}
	return labels
}
