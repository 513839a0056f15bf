package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	supabase "github.com/nedpals/supabase-go"
	postgrest "github.com/nedpals/supabase-go/postgrest/pkg"

	"job-matcher-go/internal/models"
)

// SupabaseStore uses the nedpals/supabase-go SDK to persist jobs and read
// search profiles through PostgREST.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a SupabaseStore. It reads SUPABASE_URL and SUPABASE_KEY
// from environment variables if empty values are provided.
func NewSupabaseStore(supabaseURL, supabaseKey string) (*SupabaseStore, error) {
	if supabaseURL == "" {
		supabaseURL = os.Getenv("SUPABASE_URL")
	}
	if supabaseKey == "" {
		supabaseKey = os.Getenv("SUPABASE_KEY")
	}
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided via args or SUPABASE_URL / SUPABASE_KEY env vars")
	}

	client := supabase.CreateClient(supabaseURL, supabaseKey)
	return &SupabaseStore{client: client}, nil
}

type identityRow struct {
	Platform      string `json:"platform"`
	PlatformJobID string `json:"platform_job_id"`
	URL           string `json:"url"`
}

// uniqueViolation is the Postgres SQLSTATE PostgREST forwards for a unique
// constraint conflict.
const uniqueViolation = "23505"

func isConflict(err error) bool {
	var reqErr *postgrest.RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.Code == uniqueViolation || reqErr.HTTPStatusCode == http.StatusConflict
}

func (s *SupabaseStore) ExistingIdentifiers(ctx context.Context, scope string) ([]models.Identity, error) {
	var rows []identityRow
	err := s.client.DB.From("jobs").
		Select("platform", "platform_job_id", "url").
		Eq("user_id", scope).
		ExecuteWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("select identifiers: %w", err)
	}

	ids := make([]models.Identity, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, models.Identity{Platform: r.Platform, PlatformID: r.PlatformJobID, ExternalURL: r.URL})
	}
	return ids, nil
}

// Create inserts the job. Uniqueness per scope relies on the table's unique
// constraints; a conflict is reported as ErrDuplicateJob.
func (s *SupabaseStore) Create(ctx context.Context, job models.Job) (string, error) {
	if job.ScrapedAt.IsZero() {
		job.ScrapedAt = time.Now().UTC()
	}

	var results []models.Job
	if err := s.client.DB.From("jobs").Insert(job).ExecuteWithContext(ctx, &results); err != nil {
		if isConflict(err) {
			return "", ErrDuplicateJob
		}
		return "", fmt.Errorf("insert job: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].ID, nil
}

func (s *SupabaseStore) ListJobs(ctx context.Context, profileID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := s.client.DB.From("jobs").Select("*").Eq("profile_id", profileID).ExecuteWithContext(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].AffinityScore > jobs[j].AffinityScore })
	return jobs, nil
}

func (s *SupabaseStore) GetProfile(ctx context.Context, id string) (models.SearchProfile, error) {
	var profiles []models.SearchProfile
	if err := s.client.DB.From("search_profiles").Select("*").Eq("id", id).ExecuteWithContext(ctx, &profiles); err != nil {
		return models.SearchProfile{}, fmt.Errorf("select profile %s: %w", id, err)
	}
	if len(profiles) == 0 {
		return models.SearchProfile{}, ErrProfileNotFound
	}
	return profiles[0], nil
}

func (s *SupabaseStore) ListScheduledProfiles(ctx context.Context) ([]models.SearchProfile, error) {
	var profiles []models.SearchProfile
	if err := s.client.DB.From("search_profiles").Select("*").Eq("schedule_enabled", "true").ExecuteWithContext(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("select scheduled profiles: %w", err)
	}

	out := profiles[:0]
	for _, p := range profiles {
		if p.ScheduleIntervalHours > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *SupabaseStore) Close() {}
