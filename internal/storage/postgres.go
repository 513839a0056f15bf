package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"job-matcher-go/internal/models"
)

// PostgresStore persists jobs and profiles in Postgres.
//
// Expected tables: jobs(id uuid default gen_random_uuid(), profile_id, user_id,
// platform, platform_job_id, title, company, location, url, description,
// salary, posted_date, job_type, workload, affinity_score, affinity_analysis,
// worth_applying, distance_km, scraped_at) and search_profiles with the columns
// scanned in profileColumns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ExistingIdentifiers(ctx context.Context, scope string) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT platform, COALESCE(platform_job_id, ''), COALESCE(url, '')
		 FROM jobs
		 WHERE user_id = $1`,
		scope,
	)
	if err != nil {
		return nil, fmt.Errorf("query existing identifiers: %w", err)
	}
	defer rows.Close()

	var ids []models.Identity
	for rows.Next() {
		var id models.Identity
		if err := rows.Scan(&id.Platform, &id.PlatformID, &id.ExternalURL); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts the job unless the scope already holds a row with the same
// platform id or URL. Concurrent creates of the same listing insert once.
func (s *PostgresStore) Create(ctx context.Context, job models.Job) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (profile_id, user_id, platform, platform_job_id, title, company,
		                   location, url, description, salary, posted_date, job_type, workload,
		                   affinity_score, affinity_analysis, worth_applying, distance_km, scraped_at)
		 SELECT $1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		 WHERE NOT EXISTS (
		   SELECT 1 FROM jobs
		   WHERE user_id = $2
		     AND ((platform = $3 AND platform_job_id = NULLIF($4, '')) OR (url <> '' AND url = $8))
		 )
		 RETURNING id::text`,
		job.ProfileID, job.UserID, job.Platform, job.PlatformJobID, job.Title, job.Company,
		job.Location, job.URL, job.Description, job.Salary, job.PostedDate, job.JobType, job.Workload,
		job.AffinityScore, job.AffinityAnalysis, job.WorthApplying, job.DistanceKm, job.ScrapedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrDuplicateJob
	}
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, profileID string) ([]models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, profile_id, user_id, platform, COALESCE(platform_job_id, ''), title, company,
		        location, url, COALESCE(description, ''), COALESCE(salary, ''), posted_date,
		        COALESCE(job_type, ''), COALESCE(workload, ''), affinity_score,
		        COALESCE(affinity_analysis, ''), worth_applying, distance_km, scraped_at
		 FROM jobs
		 WHERE profile_id = $1
		 ORDER BY affinity_score DESC, scraped_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(
			&j.ID, &j.ProfileID, &j.UserID, &j.Platform, &j.PlatformJobID, &j.Title, &j.Company,
			&j.Location, &j.URL, &j.Description, &j.Salary, &j.PostedDate,
			&j.JobType, &j.Workload, &j.AffinityScore,
			&j.AffinityAnalysis, &j.WorthApplying, &j.DistanceKm, &j.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

const profileColumns = `id::text, COALESCE(user_id::text, ''), name, role_description,
	COALESCE(cv_content, ''), COALESCE(search_strategy, ''), COALESCE(location_filter, ''),
	COALESCE(workload_filter, ''), COALESCE(posted_within_days, 0), COALESCE(max_distance, 0),
	latitude, longitude, COALESCE(max_queries, 0), schedule_enabled, COALESCE(schedule_interval_hours, 0)`

func scanProfile(row pgx.Row) (models.SearchProfile, error) {
	var p models.SearchProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.RoleDescription,
		&p.CVContent, &p.SearchStrategy, &p.LocationFilter,
		&p.WorkloadFilter, &p.PostedWithinDays, &p.MaxDistanceKm,
		&p.Latitude, &p.Longitude, &p.MaxQueries, &p.ScheduleEnabled, &p.ScheduleIntervalHours,
	)
	return p, err
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (models.SearchProfile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM search_profiles WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SearchProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return models.SearchProfile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListScheduledProfiles(ctx context.Context) ([]models.SearchProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM search_profiles
		 WHERE schedule_enabled = true AND schedule_interval_hours > 0
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query scheduled profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.SearchProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
