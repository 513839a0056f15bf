package storage

import (
	"context"
	"errors"

	"job-matcher-go/internal/models"
)

var (
	ErrProfileNotFound = errors.New("search profile not found")
	// ErrDuplicateJob is returned by Create when the scope already holds the listing.
	ErrDuplicateJob = errors.New("job already stored for this scope")
)

// JobStore persists scored jobs and answers which listings a scope has seen.
// Create must be safe for concurrent use.
type JobStore interface {
	ExistingIdentifiers(ctx context.Context, scope string) ([]models.Identity, error)
	Create(ctx context.Context, job models.Job) (string, error)
	ListJobs(ctx context.Context, profileID string) ([]models.Job, error)
}

// ProfileStore loads the search profiles runs are executed for.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (models.SearchProfile, error)
	ListScheduledProfiles(ctx context.Context) ([]models.SearchProfile, error)
}

type Store interface {
	JobStore
	ProfileStore
	Close()
}

// jobIdentity is the identity a stored job contributes to its scope's seen set.
func jobIdentity(j models.Job) models.Identity {
	return models.Identity{
		Platform:    j.Platform,
		PlatformID:  j.PlatformJobID,
		ExternalURL: j.URL,
	}
}
