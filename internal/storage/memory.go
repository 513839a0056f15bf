package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"job-matcher-go/internal/models"
)

// MemoryStore keeps everything in process memory. It backs the CLI and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     []models.Job
	profiles map[string]models.SearchProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]models.SearchProfile)}
}

// SaveProfile inserts or replaces a profile.
func (m *MemoryStore) SaveProfile(p models.SearchProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.ID] = p
}

func (m *MemoryStore) GetProfile(_ context.Context, id string) (models.SearchProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return models.SearchProfile{}, ErrProfileNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListScheduledProfiles(_ context.Context) ([]models.SearchProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.SearchProfile
	for _, p := range m.profiles {
		if p.ScheduleEnabled && p.ScheduleIntervalHours > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ExistingIdentifiers(_ context.Context, scope string) ([]models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []models.Identity
	for _, j := range m.jobs {
		if j.UserID == scope {
			ids = append(ids, jobIdentity(j))
		}
	}
	return ids, nil
}

func (m *MemoryStore) Create(_ context.Context, job models.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobIdentity(job).Key()
	if key != "" {
		for _, existing := range m.jobs {
			if existing.UserID == job.UserID && jobIdentity(existing).Key() == key {
				return "", ErrDuplicateJob
			}
		}
	}

	job.ID = uuid.NewString()
	m.jobs = append(m.jobs, job)
	return job.ID, nil
}

func (m *MemoryStore) ListJobs(_ context.Context, profileID string) ([]models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Job
	for _, j := range m.jobs {
		if j.ProfileID == profileID {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AffinityScore > out[j].AffinityScore })
	return out, nil
}

func (m *MemoryStore) Close() {}
