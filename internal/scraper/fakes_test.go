package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/storage"
)

type fakeProvider struct {
	name    string
	domains []string
	search  func(ctx context.Context, req sources.SearchRequest) ([]models.Candidate, error)
	calls   atomic.Int32
}

func (f *fakeProvider) Info() sources.Descriptor {
	return sources.Descriptor{Name: f.name, AcceptedDomains: f.domains}
}

func (f *fakeProvider) Search(ctx context.Context, req sources.SearchRequest) ([]models.Candidate, error) {
	f.calls.Add(1)
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, req)
}

// listingsFor returns a search func producing n listings per query, keyed by
// provider and query text.
func listingsFor(platform string, n int) func(context.Context, sources.SearchRequest) ([]models.Candidate, error) {
	return func(_ context.Context, req sources.SearchRequest) ([]models.Candidate, error) {
		out := make([]models.Candidate, n)
		for i := range out {
			out[i] = models.Candidate{
				SourcePlatform: platform,
				PlatformID:     fmt.Sprintf("%s-%d", req.Query, i),
				Title:          fmt.Sprintf("%s engineer %d", req.Query, i),
				Company:        "Acme",
			}
		}
		return out, nil
	}
}

func newTestRegistry(providers ...*fakeProvider) *sources.Registry {
	reg := sources.NewRegistry()
	for _, p := range providers {
		if err := reg.Register(p, sources.ProviderConfig{Enabled: true}); err != nil {
			panic(err)
		}
	}
	return reg
}

type fakePlanner struct {
	queries []models.SearchQuery
	err     error
}

func (f fakePlanner) Plan(context.Context, models.SearchProfile, []sources.Descriptor, int) ([]models.SearchQuery, error) {
	return f.queries, f.err
}

type fakeScorer struct {
	relevance func(title string) (models.RelevanceVerdict, error)
	affinity  func(meta models.AnalysisMetadata) (models.AffinityVerdict, error)

	affinityCalls atomic.Int32
}

func (f *fakeScorer) CheckRelevance(_ context.Context, title, _ string) (models.RelevanceVerdict, error) {
	if f.relevance == nil {
		return models.RelevanceVerdict{Relevant: true}, nil
	}
	return f.relevance(title)
}

func (f *fakeScorer) ScoreAffinity(_ context.Context, meta models.AnalysisMetadata, _ models.SearchProfile) (models.AffinityVerdict, error) {
	f.affinityCalls.Add(1)
	if f.affinity == nil {
		return models.AffinityVerdict{Score: 70, Analysis: "good match", WorthApplying: true}, nil
	}
	return f.affinity(meta)
}

// failingStore rejects every Create.
type failingStore struct {
	*storage.MemoryStore
	err error
}

func (f failingStore) Create(context.Context, models.Job) (string, error) {
	return "", f.err
}

// countingStore records how many jobs reached Create.
type countingStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	created []models.Job
}

func (c *countingStore) Create(ctx context.Context, job models.Job) (string, error) {
	c.mu.Lock()
	c.created = append(c.created, job)
	c.mu.Unlock()
	return c.MemoryStore.Create(ctx, job)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

func candidates(platform string, n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			SourcePlatform: platform,
			PlatformID:     fmt.Sprintf("%d", i+1),
			Title:          fmt.Sprintf("Listing %d", i+1),
		}
	}
	return out
}

func testProfile() models.SearchProfile {
	return models.SearchProfile{
		ID:              "profile-1",
		UserID:          "user-1",
		Name:            "Backend",
		RoleDescription: "Senior Go developer",
		MaxQueries:      10,
	}
}
