package scraper

import (
	"sync"

	"job-matcher-go/internal/models"
)

// Deduplicator drops candidates whose identity was already seen, either in
// the existing set it was created with or earlier in the same run.
type Deduplicator struct {
	seen map[string]struct{}
	mu   sync.Mutex
}

// NewDeduplicator creates a deduplicator pre-populated with existing
// identifiers. A stored listing is known both by its platform id and by its URL.
func NewDeduplicator(existing []models.Identity) *Deduplicator {
	d := &Deduplicator{seen: make(map[string]struct{}, len(existing)*2)}
	for _, id := range existing {
		if key := id.Key(); key != "" {
			d.seen[key] = struct{}{}
		}
		if key := id.URLKey(); key != "" {
			d.seen[key] = struct{}{}
		}
	}
	return d
}

// Filter returns the candidates not seen before, in arrival order, and the
// number of duplicates dropped. Candidates without a derivable identity are
// always kept.
func (d *Deduplicator) Filter(candidates []models.Candidate) ([]models.Candidate, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	unique := make([]models.Candidate, 0, len(candidates))
	duplicates := 0
	for _, c := range candidates {
		key := models.IdentityOf(c).Key()
		if key == "" {
			unique = append(unique, c)
			continue
		}
		if _, dup := d.seen[key]; dup {
			duplicates++
			continue
		}
		d.seen[key] = struct{}{}
		unique = append(unique, c)
	}
	return unique, duplicates
}

// SeenCount returns the number of identity keys known to the deduplicator.
func (d *Deduplicator) SeenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.seen)
}

// Dedupe filters candidates against existing identifiers in one call.
func Dedupe(candidates []models.Candidate, existing []models.Identity) ([]models.Candidate, int) {
	return NewDeduplicator(existing).Filter(candidates)
}
