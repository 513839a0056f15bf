package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"job-matcher-go/internal/models"
)

// AnyDomain in AcceptedDomains means the provider accepts every domain.
const AnyDomain = "any"

var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Provider represents a job board that can be searched.
type Provider interface {
	Info() Descriptor
	Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error)
}

// Descriptor is the static description of a provider.
type Descriptor struct {
	Name            string   `json:"name"`
	AcceptedDomains []string `json:"accepted_domains"`
	Description     string   `json:"description,omitempty"`
	RateLimit       int      `json:"rate_limit"` // requests per minute, 0 = unlimited
}

// Accepts reports whether the provider can serve queries tagged with domain.
func (d Descriptor) Accepts(domain string) bool {
	for _, accepted := range d.AcceptedDomains {
		if accepted == AnyDomain || accepted == domain {
			return true
		}
	}
	return false
}

// ProviderConfig holds per-provider runtime settings.
type ProviderConfig struct {
	Enabled   bool `json:"enabled"`
	RateLimit int  `json:"rate_limit"`
}

// Registry holds providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
	configs   map[string]ProviderConfig
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		configs:   make(map[string]ProviderConfig),
	}
}

// Register adds a provider. Names must be unique.
func (r *Registry) Register(p Provider, cfg ProviderConfig) error {
	name := p.Info().Name
	if name == "" {
		return fmt.Errorf("provider name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.order = append(r.order, name)
	r.providers[name] = p
	r.configs[name] = cfg
	return nil
}

// Get returns an enabled provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok || !r.configs[name].Enabled {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Config returns the runtime settings of a provider.
func (r *Registry) Config(name string) (ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[name]
	return cfg, ok
}

// Descriptors returns the enabled providers' descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		if !r.configs[name].Enabled {
			continue
		}
		out = append(out, r.providers[name].Info())
	}
	return out
}

// Resolve returns the names of enabled providers compatible with domain.
func (r *Registry) Resolve(domain string) []string {
	return Resolve(domain, r.Descriptors())
}

// Resolve maps a domain tag to the compatible provider names, keeping the
// order of providers. An empty result is not an error.
func Resolve(domain string, providers []Descriptor) []string {
	var names []string
	for _, d := range providers {
		if d.Accepts(domain) {
			names = append(names, d.Name)
		}
	}
	return names
}
