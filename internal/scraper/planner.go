package scraper

import (
	"context"
	"errors"
	"fmt"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
)

var ErrPlanner = errors.New("query planning failed")

// Planner turns a profile into tagged search queries.
type Planner interface {
	Plan(ctx context.Context, profile models.SearchProfile, providers []sources.Descriptor, maxQueries int) ([]models.SearchQuery, error)
}

// PlanQueries calls the planner, truncates the result to maxQueries (0 means
// unlimited) and removes repeated query texts. A planner failure is returned
// wrapped in ErrPlanner.
func PlanQueries(ctx context.Context, planner Planner, profile models.SearchProfile, providers []sources.Descriptor, maxQueries int) ([]models.SearchQuery, error) {
	queries, err := planner.Plan(ctx, profile, providers, maxQueries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanner, err)
	}

	if maxQueries > 0 && len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return UniqueQueries(queries), nil
}

// UniqueQueries keeps the first occurrence of every normalized query text.
// Queries with blank text are dropped.
func UniqueQueries(queries []models.SearchQuery) []models.SearchQuery {
	seen := make(map[string]struct{}, len(queries))
	out := make([]models.SearchQuery, 0, len(queries))
	for _, q := range queries {
		key := q.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}
