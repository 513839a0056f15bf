package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
)

const plannerSystemPrompt = "You are a helpful assistant that outputs JSON. You are an expert in the Swiss job market and know job titles in German, French, Italian and English."

var seniorityPrefixes = []string{"junior ", "senior ", "lead ", "principal ", "head of ", "chief ", "staff "}

type plannedSearch struct {
	Domain   string `json:"domain"`
	Type     string `json:"type"`
	Language string `json:"language"`
	Query    string `json:"query"`
}

type planResponse struct {
	Searches []plannedSearch `json:"searches"`
}

// Planner generates search queries from a profile with a chat model.
type Planner struct {
	client *Client
	logger *zap.Logger
}

func NewPlanner(client *Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, logger: logger.Named("planner")}
}

// Plan asks the model for tagged queries. Occupation queries lose any
// seniority prefix; entries without text are dropped.
func (p *Planner) Plan(ctx context.Context, profile models.SearchProfile, providers []sources.Descriptor, maxQueries int) ([]models.SearchQuery, error) {
	prompt, err := plannerPrompt(profile, providers, maxQueries)
	if err != nil {
		return nil, err
	}

	content, err := p.client.CompleteJSON(ctx, []Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	}, 0)
	if err != nil {
		return nil, err
	}

	var resp planResponse
	if err := decodeJSON(content, &resp); err != nil {
		return nil, err
	}

	queries := make([]models.SearchQuery, 0, len(resp.Searches))
	for _, s := range resp.Searches {
		q := toQuery(s)
		if q.QueryText == "" {
			continue
		}
		queries = append(queries, q)
	}

	p.logger.Info("generated search queries",
		zap.String("profile_id", profile.ID),
		zap.String("model", p.client.Model()),
		zap.Int("count", len(queries)))
	return queries, nil
}

func toQuery(s plannedSearch) models.SearchQuery {
	q := models.SearchQuery{
		Domain:    strings.ToLower(strings.TrimSpace(s.Domain)),
		Type:      models.QueryType(strings.ToLower(strings.TrimSpace(s.Type))),
		Language:  strings.ToLower(strings.TrimSpace(s.Language)),
		QueryText: strings.TrimSpace(s.Query),
	}
	if q.Domain == "" {
		q.Domain = models.DomainGeneral
	}
	if !q.Type.Valid() {
		q.Type = models.QueryTypeKeyword
	}
	if q.Type == models.QueryTypeOccupation {
		q.QueryText = stripSeniority(q.QueryText)
	}
	return q
}

func stripSeniority(title string) string {
	lower := strings.ToLower(title)
	for _, prefix := range seniorityPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(title[len(prefix):])
		}
	}
	return title
}

func plannerPrompt(profile models.SearchProfile, providers []sources.Descriptor, maxQueries int) (string, error) {
	view, err := json.MarshalIndent(profileView(profile), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze the candidate profile in depth and generate an extensive set of search queries to find all relevant jobs.\n\n")
	b.WriteString("=== PROFILE ===\n")
	b.Write(view)
	b.WriteString("\n=== END PROFILE ===\n\n")

	b.WriteString("AVAILABLE JOB BOARDS (tag each query with a domain one of them accepts):\n")
	for _, d := range providers {
		fmt.Fprintf(&b, "- %s: domains %s. %s\n", d.Name, strings.Join(d.AcceptedDomains, ", "), d.Description)
	}

	b.WriteString(`
QUERY TYPES:
- "occupation": a base occupation title. NEVER include seniority (Junior, Senior, Lead, Principal, Head of).
- "keyword": a single skill, technology or job title.

RULES:
- Create a separate keyword query for each important skill from the CV.
- Add job titles in German, French, Italian and English.
- Do not generate locations; the user already chose one.
`)
	if maxQueries > 0 {
		fmt.Fprintf(&b, "- Generate at most %d queries.\n", maxQueries)
	}
	if profile.SearchStrategy != "" {
		fmt.Fprintf(&b, "- Follow this strategy from the user: %s\n", profile.SearchStrategy)
	}

	b.WriteString(`
JSON Format:
{"searches": [{"domain": "it", "type": "keyword", "language": "en", "query": "Golang"}]}`)
	return b.String(), nil
}

// profileView is the subset of a profile shown to the model.
func profileView(p models.SearchProfile) map[string]any {
	view := map[string]any{
		"name":             p.Name,
		"role_description": p.RoleDescription,
	}
	if p.CVContent != "" {
		view["cv"] = p.CVContent
	}
	if p.LocationFilter != "" {
		view["location"] = p.LocationFilter
	}
	if p.WorkloadFilter != "" {
		view["workload"] = p.WorkloadFilter
	}
	return view
}
