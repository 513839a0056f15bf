package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"job-matcher-go/internal/models"
	"job-matcher-go/pkg/textutil"
)

const (
	relevanceMaxTokens   = 200
	roleDescriptionRunes = 300
)

// Scorer judges listings with a chat model: a cheap title check, then a
// strict affinity analysis.
type Scorer struct {
	client *Client
	logger *zap.Logger
}

func NewScorer(client *Client, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{client: client, logger: logger.Named("scorer")}
}

type relevanceAnswer struct {
	Relevant *bool  `json:"relevant"`
	Reason   string `json:"reason"`
}

// CheckRelevance asks whether title could fit roleDescription at all. An
// answer without a verdict counts as relevant.
func (s *Scorer) CheckRelevance(ctx context.Context, title, roleDescription string) (models.RelevanceVerdict, error) {
	prompt := fmt.Sprintf(`You are a job relevance filter. Determine if this job title could POSSIBLY be relevant to the candidate's target role. Be inclusive: only reject titles that are clearly in a different field.

Candidate's target: %s

Job title: %q

Rules:
- A completely different field (e.g. "Koch" for an engineering role) is NOT relevant.
- A loosely related title in the same field is relevant.
- When in doubt, mark as relevant.
- Consider German, French and Italian titles carefully.

JSON Format:
{"relevant": true, "reason": "Brief reason"}`, textutil.Truncate(roleDescription, roleDescriptionRunes), title)

	content, err := s.client.CompleteJSON(ctx, []Message{
		{Role: "system", Content: "You are a helpful assistant that outputs JSON. Be concise."},
		{Role: "user", Content: prompt},
	}, relevanceMaxTokens)
	if err != nil {
		return models.RelevanceVerdict{}, err
	}

	var answer relevanceAnswer
	if err := decodeJSON(content, &answer); err != nil {
		return models.RelevanceVerdict{}, err
	}
	verdict := models.RelevanceVerdict{Relevant: true, Reason: answer.Reason}
	if answer.Relevant != nil {
		verdict.Relevant = *answer.Relevant
	}
	return verdict, nil
}

type affinityAnswer struct {
	Score               float64 `json:"affinity_score"`
	Analysis            string  `json:"affinity_analysis"`
	WorthApplying       bool    `json:"worth_applying"`
	WorthApplyingReason string  `json:"worth_applying_reason"`
}

// ScoreAffinity rates how well a listing matches the profile on 0..100.
func (s *Scorer) ScoreAffinity(ctx context.Context, meta models.AnalysisMetadata, profile models.SearchProfile) (models.AffinityVerdict, error) {
	profileJSON, err := json.MarshalIndent(profileView(profile), "", "  ")
	if err != nil {
		return models.AffinityVerdict{}, fmt.Errorf("encode profile: %w", err)
	}
	jobJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return models.AffinityVerdict{}, fmt.Errorf("encode listing: %w", err)
	}

	prompt := fmt.Sprintf(`You are an extremely strict job matching analyst.

=== CANDIDATE PROFILE ===
%s
=== END PROFILE ===

=== JOB POSTING ===
%s
=== END JOB ===

SCORING RUBRIC:
  0-20:   completely different field
  21-40:  same broad field, major mismatch (seniority, specialization, critical requirements)
  41-60:  partial match with significant gaps
  61-75:  good match, minor gaps
  76-90:  strong match
  91-100: meets or exceeds all requirements

PENALTIES: seniority mismatch -25 to -35, missing required languages -15 to -25, wrong specialization -20.

Set worth_applying=true only when there is a genuine strategic reason to apply despite a low score.

JSON Format:
{"affinity_score": 45, "affinity_analysis": "1-2 sentences", "worth_applying": false, "worth_applying_reason": ""}`, profileJSON, jobJSON)

	content, err := s.client.CompleteJSON(ctx, []Message{
		{Role: "system", Content: "You are a helpful assistant that outputs JSON. Be strict and precise in your scoring."},
		{Role: "user", Content: prompt},
	}, 0)
	if err != nil {
		return models.AffinityVerdict{}, err
	}

	var answer affinityAnswer
	if err := decodeJSON(content, &answer); err != nil {
		return models.AffinityVerdict{}, err
	}

	analysis := strings.TrimSpace(answer.Analysis)
	if answer.WorthApplying && answer.WorthApplyingReason != "" {
		analysis = strings.TrimSpace(analysis + " Worth applying: " + answer.WorthApplyingReason)
	}
	return models.AffinityVerdict{
		Score:         models.ClampScore(int(math.Round(answer.Score))),
		Analysis:      analysis,
		WorthApplying: answer.WorthApplying,
	}, nil
}
