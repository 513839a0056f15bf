package models

// RelevanceVerdict is the stage-1 title check result.
type RelevanceVerdict struct {
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}

// AffinityVerdict is the stage-2 deep match result.
type AffinityVerdict struct {
	Score         int    `json:"affinity_score"`
	Analysis      string `json:"affinity_analysis"`
	WorthApplying bool   `json:"worth_applying"`
}

// ClampScore bounds an affinity score to 0..100.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// AnalysisMetadata is the enriched listing view handed to the affinity scorer.
type AnalysisMetadata struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Workload    string   `json:"workload,omitempty"`
	Languages   []string `json:"languages,omitempty"`
}
