// Package scoring provides the timeout-bounded scoring invocation and the
// aggregation of scoring output into persisted review records.
package scoring

import (
	"encoding/json"
	"fmt"
)

// ScorecardMetadata is what the scoring model inferred about the call from
// the transcript alone. Platform-sourced attendee data takes precedence over
// these fields during aggregation.
type ScorecardMetadata struct {
	RepName         string `json:"rep_name"`
	ProspectCompany string `json:"prospect_company"`
	ProspectName    string `json:"prospect_name"`
	CallType        string `json:"call_type"`
	DealStage       string `json:"deal_stage"`
}

// CategoryScore is one rubric category result.
type CategoryScore struct {
	Score   int    `json:"score"`
	Details string `json:"details"`
}

// CallScorecard is the structured output of one scoring invocation.
type CallScorecard struct {
	Metadata           ScorecardMetadata        `json:"metadata"`
	Scores             map[string]CategoryScore `json:"scores"`
	GutCheck           string                   `json:"gut_check"`
	Strengths          []string                 `json:"strengths"`
	AreasOfOpportunity []string                 `json:"areas_of_opportunity"`
}

// ParseScorecard decodes and validates raw scoring output against the fixed
// schema. Any violation is a hard per-call failure.
func ParseScorecard(raw []byte, categoryIDs []string) (CallScorecard, error) {
	var card CallScorecard
	if err := json.Unmarshal(raw, &card); err != nil {
		return CallScorecard{}, fmt.Errorf("scoring output is not valid JSON: %w", err)
	}
	if err := card.Validate(categoryIDs); err != nil {
		return CallScorecard{}, err
	}
	return card, nil
}

// Validate checks the scorecard against the fixed schema: every rubric
// category present with a 0-10 score, exactly three strengths, and two to
// four areas of opportunity.
func (c CallScorecard) Validate(categoryIDs []string) error {
	if len(c.Scores) != len(categoryIDs) {
		return fmt.Errorf("scorecard has %d categories, want %d", len(c.Scores), len(categoryIDs))
	}
	for _, id := range categoryIDs {
		score, ok := c.Scores[id]
		if !ok {
			return fmt.Errorf("scorecard missing category %q", id)
		}
		if score.Score < 0 || score.Score > 10 {
			return fmt.Errorf("category %q score %d out of range 0-10", id, score.Score)
		}
	}
	if len(c.Strengths) != 3 {
		return fmt.Errorf("scorecard has %d strengths, want 3", len(c.Strengths))
	}
	if len(c.AreasOfOpportunity) < 2 || len(c.AreasOfOpportunity) > 4 {
		return fmt.Errorf("scorecard has %d areas of opportunity, want 2-4", len(c.AreasOfOpportunity))
	}
	return nil
}

// ScoreSum returns the sum of all category scores.
func (c CallScorecard) ScoreSum() int {
	sum := 0
	for _, score := range c.Scores {
		sum += score.Score
	}
	return sum
}
