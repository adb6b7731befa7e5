package scoring

import (
	"encoding/json"
	"strings"
	"testing"
)

var testCategoryIDs = []string{
	"opening_and_rapport", "discovery", "active_listening",
	"value_articulation", "objection_handling", "product_knowledge",
	"call_control", "closing_and_next_steps", "professionalism",
}

func validCard() CallScorecard {
	scores := map[string]CategoryScore{}
	for _, id := range testCategoryIDs {
		scores[id] = CategoryScore{Score: 7, Details: "solid"}
	}
	return CallScorecard{
		Metadata:           ScorecardMetadata{RepName: "J. Doe"},
		Scores:             scores,
		GutCheck:           "promising call",
		Strengths:          []string{"a", "b", "c"},
		AreasOfOpportunity: []string{"d", "e"},
	}
}

func TestParseScorecardValid(t *testing.T) {
	raw, err := json.Marshal(validCard())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	card, err := ParseScorecard(raw, testCategoryIDs)
	if err != nil {
		t.Fatalf("ParseScorecard: %v", err)
	}
	if card.Scores["discovery"].Score != 7 {
		t.Fatalf("discovery score = %d, want 7", card.Scores["discovery"].Score)
	}
}

func TestParseScorecardRejectsNonJSON(t *testing.T) {
	if _, err := ParseScorecard([]byte("here is your scorecard: {"), testCategoryIDs); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestValidateRejectsMissingCategory(t *testing.T) {
	card := validCard()
	delete(card.Scores, "discovery")

	err := card.Validate(testCategoryIDs)
	if err == nil {
		t.Fatal("expected error for missing category")
	}
	if !strings.Contains(err.Error(), "categories") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsRenamedCategory(t *testing.T) {
	card := validCard()
	delete(card.Scores, "discovery")
	card.Scores["discovery_skills"] = CategoryScore{Score: 5}

	if err := card.Validate(testCategoryIDs); err == nil {
		t.Fatal("expected error for unknown category id")
	}
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	for _, bad := range []int{-1, 11} {
		card := validCard()
		card.Scores["discovery"] = CategoryScore{Score: bad}
		if err := card.Validate(testCategoryIDs); err == nil {
			t.Fatalf("expected error for score %d", bad)
		}
	}
}

func TestValidateRejectsWrongStrengthsCount(t *testing.T) {
	card := validCard()
	card.Strengths = []string{"only one"}
	if err := card.Validate(testCategoryIDs); err == nil {
		t.Fatal("expected error for wrong strengths count")
	}
}

func TestValidateRejectsWrongAreasCount(t *testing.T) {
	card := validCard()
	card.AreasOfOpportunity = []string{"one"}
	if err := card.Validate(testCategoryIDs); err == nil {
		t.Fatal("expected error for too few areas of opportunity")
	}

	card.AreasOfOpportunity = []string{"1", "2", "3", "4", "5"}
	if err := card.Validate(testCategoryIDs); err == nil {
		t.Fatal("expected error for too many areas of opportunity")
	}
}
