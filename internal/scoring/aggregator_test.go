package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"callscore_backend/internal/platforms"

	"github.com/google/uuid"
)

func cardWithScores(scores []int) CallScorecard {
	card := validCard()
	card.Scores = map[string]CategoryScore{}
	for i, s := range scores {
		card.Scores[testCategoryIDs[i]] = CategoryScore{Score: s}
	}
	return card
}

func TestOverallScoreFormula(t *testing.T) {
	// sum 58 over 9 categories: 58/90*100 = 64.44 rounds to 64
	card := cardWithScores([]int{7, 8, 6, 7, 5, 6, 4, 8, 7})
	if got := OverallScore(card); got != 64 {
		t.Fatalf("OverallScore = %d, want 64", got)
	}
}

func TestOverallScoreBounds(t *testing.T) {
	if got := OverallScore(cardWithScores([]int{10, 10, 10, 10, 10, 10, 10, 10, 10})); got != 100 {
		t.Fatalf("perfect card = %d, want 100", got)
	}
	if got := OverallScore(cardWithScores([]int{0, 0, 0, 0, 0, 0, 0, 0, 0})); got != 0 {
		t.Fatalf("zero card = %d, want 0", got)
	}
	if got := OverallScore(CallScorecard{}); got != 0 {
		t.Fatalf("empty card = %d, want 0", got)
	}
}

func TestAggregatePlatformDataWins(t *testing.T) {
	tenantID := uuid.New()
	meta := platforms.CallMetadata{
		ID:         "c-1",
		Kind:       platforms.KindMeeting,
		OccurredAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
		Sellers:    []platforms.Party{{Name: "Jane Doe", Email: "jane@acme.test"}},
		Customers:  []platforms.Party{{Name: "Sam Prospect"}},
	}
	card := validCard()
	card.Metadata = ScorecardMetadata{
		RepName:         "J. Doe",
		ProspectName:    "S. P.",
		ProspectCompany: "Prospect Co",
		CallType:        "demo",
		DealStage:       "evaluation",
	}

	review, err := Aggregate(tenantID, "salesloft", meta, card, "transcript", []byte(`{}`))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if review.RepName != "Jane Doe" {
		t.Fatalf("RepName = %q, want platform name to win", review.RepName)
	}
	if review.ProspectName != "Sam Prospect" {
		t.Fatalf("ProspectName = %q, want platform name to win", review.ProspectName)
	}
	if review.CallType != platforms.KindMeeting {
		t.Fatalf("CallType = %q, want platform kind to win", review.CallType)
	}
	// Model-only fields flow through untouched.
	if review.ProspectCompany != "Prospect Co" || review.DealStage != "evaluation" {
		t.Fatalf("model-only fields lost: %q / %q", review.ProspectCompany, review.DealStage)
	}
	if !review.CallDate.Equal(meta.OccurredAt) {
		t.Fatalf("CallDate = %v, want %v", review.CallDate, meta.OccurredAt)
	}
}

func TestAggregateModelFallback(t *testing.T) {
	meta := platforms.CallMetadata{ID: "c-2"}
	card := validCard()
	card.Metadata.RepName = "J. Doe"
	card.Metadata.ProspectName = "S. P."
	card.Metadata.CallType = "demo"

	review, err := Aggregate(uuid.New(), "gong", meta, card, "t", nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if review.RepName != "J. Doe" || review.ProspectName != "S. P." || review.CallType != "demo" {
		t.Fatalf("fallback fields = %q/%q/%q", review.RepName, review.ProspectName, review.CallType)
	}
}

func TestAggregatePlatformContext(t *testing.T) {
	meta := platforms.CallMetadata{
		ID:              "c-3",
		Kind:            platforms.KindCall,
		DurationSeconds: 1800,
		Sellers:         []platforms.Party{{Name: "Jane Doe"}},
	}

	review, err := Aggregate(uuid.New(), "gong", meta, validCard(), "t", nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var ctx map[string]interface{}
	if err := json.Unmarshal(review.PlatformContext, &ctx); err != nil {
		t.Fatalf("platform context is not valid JSON: %v", err)
	}
	if ctx["platform"] != "gong" || ctx["callKind"] != platforms.KindCall {
		t.Fatalf("platform context = %v", ctx)
	}
	if ctx["durationSeconds"].(float64) != 1800 {
		t.Fatalf("durationSeconds = %v, want 1800", ctx["durationSeconds"])
	}
}
