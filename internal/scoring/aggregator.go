package scoring

import (
	"encoding/json"
	"fmt"
	"math"

	"callscore_backend/internal/platforms"
	"callscore_backend/internal/reviews"

	"github.com/google/uuid"
)

// platformContext is the opaque auxiliary enrichment attached to a review.
type platformContext struct {
	Platform        string            `json:"platform"`
	CallKind        string            `json:"callKind"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	Sellers         []platforms.Party `json:"sellers,omitempty"`
	Customers       []platforms.Party `json:"customers,omitempty"`
}

// Aggregate assembles a review record from the scorecard and the platform
// call metadata. Platform-sourced attendee data is authoritative and
// overrides model-inferred rep and prospect fields; model values are used
// only as fallback.
func Aggregate(tenantID uuid.UUID, platform string, meta platforms.CallMetadata, card CallScorecard, transcriptText string, rawResponse []byte) (reviews.Review, error) {
	scoresJSON, err := json.Marshal(card.Scores)
	if err != nil {
		return reviews.Review{}, fmt.Errorf("encode category scores: %w", err)
	}

	contextJSON, err := json.Marshal(platformContext{
		Platform:        platform,
		CallKind:        meta.Kind,
		DurationSeconds: meta.DurationSeconds,
		Sellers:         meta.Sellers,
		Customers:       meta.Customers,
	})
	if err != nil {
		return reviews.Review{}, fmt.Errorf("encode platform context: %w", err)
	}

	return reviews.Review{
		TenantID:           tenantID,
		RepName:            firstNonEmpty(firstPartyName(meta.Sellers), card.Metadata.RepName),
		ProspectName:       firstNonEmpty(firstPartyName(meta.Customers), card.Metadata.ProspectName),
		ProspectCompany:    card.Metadata.ProspectCompany,
		CallType:           firstNonEmpty(meta.Kind, card.Metadata.CallType),
		DealStage:          card.Metadata.DealStage,
		CallDate:           meta.OccurredAt,
		CategoryScores:     scoresJSON,
		OverallScore:       OverallScore(card),
		GutCheck:           card.GutCheck,
		Strengths:          card.Strengths,
		AreasOfOpportunity: card.AreasOfOpportunity,
		Transcript:         transcriptText,
		RawResponse:        rawResponse,
		PlatformContext:    contextJSON,
	}, nil
}

// OverallScore maps the per-category 0-10 scores onto a 0-100 scale:
// round(sum / maxTotal * 100), where maxTotal is 10 per category.
func OverallScore(card CallScorecard) int {
	maxTotal := len(card.Scores) * 10
	if maxTotal == 0 {
		return 0
	}
	return int(math.Round(float64(card.ScoreSum()) / float64(maxTotal) * 100))
}

func firstPartyName(parties []platforms.Party) string {
	for _, p := range parties {
		if p.Name != "" {
			return p.Name
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
