package scoring

import (
	"context"
	"errors"
)

// ErrScoringTimeout is returned when the scoring invocation did not finish
// within its budget. It is distinct from model-reported and parse errors so
// the ledger can record a precise reason and operators can tell a hang from
// a malformed response.
var ErrScoringTimeout = errors.New("scoring invocation timed out")

// Scorer turns a normalized transcript into a validated scorecard.
// The raw model payload is returned alongside for storage and archival.
type Scorer interface {
	Score(ctx context.Context, transcriptText string) (CallScorecard, []byte, error)
	CategoryIDs() []string
}
