// Package pipeline drives the call ingestion and scoring flow across all
// tenant integrations: scheduled full runs, manual triggers, and
// webhook-targeted single calls.
package pipeline

import (
	"context"
	"errors"
	"net"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/platforms"
	"callscore_backend/internal/scoring"
)

var (
	// ErrNoTranscript means the platform has not produced a transcript yet.
	// Retryable once the underlying data changes.
	ErrNoTranscript = errors.New("transcript not yet available")
	// ErrEmptyTranscript means the transcript exists but carries no content.
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrAlreadyProcessed means the call key is terminal in the ledger.
	ErrAlreadyProcessed = errors.New("call already processed")
	// ErrCallSkipped means the call was deliberately skipped (e.g. no seller
	// attendees). Terminal, but not a fault of the caller or the service.
	ErrCallSkipped = errors.New("call skipped")
	// ErrStorageUnavailable wraps ledger or review storage failures that
	// make it unsafe to continue the run.
	ErrStorageUnavailable = errors.New("ledger or review storage unavailable")
)

// Kind classifies a per-call failure for the ledger's failure reason. The
// classes separate conditions needing operator action (credential), plain
// retries (transient network), a hung scoring call (scoring timeout), and
// bad or missing data.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredential
	KindTransientNetwork
	KindScoringTimeout
	KindData
	KindPersistence
)

// Label returns the stable reason prefix recorded in the ledger.
func (k Kind) Label() string {
	switch k {
	case KindCredential:
		return "credential_error"
	case KindTransientNetwork:
		return "transient_network_error"
	case KindScoringTimeout:
		return "scoring_timeout"
	case KindData:
		return "data_error"
	case KindPersistence:
		return "persistence_error"
	default:
		return "error"
	}
}

// Classify maps an error from any pipeline step onto the failure taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, scoring.ErrScoringTimeout):
		return KindScoringTimeout
	case errors.Is(err, credentials.ErrRefreshFailed),
		errors.Is(err, credentials.ErrCredentialNotFound):
		return KindCredential
	case errors.Is(err, ErrNoTranscript), errors.Is(err, ErrEmptyTranscript):
		return KindData
	case errors.Is(err, ErrStorageUnavailable):
		return KindPersistence
	}

	var apiErr *platforms.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403:
			return KindCredential
		case apiErr.Status == 429 || apiErr.Status >= 500:
			return KindTransientNetwork
		default:
			return KindData
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransientNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransientNetwork
	}

	// Malformed scoring output and other unexpected conditions are data
	// failures: retryable, but only useful once something changes.
	return KindData
}

// FailureReason builds the ledger error reason for a per-call failure.
func FailureReason(err error) string {
	return Classify(err).Label() + ": " + err.Error()
}
