// Package platforms provides a uniform adapter interface over the external
// call recording platforms, normalizing their call listings, metadata, and
// transcripts into one shape the pipeline can consume.
package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxListPages bounds how many listing pages an adapter fetches per run,
// regardless of how much history the platform holds.
const MaxListPages = 10

// Call kinds as normalized across platforms.
const (
	KindCall    = "call"
	KindMeeting = "meeting"
)

// Party is one attendee on a call.
type Party struct {
	Name  string
	Email string
}

// CallSummary is one entry from a platform call listing.
type CallSummary struct {
	ID                  string
	Kind                string
	Title               string
	OccurredAt          time.Time
	Sellers             []Party
	Customers           []Party
	TranscriptAvailable bool
}

// CallMetadata is the full metadata for one call.
type CallMetadata struct {
	ID              string
	Kind            string
	Title           string
	OccurredAt      time.Time
	DurationSeconds int
	Sellers         []Party
	Customers       []Party
	TranscriptRef   string
}

// SpeakerTurn is one utterance in a structured transcript.
type SpeakerTurn struct {
	Speaker string
	Text    string
}

// Transcript is a raw platform transcript, either plain text or speaker turns.
type Transcript struct {
	Text  string
	Turns []SpeakerTurn
}

// IsEmpty reports whether the transcript carries no content at all.
func (t Transcript) IsEmpty() bool {
	if strings.TrimSpace(t.Text) != "" {
		return false
	}
	for _, turn := range t.Turns {
		if strings.TrimSpace(turn.Text) != "" {
			return false
		}
	}
	return true
}

// APIError is a non-2xx platform response, carrying status and body for
// failure reasons recorded in the ledger.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("platform API status %d: %s", e.Status, body)
}

// RefreshFunc obtains a fresh access token after an authorization failure.
// Adapters that support token refresh invoke it at most once per request.
type RefreshFunc func(ctx context.Context) (string, error)

// Adapter is the uniform capability interface over one call platform.
type Adapter interface {
	// Platform returns the platform identifier (e.g. "salesloft").
	Platform() string
	// ListRecentCalls pages through the platform listing newest-first and
	// returns calls that occurred within the last windowDays days. Listing
	// stops at the page cap, a short page, or the window cutoff.
	ListRecentCalls(ctx context.Context, windowDays int) ([]CallSummary, error)
	// GetCallMetadata fetches the full metadata for one call.
	GetCallMetadata(ctx context.Context, id string) (CallMetadata, error)
	// GetTranscript fetches the raw transcript by the reference found in the
	// call metadata.
	GetTranscript(ctx context.Context, transcriptRef string) (Transcript, error)
}
