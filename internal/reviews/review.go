// Package reviews provides storage for call review records and the
// tenant-scoped rep registry. Reviews are append-only; the transcript stored
// on a review is immutable.
package reviews

import (
	"time"

	"github.com/google/uuid"
)

// Review is one persisted call quality review.
type Review struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	RepID           *uuid.UUID
	RepName         string
	ProspectCompany string
	ProspectName    string
	CallType        string
	DealStage       string
	CallDate        time.Time

	// CategoryScores, RawResponse, and PlatformContext are stored as jsonb;
	// Strengths and AreasOfOpportunity as text arrays.
	CategoryScores     []byte
	OverallScore       int
	GutCheck           string
	Strengths          []string
	AreasOfOpportunity []string
	Transcript         string
	RawResponse        []byte
	PlatformContext    []byte

	CreatedAt time.Time
}

// Rep is a tenant-scoped sales rep identity, created lazily when first
// observed on a call. It is non-authoritative; review creation never depends
// on it succeeding.
type Rep struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	DisplayName string
	Email       string
	CreatedAt   time.Time
}
