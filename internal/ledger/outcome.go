// Package ledger provides the processed-call ledger bounded context: a
// claim-based idempotency guard and status record for every call the
// pipeline attempts.
package ledger

import "github.com/google/uuid"

// Status values persisted in the call_ledger table.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// Outcome is the terminal result of processing one call. It is a sealed type;
// callers match on the concrete variants so new outcomes cannot slip through
// string comparisons unnoticed.
type Outcome interface {
	status() string
	errorReason() string
	reviewRef() *uuid.UUID
}

// Completed records a successfully scored call with its review reference.
type Completed struct {
	ReviewID uuid.UUID
}

func (o Completed) status() string        { return StatusCompleted }
func (o Completed) errorReason() string   { return "" }
func (o Completed) reviewRef() *uuid.UUID { return &o.ReviewID }

// Skipped records a call that was deliberately not scored. Skipped is
// terminal; the call is never considered again.
type Skipped struct {
	Reason string
}

func (o Skipped) status() string        { return StatusSkipped }
func (o Skipped) errorReason() string   { return o.Reason }
func (o Skipped) reviewRef() *uuid.UUID { return nil }

// Failed records a failure with its reason. Failed calls become eligible
// again on the next run.
type Failed struct {
	Reason string
}

func (o Failed) status() string        { return StatusFailed }
func (o Failed) errorReason() string   { return o.Reason }
func (o Failed) reviewRef() *uuid.UUID { return nil }

// CallKey builds the platform-qualified ledger key for a call.
func CallKey(platform, callID string) string {
	return platform + ":" + callID
}
