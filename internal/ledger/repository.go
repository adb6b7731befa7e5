package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound is returned when no ledger record matches.
var ErrRecordNotFound = errors.New("ledger record not found")

// Record is one ledger entry.
type Record struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CallKey     string
	Status      string
	ReviewID    *uuid.UUID
	ErrorReason string
	ClaimedAt   time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// Repository provides data access for the processed-call ledger.
type Repository struct {
	pool       *pgxpool.Pool
	staleAfter time.Duration
}

// NewRepository creates a ledger repository. staleAfter is the age beyond
// which a processing record is treated as abandoned and reclaimable.
func NewRepository(pool *pgxpool.Pool, staleAfter time.Duration) *Repository {
	return &Repository{pool: pool, staleAfter: staleAfter}
}

const claimQuery = `
	INSERT INTO call_ledger (tenant_id, call_key, status, claimed_at, error_reason)
	VALUES ($1, $2, $3, now(), '')
	ON CONFLICT (tenant_id, call_key)
	DO UPDATE SET status = $3, claimed_at = now(), error_reason = ''
`

const doneSetQuery = `
	SELECT call_key
	FROM call_ledger
	WHERE tenant_id = $1
	  AND (status IN ($2, $3) OR (status = $4 AND claimed_at > $5))
`

// Claim marks a call key as processing. An existing record for the key is
// overwritten to processing with its prior error cleared; this models
// re-claiming after a failure or a stale run, not a true lock.
func (r *Repository) Claim(ctx context.Context, tenantID uuid.UUID, callKey string) error {
	_, err := r.pool.Exec(ctx, claimQuery, tenantID, callKey, StatusProcessing)
	return err
}

// DoneSet returns the call keys excluded from further work for a tenant:
// completed and skipped records always, and processing records younger than
// the staleness threshold. Stale processing records and all failed records
// are retryable and therefore absent from the set.
func (r *Repository) DoneSet(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, doneSetQuery,
		tenantID, StatusCompleted, StatusSkipped, StatusProcessing, r.staleCutoff(time.Now()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		done[key] = struct{}{}
	}
	return done, rows.Err()
}

// staleCutoff returns the claim time before which a processing record is
// treated as abandoned and reclaimable.
func (r *Repository) staleCutoff(now time.Time) time.Time {
	return now.Add(-r.staleAfter)
}

// MarkOutcome transitions a claimed call to its terminal state.
func (r *Repository) MarkOutcome(ctx context.Context, tenantID uuid.UUID, callKey string, outcome Outcome) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_ledger
		SET status = $3, review_id = $4, error_reason = $5, processed_at = now()
		WHERE tenant_id = $1 AND call_key = $2
	`, tenantID, callKey, outcome.status(), outcome.reviewRef(), outcome.errorReason())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Get returns the ledger record for one call key. The webhook path's only
// completion signal is this record.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID, callKey string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, call_key, status, review_id, error_reason, claimed_at, processed_at, created_at
		FROM call_ledger
		WHERE tenant_id = $1 AND call_key = $2
	`, tenantID, callKey).Scan(
		&rec.ID, &rec.TenantID, &rec.CallKey, &rec.Status, &rec.ReviewID,
		&rec.ErrorReason, &rec.ClaimedAt, &rec.ProcessedAt, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}
