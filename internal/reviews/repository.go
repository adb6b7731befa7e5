package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReviewNotFound is returned when no review matches.
var ErrReviewNotFound = errors.New("call review not found")

// Repository provides data access for call reviews and reps.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new reviews repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateReview inserts a new review record and returns it with its id.
func (r *Repository) CreateReview(ctx context.Context, review Review) (Review, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO call_reviews (
			tenant_id, rep_id, rep_name, prospect_company, prospect_name,
			call_type, deal_stage, call_date, category_scores, overall_score,
			gut_check, strengths, areas_of_opportunity, transcript,
			raw_response, platform_context
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at
	`,
		review.TenantID, review.RepID, review.RepName, review.ProspectCompany,
		review.ProspectName, review.CallType, review.DealStage, review.CallDate,
		review.CategoryScores, review.OverallScore, review.GutCheck,
		review.Strengths, review.AreasOfOpportunity, review.Transcript,
		review.RawResponse, review.PlatformContext,
	).Scan(&review.ID, &review.CreatedAt)
	return review, err
}

// GetByID returns one review scoped to a tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Review, error) {
	var review Review
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, rep_id, rep_name, prospect_company, prospect_name,
		       call_type, deal_stage, call_date, category_scores, overall_score,
		       gut_check, strengths, areas_of_opportunity, transcript,
		       raw_response, platform_context, created_at
		FROM call_reviews
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&review.ID, &review.TenantID, &review.RepID, &review.RepName,
		&review.ProspectCompany, &review.ProspectName, &review.CallType,
		&review.DealStage, &review.CallDate, &review.CategoryScores,
		&review.OverallScore, &review.GutCheck, &review.Strengths,
		&review.AreasOfOpportunity, &review.Transcript, &review.RawResponse,
		&review.PlatformContext, &review.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, ErrReviewNotFound
	}
	return review, err
}

// FindOrCreateRep resolves a rep by display name within a tenant, creating
// the record on first sight. The unique constraint on (tenant_id,
// display_name) makes concurrent creation converge on one row.
func (r *Repository) FindOrCreateRep(ctx context.Context, tenantID uuid.UUID, displayName, email string) (Rep, error) {
	var rep Rep
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reps (tenant_id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, display_name)
		DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, tenant_id, display_name, email, created_at
	`, tenantID, displayName, email).Scan(
		&rep.ID, &rep.TenantID, &rep.DisplayName, &rep.Email, &rep.CreatedAt,
	)
	return rep, err
}
