package reviews

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"callscore_backend/platform/apperr"
	"callscore_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes read access to stored reviews.
type Handler struct {
	repo *Repository
}

// NewHandler creates the reviews HTTP handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type reviewResponse struct {
	ID                 uuid.UUID       `json:"id"`
	RepID              *uuid.UUID      `json:"repId,omitempty"`
	RepName            string          `json:"repName"`
	ProspectCompany    string          `json:"prospectCompany"`
	ProspectName       string          `json:"prospectName"`
	CallType           string          `json:"callType"`
	DealStage          string          `json:"dealStage"`
	CallDate           time.Time       `json:"callDate"`
	CategoryScores     json.RawMessage `json:"categoryScores"`
	OverallScore       int             `json:"overallScore"`
	GutCheck           string          `json:"gutCheck"`
	Strengths          []string        `json:"strengths"`
	AreasOfOpportunity []string        `json:"areasOfOpportunity"`
	Transcript         string          `json:"transcript"`
	PlatformContext    json.RawMessage `json:"platformContext,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Get returns one review, scoped to the caller's tenant.
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid review id", nil)
		return
	}

	review, err := h.repo.GetByID(c.Request.Context(), identity.TenantID(), id)
	if errors.Is(err, ErrReviewNotFound) {
		httpkit.HandleError(c, apperr.NotFound("review not found"))
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "load review failed", err))
		return
	}

	httpkit.OK(c, reviewResponse{
		ID:                 review.ID,
		RepID:              review.RepID,
		RepName:            review.RepName,
		ProspectCompany:    review.ProspectCompany,
		ProspectName:       review.ProspectName,
		CallType:           review.CallType,
		DealStage:          review.DealStage,
		CallDate:           review.CallDate,
		CategoryScores:     json.RawMessage(review.CategoryScores),
		OverallScore:       review.OverallScore,
		GutCheck:           review.GutCheck,
		Strengths:          review.Strengths,
		AreasOfOpportunity: review.AreasOfOpportunity,
		Transcript:         review.Transcript,
		PlatformContext:    json.RawMessage(review.PlatformContext),
		CreatedAt:          review.CreatedAt,
	})
}
