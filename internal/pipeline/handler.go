package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/ledger"
	"callscore_backend/platform/apperr"
	"callscore_backend/platform/httpkit"
	"callscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerReader exposes the ledger record lookup backing the status endpoint.
type LedgerReader interface {
	Get(ctx context.Context, tenantID uuid.UUID, callKey string) (ledger.Record, error)
}

// Handler exposes the pipeline's HTTP entry points.
type Handler struct {
	orchestrator *Orchestrator
	ledgerReader LedgerReader
	val          *validator.Validator
}

// NewHandler creates the pipeline HTTP handler.
func NewHandler(orchestrator *Orchestrator, ledgerReader LedgerReader, val *validator.Validator) *Handler {
	return &Handler{orchestrator: orchestrator, ledgerReader: ledgerReader, val: val}
}

// RunPipeline triggers a full run across all tenant integrations. Admin only;
// the run executes synchronously and returns its summary.
func (h *Handler) RunPipeline(c *gin.Context) {
	summary, err := h.orchestrator.RunAll(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "pipeline run aborted", err).WithOp("runPipeline"))
		return
	}
	httpkit.OK(c, summary)
}

// processCallRequest is the manual trigger payload. callKind is advisory:
// both platforms resolve the call from its id alone.
type processCallRequest struct {
	CallID   string `json:"callId" validate:"required"`
	CallKind string `json:"callKind" validate:"omitempty,oneof=call meeting"`
	Platform string `json:"platform" validate:"omitempty,oneof=salesloft gong"`
	TenantID string `json:"tenantId" validate:"omitempty,uuid"`
}

type processCallResponse struct {
	OK           bool      `json:"ok"`
	ReviewID     uuid.UUID `json:"reviewId"`
	OverallScore int       `json:"overallScore"`
}

// ProcessCall scores a single call on demand. The tenant comes from the
// token; admins may target another tenant explicitly.
func (h *Handler) ProcessCall(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req processCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	tenantID := identity.TenantID()
	if req.TenantID != "" {
		override, err := uuid.Parse(req.TenantID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid tenant id", nil)
			return
		}
		if override != tenantID && !identity.HasRole("admin") {
			httpkit.HandleError(c, apperr.Forbidden("cannot target another tenant"))
			return
		}
		tenantID = override
	}
	if tenantID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant id required", nil)
		return
	}

	result, err := h.orchestrator.ProcessCall(c.Request.Context(), tenantID, credentials.Platform(req.Platform), req.CallID)
	if err != nil {
		httpkit.HandleError(c, mapProcessCallError(err))
		return
	}

	httpkit.OK(c, processCallResponse{
		OK:           true,
		ReviewID:     result.ReviewID,
		OverallScore: result.OverallScore,
	})
}

type callStatusResponse struct {
	CallKey     string     `json:"callKey"`
	Status      string     `json:"status"`
	ReviewID    *uuid.UUID `json:"reviewId,omitempty"`
	ErrorReason string     `json:"errorReason,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// CallStatus returns the ledger record for one call. For webhook-submitted
// calls this is the only completion signal.
func (h *Handler) CallStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	platform := credentials.Platform(c.Param("platform"))
	if !platform.IsValid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown platform", nil)
		return
	}

	callKey := ledger.CallKey(string(platform), c.Param("id"))
	record, err := h.ledgerReader.Get(c.Request.Context(), identity.TenantID(), callKey)
	if errors.Is(err, ledger.ErrRecordNotFound) {
		httpkit.HandleError(c, apperr.NotFound("call not seen by the pipeline"))
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "load call status failed", err))
		return
	}

	httpkit.OK(c, callStatusResponse{
		CallKey:     record.CallKey,
		Status:      record.Status,
		ReviewID:    record.ReviewID,
		ErrorReason: record.ErrorReason,
		ProcessedAt: record.ProcessedAt,
	})
}

func mapProcessCallError(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		return apperr.Conflict("call already processed")
	case errors.Is(err, ErrCallSkipped):
		return apperr.Conflict(err.Error())
	case errors.Is(err, credentials.ErrCredentialNotFound):
		return apperr.NotFound("no active integration for tenant")
	case errors.Is(err, ErrStorageUnavailable):
		return apperr.Wrap(apperr.KindUnavailable, "storage unavailable", err).WithOp("processCall")
	default:
		return apperr.Wrap(apperr.KindInternal, err.Error(), err).WithOp("processCall")
	}
}
