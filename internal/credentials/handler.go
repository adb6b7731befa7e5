package credentials

import (
	"errors"
	"net/http"
	"time"

	"callscore_backend/platform/apperr"
	"callscore_backend/platform/httpkit"
	"callscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the integration credential admin surface.
type Handler struct {
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates the credentials HTTP handler.
func NewHandler(repo *Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

type connectRequest struct {
	Platform     string `json:"platform" validate:"required,oneof=salesloft gong"`
	BaseURL      string `json:"baseUrl" validate:"required,url"`
	AccessToken  string `json:"accessToken" validate:"omitempty"`
	RefreshToken string `json:"refreshToken" validate:"omitempty"`
	AccessKey    string `json:"accessKey" validate:"omitempty"`
	SecretKey    string `json:"secretKey" validate:"omitempty"`
}

type credentialResponse struct {
	ID        uuid.UUID `json:"id"`
	Platform  string    `json:"platform"`
	BaseURL   string    `json:"baseUrl"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(cred Credential) credentialResponse {
	return credentialResponse{
		ID:        cred.ID,
		Platform:  string(cred.Platform),
		BaseURL:   cred.BaseURL,
		IsActive:  cred.IsActive,
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.UpdatedAt,
	}
}

// List returns the tenant's active integrations. Secret material never
// leaves the service.
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	creds, err := h.repo.ListActiveByTenant(c.Request.Context(), identity.TenantID())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "list integrations failed", err))
		return
	}

	out := make([]credentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, toResponse(cred))
	}
	httpkit.OK(c, out)
}

// Connect stores a new platform credential for the tenant.
func (h *Handler) Connect(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	platform := Platform(req.Platform)
	switch platform {
	case PlatformSalesloft:
		if req.AccessToken == "" || req.RefreshToken == "" {
			httpkit.Error(c, http.StatusBadRequest, "salesloft requires accessToken and refreshToken", nil)
			return
		}
	case PlatformGong:
		if req.AccessKey == "" || req.SecretKey == "" {
			httpkit.Error(c, http.StatusBadRequest, "gong requires accessKey and secretKey", nil)
			return
		}
	}

	created, err := h.repo.Create(c.Request.Context(), Credential{
		TenantID:     identity.TenantID(),
		Platform:     platform,
		BaseURL:      req.BaseURL,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		AccessKey:    req.AccessKey,
		SecretKey:    req.SecretKey,
	})
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindConflict, "integration already connected or could not be stored", err))
		return
	}

	httpkit.JSON(c, http.StatusCreated, toResponse(created))
}

// Disconnect deactivates the tenant's credential for one platform.
func (h *Handler) Disconnect(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	platform := Platform(c.Param("platform"))
	if !platform.IsValid() {
		httpkit.Error(c, http.StatusBadRequest, "unknown platform", nil)
		return
	}

	err := h.repo.Deactivate(c.Request.Context(), identity.TenantID(), platform)
	if errors.Is(err, ErrCredentialNotFound) {
		httpkit.HandleError(c, apperr.NotFound("no active integration for platform"))
		return
	}
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "disconnect failed", err))
		return
	}

	httpkit.OK(c, gin.H{"ok": true})
}
