package webhook

import (
	apphttp "callscore_backend/internal/http"
	"callscore_backend/internal/scheduler"
	"callscore_backend/platform/config"
	"callscore_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the webhook module.
func NewModule(creds CredentialLister, enqueuer scheduler.TaskEnqueuer, cfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(creds, enqueuer, cfg.GetWebhookSharedSecret(), log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public webhook routes. The routes carry no JWT
// auth; the shared secret and rate limiter are the only gates.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(ctx.WebhookRateLimiter.RateLimit())
	group.POST("/calls/:platform", m.handler.HandleCallEvent)
}
