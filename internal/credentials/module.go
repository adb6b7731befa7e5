package credentials

import (
	apphttp "callscore_backend/internal/http"
	"callscore_backend/platform/validator"
)

// Module is the credentials bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates the credentials module.
func NewModule(repo *Repository, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(repo, val),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "credentials"
}

// Repository returns the credential store for composition-root wiring.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the integration management routes. Managing platform
// credentials is an admin action.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/integrations")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Connect)
	group.DELETE("/:platform", m.handler.Disconnect)
}
