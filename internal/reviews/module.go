package reviews

import (
	apphttp "callscore_backend/internal/http"
)

// Module is the reviews bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates the reviews module.
func NewModule(repo *Repository) *Module {
	return &Module{
		handler: NewHandler(repo),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reviews"
}

// Repository returns the review store for composition-root wiring.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the review read routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/reviews/:id", m.handler.Get)
}
