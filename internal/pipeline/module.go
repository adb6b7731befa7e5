package pipeline

import (
	apphttp "callscore_backend/internal/http"
	"callscore_backend/platform/httpkit"
	"callscore_backend/platform/validator"
)

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler      *Handler
	orchestrator *Orchestrator
}

// NewModule creates the pipeline module around an initialized orchestrator.
func NewModule(orchestrator *Orchestrator, ledgerReader LedgerReader, val *validator.Validator) *Module {
	return &Module{
		handler:      NewHandler(orchestrator, ledgerReader, val),
		orchestrator: orchestrator,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Orchestrator returns the pipeline core for the worker side.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// RegisterRoutes mounts the pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/pipeline/run", httpkit.RequireRole("admin"), m.handler.RunPipeline)
	ctx.Protected.POST("/pipeline/calls", m.handler.ProcessCall)
	ctx.Protected.GET("/pipeline/calls/:platform/:id", m.handler.CallStatus)
}
