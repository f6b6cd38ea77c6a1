package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pipeline-api/internal/application/billing"
	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	BoardUC   *pipelineapp.BoardUseCase
	QuoteUC   *billing.QuoteUseCase
	JournalUC *pipelineapp.JournalUseCase
	Registry  *pipeline.Registry
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	stageHandler := NewStageHandler(deps.Registry)
	api.Get("/stages", stageHandler.List)

	h := NewPipelineHandler(deps.BoardUC, deps.QuoteUC, deps.JournalUC)
	api.Get("/me/capabilities", h.Capabilities)

	board := api.Group("/pipeline")
	board.Get("/", h.Board)
	board.Get("/items", h.Items)
	board.Get("/items/:id", h.Item)
	board.Get("/facets", h.Facets)
	board.Post("/reload", h.Reload)
	board.Delete("/session", h.CloseSession)
	board.Get("/audit", h.Audit)

	// Escrituras
	board.Post("/moves", RequireCapability(CapDragDrop), h.Moves)
	board.Post("/items/:id/transition", h.Transition)
	board.Post("/items/:id/quotes", RequireCapability(CapSendQuotes), h.SendQuote)

	// Diario del servidor (solo administración)
	board.Get("/journal", RequireRole(entity.RoleOwner, entity.RoleAccessAdmin), h.Journal)
}
