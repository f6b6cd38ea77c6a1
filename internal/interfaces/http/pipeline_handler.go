package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pipeline-api/internal/application/billing"
	"github.com/jhoicas/pipeline-api/internal/application/dto"
	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// PipelineHandler maneja las peticiones HTTP del tablero (protegido).
type PipelineHandler struct {
	board   *pipelineapp.BoardUseCase
	quotes  *billing.QuoteUseCase
	journal *pipelineapp.JournalUseCase
}

// NewPipelineHandler construye el handler.
func NewPipelineHandler(board *pipelineapp.BoardUseCase, quotes *billing.QuoteUseCase, journal *pipelineapp.JournalUseCase) *PipelineHandler {
	return &PipelineHandler{board: board, quotes: quotes, journal: journal}
}

// actorContext devuelve el actor y un contexto que lo transporta hasta el cliente del backend.
func actorContext(c *fiber.Ctx) (entity.Actor, context.Context, bool) {
	actor, ok := GetActor(c)
	if !ok {
		return entity.Actor{}, nil, false
	}
	return actor, domain.WithActor(c.UserContext(), actor), true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// criteriaFromQuery lee q, salesperson, stage, job_type y date.
func criteriaFromQuery(c *fiber.Ctx) (pipeline.Criteria, error) {
	window, err := pipeline.ParseDateWindow(c.Query("date"))
	if err != nil {
		return pipeline.Criteria{}, errors.Join(domain.ErrInvalidInput, err)
	}
	return pipeline.Criteria{
		Query:       c.Query("q"),
		Salesperson: c.Query("salesperson"),
		Stage:       c.Query("stage"),
		JobType:     c.Query("job_type"),
		Date:        window,
	}, nil
}

// Capabilities capacidades del rol del actor.
// GET /api/me/capabilities
func (h *PipelineHandler) Capabilities(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{
		"role":         actor.Role,
		"capabilities": h.board.Capabilities(actor),
	})
}

// Board tablero por columnas con los items visibles.
// GET /api/pipeline
func (h *PipelineHandler) Board(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	board, err := h.board.Board(ctx, actor, criteria)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBoardResponse(board))
}

// Items lista plana filtrada.
// GET /api/pipeline/items
func (h *PipelineHandler) Items(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	views, err := h.board.Items(ctx, actor, criteria)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewItemListResponse(views))
}

// Item detalle de un item visible.
// GET /api/pipeline/items/:id
func (h *PipelineHandler) Item(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.board.Item(ctx, actor, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewItemResponse(view))
}

// Facets valores distintos para los filtros.
// GET /api/pipeline/facets
func (h *PipelineHandler) Facets(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	facets, err := h.board.Facets(ctx, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewFacetsResponse(facets))
}

// Reload recarga el tablero desde el backend sin caché.
// POST /api/pipeline/reload
func (h *PipelineHandler) Reload(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	if _, err := h.board.Reload(ctx, actor); err != nil {
		return writeError(c, err)
	}
	board, err := h.board.Board(ctx, actor, pipeline.Criteria{})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBoardResponse(board))
}

// CloseSession descarta la sesión del actor.
// DELETE /api/pipeline/session
func (h *PipelineHandler) CloseSession(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	h.board.Close(actor)
	return c.SendStatus(fiber.StatusNoContent)
}

// Moves lote de arrastre.
// POST /api/pipeline/moves
func (h *PipelineHandler) Moves(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.MoveBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	moves := make([]pipelineapp.Move, len(in.Moves))
	for i, m := range in.Moves {
		moves[i] = pipelineapp.Move{ItemID: m.ItemID, TargetColumn: m.TargetColumn}
	}
	res, err := h.board.Move(ctx, actor, pipelineapp.TransitionRequest{
		Moves:  moves,
		Source: entity.TransitionSourceDrag,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransitionResponse(res))
}

// Transition transición manual con motivo obligatorio.
// POST /api/pipeline/items/:id/transition
func (h *PipelineHandler) Transition(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ManualTransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.board.Move(ctx, actor, pipelineapp.TransitionRequest{
		Moves:  []pipelineapp.Move{{ItemID: c.Params("id"), TargetColumn: in.TargetColumn}},
		Source: entity.TransitionSourceManual,
		Reason: in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTransitionResponse(res))
}

// SendQuote envía el presupuesto de un trabajo.
// POST /api/pipeline/items/:id/quotes
func (h *PipelineHandler) SendQuote(c *fiber.Ctx) error {
	actor, ctx, ok := actorContext(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.SendQuoteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	sent, err := h.quotes.Send(ctx, actor, c.Params("id"), in.TemplateID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SendQuoteResponse{
		ItemID:     sent.ItemID,
		JobID:      sent.JobID,
		TemplateID: sent.TemplateID,
		SentAt:     sent.SentAt,
	})
}

// Audit últimas transiciones de la sesión.
// GET /api/pipeline/audit
func (h *PipelineHandler) Audit(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(dto.AuditListResponse{Entries: h.board.Audit(actor)})
}

// Journal filas del diario de transiciones del servidor.
// GET /api/pipeline/journal?limit=50
func (h *PipelineHandler) Journal(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "limit debe ser numérico"})
		}
		limit = n
	}
	records, err := h.journal.List(c.UserContext(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.JournalListResponse{Records: records})
}

// writeError traduce los errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var batchErr *pipelineapp.BatchError
	switch {
	case errors.As(err, &batchErr):
		failed := make([]string, len(batchErr.Failures))
		for i, f := range batchErr.Failures {
			failed[i] = f.ItemID
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.BatchErrorResponse{
			ErrorResponse: dto.ErrorResponse{Code: "BACKEND_ERROR", Message: "el backend rechazó el lote; se revirtieron todos los cambios"},
			BatchID:       batchErr.BatchID,
			Failed:        failed,
		})
	case errors.Is(err, domain.ErrReasonRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "REASON_REQUIRED", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownEntityKind):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNKNOWN_ENTITY_KIND", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownColumn), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrBackend):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "BACKEND_ERROR", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
