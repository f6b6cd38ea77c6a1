package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pipeline-api/internal/application/dto"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// StageHandler expone el registro de etapas.
type StageHandler struct {
	registry *pipeline.Registry
}

// NewStageHandler construye el handler. Con reg nil usa el registro por defecto.
func NewStageHandler(reg *pipeline.Registry) *StageHandler {
	if reg == nil {
		reg = pipeline.DefaultRegistry
	}
	return &StageHandler{registry: reg}
}

// List etapas en orden de tablero.
// GET /api/stages
func (h *StageHandler) List(c *fiber.Ctx) error {
	stages := h.registry.Stages()
	out := make([]dto.StageResponse, len(stages))
	for i, s := range stages {
		out[i] = dto.NewStageResponse(s)
	}
	return c.JSON(fiber.Map{"stages": out})
}
