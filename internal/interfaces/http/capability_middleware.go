package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pipeline-api/internal/application/dto"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// Capability predicado sobre la tabla de capacidades del rol.
type Capability struct {
	Name  string
	Allow func(pipeline.Capabilities) bool
}

// Capacidades usadas por las rutas.
var (
	CapSendQuotes = Capability{Name: "canSendQuotes", Allow: func(c pipeline.Capabilities) bool { return c.CanSendQuotes }}
	CapDragDrop   = Capability{Name: "canDragDrop", Allow: func(c pipeline.Capabilities) bool { return c.CanDragDrop }}
)

// RequireCapability devuelve un middleware que verifica una capacidad del rol del actor.
// Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 401 si no hay actor en el contexto.
//   - 403 si el rol no tiene la capacidad.
func RequireCapability(capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "actor no encontrado en el contexto",
			})
		}
		if !capability.Allow(pipeline.CapabilitiesFor(actor.Role)) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "el rol '" + actor.Role + "' no tiene la capacidad " + capability.Name,
			})
		}
		return c.Next()
	}
}
