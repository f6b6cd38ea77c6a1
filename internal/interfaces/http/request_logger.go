package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// RequestLogger registra cada petición con su duración y el actor, si lo hay.
// Los errores 5xx salen en nivel error; el resto en debug.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		ev := log.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error().Err(err)
		}
		ev = ev.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start))
		if rid, ok := c.Locals("requestid").(string); ok {
			ev = ev.Str("request_id", rid)
		}
		if actor, ok := GetActor(c); ok {
			ev = ev.Str("actor", actor.Label()).Str("role", actor.Role)
		}
		ev.Msg("request")
		return err
	}
}
