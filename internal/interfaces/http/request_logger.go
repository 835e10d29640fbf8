package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// RequestLogger registra cada petición con zerolog. Invoca el ErrorHandler de la app para que
// el status registrado sea el que recibe el cliente.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP())
		if id := actorID(c); id != "" {
			ev.Str("actor_id", id)
		}
		ev.Msg("request")
		return nil
	}
}
