package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// moduleChecker es el contrato mínimo que necesita el middleware para verificar permisos.
// Lo implementa *usecase.ModuleService; el uso de interfaz evita el import circular.
type moduleChecker interface {
	Allows(ctx context.Context, actor *entity.Actor, module, action string) (bool, error)
}

// actionFor traduce el método HTTP a la acción del permiso.
func actionFor(method string) string {
	switch method {
	case fiber.MethodPost:
		return entity.ActionCreate
	case fiber.MethodPut, fiber.MethodPatch:
		return entity.ActionEdit
	case fiber.MethodDelete:
		return entity.ActionDelete
	}
	return entity.ActionView
}

// RequireModule devuelve un middleware Fiber que aplica los permisos por módulo del actor.
// Debe usarse DESPUÉS de RequireActor (necesita LocalActor).
//
// Comportamiento:
//   - 403 forbidden → existe un permiso para el módulo con la acción en false.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
//   - Sin fila de permiso no hay restricción adicional; la visibilidad la decide el gate.
func RequireModule(module string, checker moduleChecker, log *logger.Logger) fiber.Handler {
	log = log.Component("grants")
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return domain.ErrUnauthenticated
		}

		allowed, err := checker.Allows(c.Context(), actor, module, actionFor(c.Method()))
		if err != nil {
			log.Error().Err(err).Str("module", module).Str("actor_id", actor.ID).Msg("no se pudo verificar el permiso")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error:   "module_check_failed",
				Message: "no se pudo verificar el permiso, intente más tarde",
			})
		}
		if !allowed {
			return domain.ErrForbidden
		}
		return c.Next()
	}
}
