package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Códigos estables que consume el front. El orden importa: se evalúa con errors.Is.
var errorMappings = []errorMapping{
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized, "unauthenticated"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{domain.ErrActorNotFound, fiber.StatusForbidden, "forbidden"},
	{domain.ErrAccountInactive, fiber.StatusForbidden, "account_inactive"},
	{domain.ErrInvitationPending, fiber.StatusForbidden, "invitation_pending"},
	{domain.ErrLocalLoginDisabled, fiber.StatusForbidden, "local_login_disabled"},
	{domain.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrSSODisabled, fiber.StatusNotFound, "sso_disabled"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "invalid_payload"},
	{domain.ErrBootstrapSecretMissing, fiber.StatusBadRequest, "bootstrap_secret_missing"},
	{domain.ErrInvalidState, fiber.StatusBadRequest, "invalid_state"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "email_already_exists"},
	{domain.ErrBlobStoreDisabled, fiber.StatusServiceUnavailable, "blob_store_disabled"},
}

// NewErrorHandler traduce errores de dominio a {error, message}. Cualquier otro error es un
// 500 internal_error; el mensaje original solo viaja en detail fuera de producción.
func NewErrorHandler(log *logger.Logger, production bool) fiber.ErrorHandler {
	log = log.Component("http")
	return func(c *fiber.Ctx, err error) error {
		for _, m := range errorMappings {
			if errors.Is(err, m.err) {
				return c.Status(m.status).JSON(dto.ErrorResponse{Error: m.code, Message: m.err.Error()})
			}
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Error: fiberErrorCode(fe.Code), Message: fe.Message})
		}

		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("actor_id", actorID(c)).
			Msg("error interno")
		body := dto.ErrorResponse{Error: "internal_error", Message: "error interno"}
		if !production {
			body.Detail = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return "invalid_payload"
	}
	return "http_error"
}
