package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain"
)

// RecordHandler CRUD de los recursos de negocio. Un mismo handler sirve a todos los tipos;
// el tipo llega fijado desde el router.
type RecordHandler struct {
	uc *usecase.RecordUseCase
}

// NewRecordHandler construye el handler.
func NewRecordHandler(uc *usecase.RecordUseCase) *RecordHandler {
	return &RecordHandler{uc: uc}
}

// List GET /api/<kind>?limit=&offset=
func (h *RecordHandler) List(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := parsePage(c)
		items, err := h.uc.List(c.Context(), GetActor(c), kind, page)
		if err != nil {
			return err
		}
		return c.JSON(dto.ListResponse[*dto.RecordResponse]{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
	}
}

// GetByID GET /api/<kind>/:id
func (h *RecordHandler) GetByID(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := h.uc.Get(c.Context(), GetActor(c), kind, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// Create POST /api/<kind>
func (h *RecordHandler) Create(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in dto.RecordRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return domain.ErrInvalidInput
			}
		}
		out, err := h.uc.Create(c.Context(), GetActor(c), kind, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}

// Update PATCH /api/<kind>/:id
func (h *RecordHandler) Update(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in dto.RecordRequest
		if err := c.BodyParser(&in); err != nil {
			return domain.ErrInvalidInput
		}
		out, err := h.uc.Update(c.Context(), GetActor(c), kind, c.Params("id"), in)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// Delete DELETE /api/<kind>/:id
func (h *RecordHandler) Delete(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.uc.Delete(c.Context(), GetActor(c), kind, c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
