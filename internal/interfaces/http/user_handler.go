package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain"
)

// UserHandler gestión del personal (/api/usuarios) y purga administrativa.
type UserHandler struct {
	uc *usecase.UserUseCase
}

// NewUserHandler construye el handler.
func NewUserHandler(uc *usecase.UserUseCase) *UserHandler {
	return &UserHandler{uc: uc}
}

func parsePage(c *fiber.Ctx) dto.PageRequest {
	var page dto.PageRequest
	_ = c.QueryParser(&page)
	page.DefaultPage()
	return page
}

// List godoc
// @Summary      Listar usuarios visibles
// @Tags         usuarios
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(50)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.ListResponse[dto.UserResponse]
// @Failure      401     {object}  dto.ErrorResponse
// @Router       /api/usuarios [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := parsePage(c)
	items, err := h.uc.List(c.Context(), GetActor(c), page)
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[*dto.UserResponse]{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// GetByID godoc
// @Summary      Obtener usuario
// @Tags         usuarios
// @Produce      json
// @Param        id   path  string  true  "ID del usuario"
// @Success      200  {object}  dto.UserResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/usuarios/{id} [get]
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear usuario del personal
// @Description  Un gerente solo crea vendedores y queda como su gerente.
// @Tags         usuarios
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateUserRequest  true  "Datos del usuario"
// @Success      201   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/usuarios [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	out, err := h.uc.Create(c.Context(), GetActor(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Modificar usuario
// @Description  role y manager_id se ignoran si el actor no es admin.
// @Tags         usuarios
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del usuario"
// @Param        body  body  dto.UpdateUserRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.UserResponse
// @Router       /api/usuarios/{id} [patch]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	out, err := h.uc.Update(c.Context(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar usuario
// @Tags         usuarios
// @Param        id   path  string  true  "ID del usuario"
// @Success      204
// @Router       /api/usuarios/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.Context(), GetActor(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadAvatar recibe la imagen en el campo multipart "avatar".
func (h *UserHandler) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return domain.ErrInvalidInput
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := h.uc.UploadAvatar(c.Context(), GetActor(c), c.Params("id"), f, fh.Size)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Avatar sirve la imagen guardada.
func (h *UserHandler) Avatar(c *fiber.Ctx) error {
	body, contentType, err := h.uc.Avatar(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="avatar"`)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.SendStream(body)
}

// Grants godoc
// @Summary      Permisos por módulo del usuario
// @Tags         usuarios
// @Produce      json
// @Param        id   path  string  true  "ID del usuario"
// @Success      200  {array}  entity.PermissionGrant
// @Router       /api/usuarios/{id}/permissions [get]
func (h *UserHandler) Grants(c *fiber.Ctx) error {
	out, err := h.uc.Grants(c.Context(), GetActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// ReplaceGrants godoc
// @Summary      Reemplazar permisos
// @Description  Borra e inserta el conjunto completo; no hace merge.
// @Tags         usuarios
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del usuario"
// @Param        body  body  dto.ReplaceGrantsRequest  true  "Permisos"
// @Success      200   {array}  entity.PermissionGrant
// @Router       /api/usuarios/{id}/permissions [put]
func (h *UserHandler) ReplaceGrants(c *fiber.Ctx) error {
	var in dto.ReplaceGrantsRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	out, err := h.uc.ReplaceGrants(c.Context(), GetActor(c), c.Params("id"), in.Permissions)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Purge godoc
// @Summary      Purga de usuarios
// @Description  Solo admin. Desactiva a todos salvo keepId y borra sus contraseñas locales y permisos. Irreversible.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PurgeRequest  true  "keepId"
// @Success      200   {object}  dto.PurgeResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/admin/users/purge [post]
func (h *UserHandler) Purge(c *fiber.Ctx) error {
	var in dto.PurgeRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	out, err := h.uc.Purge(c.Context(), GetActor(c), in.KeepID)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
