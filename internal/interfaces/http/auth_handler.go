package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/auth"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/dto"
	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

const ssoLoginPath = "/api/auth/login/sso"

// AuthHandler login (SSO y local), logout, perfil propio y bootstrap.
type AuthHandler struct {
	svc      *auth.Service
	sessions *session.Manager
	resolver *authz.Resolver
	users    *usecase.UserUseCase
	baseURL  string
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(svc *auth.Service, sessions *session.Manager, resolver *authz.Resolver, users *usecase.UserUseCase, baseURL string) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, resolver: resolver, users: users, baseURL: baseURL}
}

// Config godoc
// @Summary      Modo de login disponible
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.AuthConfigResponse
// @Router       /api/auth/config [get]
func (h *AuthHandler) Config(c *fiber.Ctx) error {
	out := dto.AuthConfigResponse{SSOEnabled: h.svc.SSOEnabled(), LocalLoginEnabled: !h.svc.SSOEnabled()}
	if out.SSOEnabled {
		out.LoginURL = ssoLoginPath
	}
	return c.JSON(out)
}

// Login godoc
// @Summary      Login local del personal (solo con SSO deshabilitado)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.MeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	res, err := h.svc.LocalLogin(c.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.startSession(c, res)
}

// PortalLogin godoc
// @Summary      Login del portal de clientes
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.MeResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/portal/login [post]
func (h *AuthHandler) PortalLogin(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrInvalidInput
	}
	res, err := h.svc.CustomerLogin(c.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.startSession(c, res)
}

func (h *AuthHandler) startSession(c *fiber.Ctx, res *auth.LoginResult) error {
	setCookie(c, h.sessions.Cookie(res.Token))
	out := dto.MeResponse{
		Email:  res.Principal.Email,
		Name:   res.Principal.Name,
		Roles:  res.Principal.Roles,
		Source: res.Principal.Source,
	}
	if res.Actor != nil {
		out.Role = res.Actor.Role
		out.CustomerID = res.Actor.CustomerID
	}
	return c.JSON(out)
}

// Logout godoc
// @Summary      Cerrar sesión (idempotente)
// @Tags         auth
// @Success      200
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.Context(), c.Cookies(h.sessions.CookieName())); err != nil {
		return err
	}
	setCookie(c, h.sessions.ClearCookie())
	return c.JSON(fiber.Map{"ok": true})
}

// BeginSSO redirige al proveedor de identidad con el desafío PKCE.
func (h *AuthHandler) BeginSSO(c *fiber.Ctx) error {
	url, err := h.svc.BeginLogin(c.Context())
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Callback canjea el código, crea la sesión y vuelve al front.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if c.Query("error") != "" {
		return domain.ErrInvalidCredentials
	}
	res, err := h.svc.CompleteLogin(c.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		return err
	}
	setCookie(c, h.sessions.Cookie(res.Token))
	return c.Redirect(strings.TrimRight(h.baseURL, "/")+"/", fiber.StatusFound)
}

// Me godoc
// @Summary      Perfil del actor de la sesión
// @Description  Primer acceso de un principal del personal sin perfil: se crea como vendedor.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.MeResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p := GetPrincipal(c)
	if p == nil {
		return domain.ErrUnauthenticated
	}
	var (
		actor   *entity.Actor
		created bool
		err     error
	)
	if p.IsCustomer() {
		actor, err = h.resolver.Resolve(c.Context(), *p)
	} else {
		actor, created, err = h.resolver.GetOrCreate(c.Context(), *p)
	}
	if err != nil {
		return err
	}
	if err := h.svc.CheckActive(c.Context(), GetSessionToken(c), actor); err != nil {
		setCookie(c, h.sessions.ClearCookie())
		return err
	}
	c.Locals(LocalActor, actor)

	out := dto.MeResponse{
		CustomerID: actor.CustomerID,
		Email:      actor.Email,
		Name:       actor.Name,
		Role:       actor.Role,
		Roles:      p.Roles,
		Source:     p.Source,
		Created:    created,
	}
	if actor.Role != entity.RoleCustomer {
		if out.User, err = h.users.Get(c.Context(), actor, actor.ID); err != nil {
			return err
		}
	}
	return c.JSON(out)
}

// Bootstrap godoc
// @Summary      Fijar contraseña con el secreto de bootstrap
// @Description  No usa sesión. Con el secreto del servidor vacío responde siempre 400 bootstrap_secret_missing.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  auth.BootstrapInput  true  "id o email, password, secret"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/admin/bootstrap/set-password [post]
func (h *AuthHandler) Bootstrap(c *fiber.Ctx) error {
	var in auth.BootstrapInput
	if err := c.BodyParser(&in); err != nil {
		// El secreto se evalúa antes que el cuerpo: un cuerpo ilegible equivale a no enviar secreto.
		in = auth.BootstrapInput{}
	}
	u, err := h.svc.SetPasswordBootstrap(c.Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "id": u.ID})
}
