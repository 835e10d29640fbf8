package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/auth"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

// Locals keys para la sesión y el actor en Fiber.
const (
	LocalSessionToken = "session_token"
	LocalPrincipal    = "principal"
	LocalActor        = "actor"
)

// AuthMiddleware resuelve la cookie de sesión y deja el Principal en c.Locals.
// Sin sesión válida responde 401 unauthenticated.
func AuthMiddleware(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessions.CookieName())
		if token == "" {
			return domain.ErrUnauthenticated
		}
		p, err := sessions.Resolve(c.Context(), token)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrUnauthenticated
		}
		c.Locals(LocalSessionToken, token)
		c.Locals(LocalPrincipal, p)
		return c.Next()
	}
}

// RequireActor asocia el Principal a un usuario interno (o cuenta del portal) y comprueba
// que siga activo. Debe usarse DESPUÉS de AuthMiddleware. Sin perfil responde 403.
func RequireActor(resolver *authz.Resolver, svc *auth.Service, sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return domain.ErrUnauthenticated
		}
		actor, err := resolver.Resolve(c.Context(), *p)
		if err != nil {
			return err
		}
		if err := svc.CheckActive(c.Context(), GetSessionToken(c), actor); err != nil {
			if errors.Is(err, domain.ErrAccountInactive) || errors.Is(err, domain.ErrInvitationPending) {
				setCookie(c, sessions.ClearCookie())
			}
			return err
		}
		c.Locals(LocalActor, actor)
		return c.Next()
	}
}

// GetPrincipal devuelve el Principal del contexto (después de AuthMiddleware).
func GetPrincipal(c *fiber.Ctx) *entity.Principal {
	p, _ := c.Locals(LocalPrincipal).(*entity.Principal)
	return p
}

// GetActor devuelve el actor del contexto (después de RequireActor).
func GetActor(c *fiber.Ctx) *entity.Actor {
	a, _ := c.Locals(LocalActor).(*entity.Actor)
	return a
}

// GetSessionToken devuelve el token de la cookie ya validado.
func GetSessionToken(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalSessionToken).(string)
	return s
}

func actorID(c *fiber.Ctx) string {
	if a := GetActor(c); a != nil {
		return a.ID
	}
	return ""
}

func setCookie(c *fiber.Ctx, ck session.Cookie) {
	cookie := &fiber.Cookie{
		Name:     ck.Name,
		Value:    ck.Value,
		Path:     ck.Path,
		MaxAge:   ck.MaxAge,
		HTTPOnly: ck.HTTPOnly,
		Secure:   ck.Secure,
		SameSite: ck.SameSite,
	}
	if ck.MaxAge < 0 {
		// fasthttp no emite max-age negativo; la expiración en el pasado borra la cookie.
		cookie.MaxAge = 0
		cookie.Expires = time.Unix(0, 0)
	}
	c.Cookie(cookie)
}
