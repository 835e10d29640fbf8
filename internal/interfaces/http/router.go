package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/solar-crm-api/internal/application/auth"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// usersModule módulo de permission_grants que protege /api/usuarios.
const usersModule = "usuarios"

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth     *auth.Service
	Sessions *session.Manager
	Resolver *authz.Resolver
	UserUC   *usecase.UserUseCase
	RecordUC *usecase.RecordUseCase
	Modules  *usecase.ModuleService
	BaseURL  string
	Log      *logger.Logger
}

// AppOptions configuración de la app Fiber.
type AppOptions struct {
	Name         string
	Production   bool
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewApp crea la app Fiber con el mapeo de errores, recover y el log de peticiones.
func NewApp(opts AppOptions, log *logger.Logger) *fiber.App {
	cfg := fiber.Config{
		AppName:      opts.Name,
		ErrorHandler: NewErrorHandler(log, opts.Production),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	if opts.BodyLimit > 0 {
		cfg.BodyLimit = opts.BodyLimit
	}
	app := fiber.New(cfg)
	app.Use(recover.New())
	app.Use(RequestLogger(log))
	return app
}

// Router registra todas las rutas de la API en un único punto.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	withSession := AuthMiddleware(deps.Sessions)
	withActor := RequireActor(deps.Resolver, deps.Auth, deps.Sessions)

	// Auth (público)
	authHandler := NewAuthHandler(deps.Auth, deps.Sessions, deps.Resolver, deps.UserUC, deps.BaseURL)
	authGroup := api.Group("/auth")
	authGroup.Get("/config", authHandler.Config)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/login/sso", authHandler.BeginSSO)
	authGroup.Get("/callback", authHandler.Callback)
	authGroup.Get("/me", withSession, authHandler.Me)
	api.Post("/portal/login", authHandler.PortalLogin)

	// Bootstrap: fuera del gate, protegido solo por el secreto compartido.
	api.Post("/admin/bootstrap/set-password", authHandler.Bootstrap)

	// Usuarios (sesión + actor + permisos del módulo)
	userHandler := NewUserHandler(deps.UserUC)
	users := api.Group("/usuarios", withSession, withActor, RequireModule(usersModule, deps.Modules, deps.Log))
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Get("/:id", userHandler.GetByID)
	users.Patch("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)
	users.Get("/:id/avatar", userHandler.Avatar)
	users.Put("/:id/avatar", userHandler.UploadAvatar)
	users.Get("/:id/permissions", userHandler.Grants)
	users.Put("/:id/permissions", userHandler.ReplaceGrants)

	api.Post("/admin/users/purge", withSession, withActor, userHandler.Purge)

	// Recursos de negocio: mismas cinco rutas por tipo.
	recordHandler := NewRecordHandler(deps.RecordUC)
	for _, kind := range entity.ResourceKinds() {
		g := api.Group("/"+kind.Name, withSession, withActor, RequireModule(kind.Module(), deps.Modules, deps.Log))
		g.Get("/", recordHandler.List(kind.Name))
		g.Post("/", recordHandler.Create(kind.Name))
		g.Get("/:id", recordHandler.GetByID(kind.Name))
		g.Patch("/:id", recordHandler.Update(kind.Name))
		g.Delete("/:id", recordHandler.Delete(kind.Name))
	}
}
