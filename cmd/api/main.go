package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/solar-crm-api/internal/application/auth"
	"github.com/jhoicas/solar-crm-api/internal/application/authz"
	"github.com/jhoicas/solar-crm-api/internal/application/ports"
	"github.com/jhoicas/solar-crm-api/internal/application/session"
	"github.com/jhoicas/solar-crm-api/internal/application/usecase"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/blob"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/memory"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/oidc"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/postgres"
	"github.com/jhoicas/solar-crm-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/solar-crm-api/internal/interfaces/http"
	"github.com/jhoicas/solar-crm-api/pkg/config"
	"github.com/jhoicas/solar-crm-api/pkg/logger"
)

// repos vista común de los dos backends de almacenamiento.
type repos struct {
	users     repository.UserRepository
	passwords repository.PasswordRepository
	perms     repository.PermissionRepository
	accounts  repository.CustomerAccountRepository
	records   repository.RecordRepository
	admin     repository.AdminTxRunner
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Str("session_store", cfg.Session.Store).
		Bool("sso", cfg.OIDC.Enabled).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		r     repos
		blobs repository.BlobStore
	)
	switch cfg.App.Storage {
	case "memory":
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		r = repos{store.Users, store.Passwords, store.Permissions, store.Accounts, store.Records, store}
		blobs = memory.NewBlobStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		store := postgres.NewStore(pool)
		r = repos{store.Users, store.Passwords, store.Permissions, store.Accounts, store.Records, store.Tx}
	}

	if cfg.Blob.Enabled() {
		s3Store, err := blob.NewS3Store(ctx, cfg.Blob)
		if err != nil {
			log.Fatal().Err(err).Msg("almacén de avatares S3")
		}
		blobs = s3Store
	} else if blobs == nil {
		log.Warn().Msg("S3_BUCKET vacío: avatares deshabilitados")
	}

	var kv repository.KVStore
	switch cfg.Session.Store {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Session.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		kv = redis.NewKVStore(client, cfg.App.Name+":")
	default:
		kv = memory.NewKVStore(nil)
	}

	sessions := session.NewManager(kv, session.Options{
		CookieName:   cfg.Session.CookieName,
		TTL:          cfg.Session.TTL,
		ChallengeTTL: cfg.Session.PKCETTL,
		Secure:       cfg.App.SecureCookies(),
	})

	// Sin SSO el login local queda habilitado; idp debe quedar como interfaz nil.
	var idp ports.IdentityProvider
	if cfg.OIDC.Enabled {
		provider, err := oidc.New(ctx, cfg.OIDC, cfg.App.BaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("descubrimiento OIDC")
		}
		idp = provider
	}

	resolver := authz.NewResolver(r.users, r.accounts, authz.EmailMatch(cfg.Auth.ProfileEmailMatch), log)
	scoper := authz.NewScoper(r.users)
	gate := authz.NewGate(scoper)

	authSvc := auth.NewService(sessions, resolver, r.users, r.passwords, idp, auth.Config{
		ClientID:        cfg.OIDC.ClientID,
		BootstrapSecret: cfg.Auth.BootstrapSecret,
	}, log)
	userUC := usecase.NewUserUseCase(r.users, r.passwords, r.perms, r.admin, blobs, scoper, gate, log)
	recordUC := usecase.NewRecordUseCase(r.records, r.users, scoper, gate, log)
	moduleSvc := usecase.NewModuleService(r.perms)

	app := httpRouter.NewApp(httpRouter.AppOptions{
		Name:         cfg.App.Name,
		Production:   cfg.App.IsProduction(),
		BodyLimit:    usecase.MaxAvatarBytes + 64<<10,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, log)

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.App.DocsPath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.App.DocsPath,
			Path:     "docs",
			Title:    "Solar CRM API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:     authSvc,
		Sessions: sessions,
		Resolver: resolver,
		UserUC:   userUC,
		RecordUC: recordUC,
		Modules:  moduleSvc,
		BaseURL:  cfg.App.BaseURL,
		Log:      log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
