package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/api/http/handlers"
	"github.com/spec-kit/account-portal/internal/auth"
	"github.com/spec-kit/account-portal/internal/observability"
	"github.com/spec-kit/account-portal/internal/view"
)

// ServerConfig carries everything NewApp wires together.
type ServerConfig struct {
	AppName      string
	Timeout      time.Duration
	CookieKey    string
	CookieSecure bool
	CSRFStorage  fiber.Storage

	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Sessions auth.SessionManager
	Auth     *handlers.AuthHandler
	Health   *handlers.HealthHandler
}

// NewApp builds the fiber application with views, middleware and routes.
func NewApp(cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		Views:                 view.New(),
		ViewsLayout:           view.Layout,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Timeout,
		WriteTimeout:          cfg.Timeout,
	})

	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
		Timeout:      cfg.Timeout,
		CookieKey:    cfg.CookieKey,
		CookieSecure: cfg.CookieSecure,
		CSRFStorage:  cfg.CSRFStorage,
	})
	RegisterRoutes(app, RouteConfig{
		Health:   cfg.Health,
		Auth:     cfg.Auth,
		Sessions: cfg.Sessions,
	})
	return app
}
