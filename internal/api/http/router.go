package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-portal/internal/api/http/handlers"
	"github.com/spec-kit/account-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Sessions auth.SessionManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Get(handlers.LoginPath, cfg.Auth.LoginPage)
	app.Post(handlers.LoginPath, cfg.Auth.Login)
	app.Get(handlers.RegisterPath, cfg.Auth.RegisterPage)
	app.Post(handlers.RegisterPath, cfg.Auth.Register)
	app.Get(handlers.LogoutPath, cfg.Auth.Logout)
	app.Get(handlers.HomePath, auth.RequireAuthenticated(cfg.Sessions, handlers.LoginPath), cfg.Auth.Home)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}
