package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/api/http/handlers"
	"github.com/spec-kit/account-portal/internal/observability"
	apperrors "github.com/spec-kit/account-portal/pkg/util/errorutil"
)

const csrfCookieName = "csrf_"

// MiddlewareConfig bundles what the global middleware chain needs.
type MiddlewareConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Timeout time.Duration
	// CookieKey is the base64 AES key that encrypts every cookie.
	CookieKey    string
	CookieSecure bool
	// CSRFStorage holds issued CSRF tokens. Nil keeps them in memory.
	CSRFStorage fiber.Storage
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.CookieKey}))
	app.Use(csrf.New(csrf.Config{
		Next:           isProbe,
		KeyLookup:      "form:" + handlers.CSRFTokenKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     time.Hour,
		Storage:        cfg.CSRFStorage,
		ContextKey:     handlers.CSRFTokenKey,
	}))
}

func isProbe(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/health/")
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed",
						zap.String("request_id", observability.RequestID(c)),
						zap.String("code", domainErr.Code),
						zap.Error(domainErr))
				}
				err = renderError(c, domainErr)
			}
		}()
		return c.Next()
	}
}

// renderError writes the error page, or a JSON error envelope when the client asks for JSON.
func renderError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	c.Status(domainErr.HTTPStatus)
	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.JSON(fiber.Map{"error": fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}})
	}
	if err := c.Render("error", fiber.Map{
		"Status":  domainErr.HTTPStatus,
		"Message": domainErr.Message,
	}); err != nil {
		return c.SendString(domainErr.Message)
	}
	return nil
}
