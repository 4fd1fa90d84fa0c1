package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-portal/internal/domain"
)

const currentUserKey = "auth_user"

// RequireAuthenticated lets authenticated requests through with the user in locals
// and redirects anonymous ones to loginPath.
func RequireAuthenticated(sessions SessionManager, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := sessions.Current(c)
		if err != nil {
			return err
		}
		if user == nil {
			return c.Redirect(loginPath, fiber.StatusSeeOther)
		}
		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// UserFromContext retrieves the user stored by RequireAuthenticated.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
