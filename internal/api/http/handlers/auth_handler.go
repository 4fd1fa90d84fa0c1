package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/api/dto"
	"github.com/spec-kit/account-portal/internal/auth"
	"github.com/spec-kit/account-portal/internal/service"
	"github.com/spec-kit/account-portal/internal/validation"
	apperrors "github.com/spec-kit/account-portal/pkg/util/errorutil"
)

const (
	// CSRFTokenKey is both the form field and the locals key holding the CSRF token.
	CSRFTokenKey = "csrf_token"

	LoginPath    = "/"
	RegisterPath = "/register"
	HomePath     = "/home"
	LogoutPath   = "/logout"

	MsgRegistered = "You can login now."
)

// AuthHandler serves the login, registration, home and logout pages.
type AuthHandler struct {
	auth      *service.AuthService
	sessions  auth.SessionManager
	validator *validation.Validator
	logger    *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions auth.SessionManager, validator *validation.Validator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions, validator: validator, logger: logger}
}

// LoginPage handles GET /.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	return h.renderWithFlashes(c, "login", "Log in", &dto.LoginInput{})
}

// Login handles POST /.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	in.Normalize()

	if errs := h.validator.Validate(&in); errs != nil {
		return h.render(c, "login", fiber.Map{"Title": "Log in", "Form": &in, "Errors": errs})
	}

	user, err := h.auth.LoginUser(c.UserContext(), in.Email, in.Password)
	if errors.Is(err, apperrors.ErrCredentialMismatch) {
		return h.flashAndRedirect(c, apperrors.ErrCredentialMismatch.Message, LoginPath)
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Login(c, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Redirect(HomePath, fiber.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (h *AuthHandler) RegisterPage(c *fiber.Ctx) error {
	return h.renderWithFlashes(c, "register", "Register", &dto.RegisterInput{})
}

// Register handles POST /register. It never logs the new account in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	in.Normalize()

	if errs := h.validator.Validate(&in); errs != nil {
		return h.render(c, "register", fiber.Map{"Title": "Register", "Form": &in, "Errors": errs})
	}

	_, err := h.auth.RegisterUser(c.UserContext(), in.Email, in.Name, in.Password)
	if domainErr, ok := apperrors.AsValidationError(err); ok {
		h.logger.Debug("registration rejected", zap.String("code", domainErr.Code), zap.String("reason", domainErr.Message))
		return h.render(c, "register", fiber.Map{"Title": "Register", "Form": &in, "Errors": validation.FromDetails(domainErr.Details)})
	}
	if errors.Is(err, apperrors.ErrDuplicateAccount) {
		return h.flashAndRedirect(c, apperrors.ErrDuplicateAccount.Message, LoginPath)
	}
	if err != nil {
		return err
	}
	return h.flashAndRedirect(c, MsgRegistered, LoginPath)
}

// Home handles GET /home behind RequireAuthenticated.
func (h *AuthHandler) Home(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect(LoginPath, fiber.StatusSeeOther)
	}
	return h.render(c, "home", fiber.Map{"Title": "Home", "User": user})
}

// Logout handles GET /logout. Anonymous callers are redirected all the same.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := h.sessions.Logout(c)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.auth.Logout(c.UserContext(), userID)
	return c.Redirect(LoginPath, fiber.StatusSeeOther)
}

func (h *AuthHandler) renderWithFlashes(c *fiber.Ctx, view, title string, form interface{}) error {
	flashes, err := h.sessions.PopFlashes(c)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return h.render(c, view, fiber.Map{"Title": title, "Form": form, "Flashes": flashes})
}

func (h *AuthHandler) render(c *fiber.Ctx, view string, bind fiber.Map) error {
	bind["CSRFToken"], _ = c.Locals(CSRFTokenKey).(string)
	return c.Render(view, bind)
}

func (h *AuthHandler) flashAndRedirect(c *fiber.Ctx, msg, path string) error {
	if err := h.sessions.AddFlash(c, msg); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Redirect(path, fiber.StatusSeeOther)
}
