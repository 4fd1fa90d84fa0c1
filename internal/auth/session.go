package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"

	"github.com/spec-kit/account-portal/internal/config"
	"github.com/spec-kit/account-portal/internal/domain"
	"github.com/spec-kit/account-portal/internal/repository"
)

const (
	sessionUserKey     = "user_id"
	sessionIssuedAtKey = "issued_at"
	sessionFlashesKey  = "flashes"
)

// ErrNilUser is returned by Login when no user is supplied.
var ErrNilUser = errors.New("login requires a user")

// SessionManager binds a login session to a user id and carries flash messages.
type SessionManager interface {
	Login(c *fiber.Ctx, user *domain.User) error
	// Logout destroys the session and returns the user id it was bound to, 0 when anonymous.
	Logout(c *fiber.Ctx) (int64, error)
	// Current returns nil when the session is anonymous, expired or points at a vanished user.
	Current(c *fiber.Ctx) (*domain.User, error)
	State(c *fiber.Ctx) (domain.SessionState, error)
	AddFlash(c *fiber.Ctx, msg string) error
	PopFlashes(c *fiber.Ctx) ([]string, error)
}

// SessionOptions tunes a SessionManager.
type SessionOptions struct {
	// MaxLifetime bounds a login regardless of activity. Zero disables the bound.
	MaxLifetime time.Duration
	Now         func() time.Time
}

type sessionManager struct {
	store       *session.Store
	users       repository.UserRepository
	maxLifetime time.Duration
	now         func() time.Time
}

// NewSessionStore builds the cookie-keyed session store. A nil storage keeps sessions in memory.
func NewSessionStore(cfg config.SessionConfig, storage fiber.Storage) *session.Store {
	return session.New(session.Config{
		Expiration:     cfg.IdleTimeout(),
		Storage:        storage,
		KeyLookup:      "cookie:" + cfg.CookieName,
		CookiePath:     "/",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		KeyGenerator:   uuid.NewString,
	})
}

// NewSessionManager returns a SessionManager resolving users through users.
func NewSessionManager(store *session.Store, users repository.UserRepository, opts SessionOptions) SessionManager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &sessionManager{store: store, users: users, maxLifetime: opts.MaxLifetime, now: now}
}

// Login moves the session to a fresh id before binding it, so an id planted before login is useless.
func (m *sessionManager) Login(c *fiber.Ctx, user *domain.User) error {
	if user == nil {
		return ErrNilUser
	}
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(sessionUserKey, user.ID)
	sess.Set(sessionIssuedAtKey, m.now().Unix())
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *sessionManager) Logout(c *fiber.Ctx) (int64, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	userID, _ := sess.Get(sessionUserKey).(int64)
	if err := sess.Destroy(); err != nil {
		return 0, fmt.Errorf("destroy session: %w", err)
	}
	return userID, nil
}

func (m *sessionManager) Current(c *fiber.Ctx) (*domain.User, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	userID, ok := sess.Get(sessionUserKey).(int64)
	if !ok {
		return nil, nil
	}

	issuedAt, _ := sess.Get(sessionIssuedAtKey).(int64)
	if m.maxLifetime > 0 && m.now().Sub(time.Unix(issuedAt, 0)) > m.maxLifetime {
		return nil, m.invalidate(sess)
	}

	user, err := m.users.FindByID(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, m.invalidate(sess)
	}

	// Saving again pushes the idle expiry forward.
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

func (m *sessionManager) State(c *fiber.Ctx) (domain.SessionState, error) {
	user, err := m.Current(c)
	if err != nil {
		return domain.SessionAnonymous, err
	}
	if user == nil {
		return domain.SessionAnonymous, nil
	}
	return domain.SessionAuthenticated, nil
}

func (m *sessionManager) AddFlash(c *fiber.Ctx, msg string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	flashes, _ := sess.Get(sessionFlashesKey).([]string)
	sess.Set(sessionFlashesKey, append(flashes, msg))
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// PopFlashes returns pending flash messages and clears them.
func (m *sessionManager) PopFlashes(c *fiber.Ctx) ([]string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	flashes, _ := sess.Get(sessionFlashesKey).([]string)
	if len(flashes) == 0 {
		return nil, nil
	}
	sess.Delete(sessionFlashesKey)
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return flashes, nil
}

func (m *sessionManager) invalidate(sess *session.Session) error {
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
