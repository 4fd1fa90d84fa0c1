package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-portal/internal/config"
	"github.com/spec-kit/account-portal/internal/domain"
)

type fakeUsers struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	lookups int
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{users: map[int64]*domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f.users[id], nil
}

func (f *fakeUsers) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *fakeUsers) Create(_ context.Context, email, name, hash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{ID: int64(len(f.users) + 1), Email: email, Name: name, Password: hash}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUsers) put(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sessionHarness struct {
	app    *fiber.App
	users  *fakeUsers
	clock  *clock
	cookie string
}

var ada = &domain.User{ID: 7, Email: "ada@example.com", Name: "Ada"}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		users: newFakeUsers(ada),
		clock: &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	store := NewSessionStore(config.SessionConfig{CookieName: "sid", IdleTimeoutMinutes: 30}, nil)
	sessions := NewSessionManager(store, h.users, SessionOptions{MaxLifetime: time.Hour, Now: h.clock.Now})

	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		if err := sessions.Login(c, ada); err != nil {
			return err
		}
		return c.SendString("ok")
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		userID, err := sessions.Logout(c)
		if err != nil {
			return err
		}
		return c.SendString("bye:" + strconv.FormatInt(userID, 10))
	})
	app.Get("/state", func(c *fiber.Ctx) error {
		state, err := sessions.State(c)
		if err != nil {
			return err
		}
		return c.SendString(string(state))
	})
	app.Get("/flash", func(c *fiber.Ctx) error {
		if err := sessions.AddFlash(c, c.Query("msg")); err != nil {
			return err
		}
		return c.SendString("added")
	})
	app.Get("/flashes", func(c *fiber.Ctx) error {
		flashes, err := sessions.PopFlashes(c)
		if err != nil {
			return err
		}
		return c.SendString(strings.Join(flashes, "|"))
	})
	app.Get("/home", RequireAuthenticated(sessions, "/login"), func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(user.Name)
	})
	h.app = app
	return h
}

// get performs a request carrying the current cookie and keeps any cookie the response sets.
func (h *sessionHarness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if h.cookie != "" {
		req.Header.Set("Cookie", "sid="+h.cookie)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	for _, ck := range resp.Cookies() {
		if ck.Name == "sid" {
			h.cookie = ck.Value
		}
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSessionLifecycle(t *testing.T) {
	h := newSessionHarness(t)

	_, body := h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)

	h.get(t, "/login")
	_, body = h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAuthenticated), body)

	lookups := h.users.lookupCount()
	_, body = h.get(t, "/logout")
	assert.Equal(t, "bye:7", body)
	assert.Equal(t, lookups, h.users.lookupCount(), "logout reads the id without loading the user")

	_, body = h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)
}

func TestLoginRegeneratesSessionID(t *testing.T) {
	h := newSessionHarness(t)

	h.get(t, "/flash?msg=before")
	before := h.cookie
	require.NotEmpty(t, before)

	h.get(t, "/login")
	assert.NotEqual(t, before, h.cookie)

	// The pre-login id no longer authenticates.
	h.cookie = before
	_, body := h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)
}

func TestLogoutWhenAnonymousIsNoop(t *testing.T) {
	h := newSessionHarness(t)

	resp, body := h.get(t, "/logout")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "bye:0", body)
}

func TestRequireAuthenticated(t *testing.T) {
	h := newSessionHarness(t)

	resp, _ := h.get(t, "/home")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	h.get(t, "/login")
	resp, body := h.get(t, "/home")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada", body)
}

func TestSessionAbsoluteLifetime(t *testing.T) {
	h := newSessionHarness(t)

	h.get(t, "/login")
	h.clock.Advance(59 * time.Minute)
	_, body := h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAuthenticated), body)

	h.clock.Advance(2 * time.Minute)
	_, body = h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)
}

func TestVanishedUserResetsSession(t *testing.T) {
	h := newSessionHarness(t)

	h.get(t, "/login")
	h.users.remove(ada.ID)

	_, body := h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)

	// Restoring the row does not revive the destroyed session.
	h.users.put(ada)
	_, body = h.get(t, "/state")
	assert.Equal(t, string(domain.SessionAnonymous), body)
}

func TestFlashesAreOneShot(t *testing.T) {
	h := newSessionHarness(t)

	h.get(t, "/flash?msg=one")
	h.get(t, "/flash?msg=two")

	_, body := h.get(t, "/flashes")
	assert.Equal(t, "one|two", body)

	_, body = h.get(t, "/flashes")
	assert.Equal(t, "", body)
}

func TestLoginNilUser(t *testing.T) {
	store := NewSessionStore(config.SessionConfig{CookieName: "sid", IdleTimeoutMinutes: 30}, nil)
	sessions := NewSessionManager(store, newFakeUsers(), SessionOptions{})

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return sessions.Login(c, nil)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
