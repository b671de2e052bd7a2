package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/video-service/internal/api/http"
	"github.com/spec-kit/video-service/internal/api/http/handlers"
	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/config"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/observability"
	"github.com/spec-kit/video-service/internal/repository"
	"github.com/spec-kit/video-service/internal/service"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmailOrUsername(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == identifier || user.Username == identifier {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email || user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	return r.set(user.ID, func(u *domain.User) {
		u.FullName = user.FullName
		u.Username = user.Username
		u.Email = user.Email
	})
}

func (r *stubUserRepo) UpdateAvatar(_ context.Context, id, url string) error {
	return r.set(id, func(u *domain.User) { u.Avatar = url })
}

func (r *stubUserRepo) UpdateCoverImage(_ context.Context, id, url string) error {
	return r.set(id, func(u *domain.User) { u.CoverImage = url })
}

func (r *stubUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	return r.set(id, func(u *domain.User) { u.RefreshToken = token })
}

func (r *stubUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return r.set(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *stubUserRepo) set(id string, apply func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	apply(user)
	return nil
}

func (r *stubUserRepo) refreshTokenOf(t *testing.T, id string) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	require.True(t, ok)
	return user.RefreshToken
}

const testPassword = "correct horse battery staple"

func seedUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           "aaaaaaaa-0000-0000-0000-000000000001",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice Example",
		PasswordHash: string(hash),
	}
}

// newSessionApp wires the session routes the way main does, minus the real
// infrastructure: in-memory users, no limiter, no dispatcher.
func newSessionApp(t *testing.T, repo *stubUserRepo) *fiber.App {
	t.Helper()

	tm, err := auth.NewTokenManager(config.AuthConfig{
		AccessTokenSecret:     "access-secret",
		RefreshTokenSecret:    "refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   10,
	})
	require.NoError(t, err)

	sessions := service.NewSessionService(repo, tm, nil, nil, bcrypt.MinCost, zap.NewNop())
	handler := handlers.NewSessionsHandler(sessions)
	gate := auth.NewMiddleware(tm, repo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	users := app.Group("/api/v1/users")
	users.Post("/login", handler.Login)
	users.Post("/refresh-token", handler.Refresh)
	users.Post("/logout", gate.Handle, handler.Logout)
	users.Post("/change-password", gate.Handle, handler.ChangePassword)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginEndpoint_Success(t *testing.T) {
	t.Parallel()

	seed := seedUser(t)
	repo := newStubUserRepo(seed)
	app := newSessionApp(t, repo)

	resp := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	access := cookieByName(resp, auth.AccessTokenCookie)
	refresh := cookieByName(resp, auth.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])

	// The credential fields never leave the server.
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "refreshToken")

	assert.Equal(t, repo.refreshTokenOf(t, seed.ID), data["refreshToken"])
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	t.Parallel()

	app := newSessionApp(t, newStubUserRepo(seedUser(t)))
	resp := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INVALID_CREDENTIALS", errObj["code"])
}

func TestLoginEndpoint_UnknownUser(t *testing.T) {
	t.Parallel()

	app := newSessionApp(t, newStubUserRepo())
	resp := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "nobody",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginEndpoint_MissingIdentifier(t *testing.T) {
	t.Parallel()

	app := newSessionApp(t, newStubUserRepo(seedUser(t)))
	resp := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"password": testPassword,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshEndpoint_ViaCookie(t *testing.T) {
	t.Parallel()

	seed := seedUser(t)
	repo := newStubUserRepo(seed)
	app := newSessionApp(t, repo)

	login := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	refreshCookie := cookieByName(login, auth.RefreshTokenCookie)
	require.NotNil(t, refreshCookie)

	resp := postJSON(t, app, "/api/v1/users/refresh-token", fiber.Map{}, refreshCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rotated := cookieByName(resp, auth.RefreshTokenCookie)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refreshCookie.Value, rotated.Value)
	assert.Equal(t, rotated.Value, repo.refreshTokenOf(t, seed.ID))
}

func TestRefreshEndpoint_SupersededToken(t *testing.T) {
	t.Parallel()

	seed := seedUser(t)
	repo := newStubUserRepo(seed)
	app := newSessionApp(t, repo)

	login := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	refreshCookie := cookieByName(login, auth.RefreshTokenCookie)
	require.NotNil(t, refreshCookie)

	// A second login supersedes the first session's refresh token.
	again := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, again.StatusCode)

	resp := postJSON(t, app, "/api/v1/users/refresh-token", fiber.Map{}, refreshCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshEndpoint_NoToken(t *testing.T) {
	t.Parallel()

	app := newSessionApp(t, newStubUserRepo(seedUser(t)))
	resp := postJSON(t, app, "/api/v1/users/refresh-token", fiber.Map{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutEndpoint_Idempotent(t *testing.T) {
	t.Parallel()

	seed := seedUser(t)
	repo := newStubUserRepo(seed)
	app := newSessionApp(t, repo)

	login := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	accessCookie := cookieByName(login, auth.AccessTokenCookie)
	require.NotNil(t, accessCookie)

	first := postJSON(t, app, "/api/v1/users/logout", fiber.Map{}, accessCookie)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Empty(t, repo.refreshTokenOf(t, seed.ID))

	// The access token is still unexpired so the gate passes; logging out
	// again is a no-op.
	second := postJSON(t, app, "/api/v1/users/logout", fiber.Map{}, accessCookie)
	assert.Equal(t, http.StatusOK, second.StatusCode)
}

func TestChangePasswordEndpoint_ConfirmationMismatch(t *testing.T) {
	t.Parallel()

	app := newSessionApp(t, newStubUserRepo(seedUser(t)))

	login := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	accessCookie := cookieByName(login, auth.AccessTokenCookie)
	require.NotNil(t, accessCookie)

	resp := postJSON(t, app, "/api/v1/users/change-password", fiber.Map{
		"oldPassword":     testPassword,
		"newPassword":     "new-password",
		"confirmPassword": "different",
	}, accessCookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePasswordEndpoint_Success(t *testing.T) {
	t.Parallel()

	seed := seedUser(t)
	repo := newStubUserRepo(seed)
	app := newSessionApp(t, repo)

	login := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	accessCookie := cookieByName(login, auth.AccessTokenCookie)
	require.NotNil(t, accessCookie)

	resp := postJSON(t, app, "/api/v1/users/change-password", fiber.Map{
		"oldPassword":     testPassword,
		"newPassword":     "new-password",
		"confirmPassword": "new-password",
	}, accessCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	relogin := postJSON(t, app, "/api/v1/users/login", fiber.Map{
		"username": "alice",
		"password": "new-password",
	})
	assert.Equal(t, http.StatusOK, relogin.StatusCode)
}
