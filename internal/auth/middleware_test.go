package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/video-service/internal/api/http"
	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/observability"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) GetByEmailOrUsername(_ context.Context, identifier string) (*domain.User, error) {
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

func (r *memoryUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email || user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FullName = user.FullName
	stored.Username = user.Username
	stored.Email = user.Email
	return nil
}

func (r *memoryUserRepo) UpdateAvatar(_ context.Context, id, url string) error {
	return r.set(id, func(u *domain.User) { u.Avatar = url })
}

func (r *memoryUserRepo) UpdateCoverImage(_ context.Context, id, url string) error {
	return r.set(id, func(u *domain.User) { u.CoverImage = url })
}

func (r *memoryUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	return r.set(id, func(u *domain.User) { u.RefreshToken = token })
}

func (r *memoryUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return r.set(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *memoryUserRepo) set(id string, apply func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	apply(user)
	return nil
}

func newGateApp(t *testing.T, repo *memoryUserRepo) (*fiber.App, *auth.TokenManager, *bool) {
	t.Helper()

	tm, err := auth.NewTokenManager(testAuthConfig())
	require.NoError(t, err)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	gate := auth.NewMiddleware(tm, repo)
	reached := false
	app.Get("/protected", gate.Handle, func(c *fiber.Ctx) error {
		reached = true
		principal, ok := auth.PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"username": principal.Username})
	})

	return app, tm, &reached
}

func TestGate_NoToken(t *testing.T) {
	t.Parallel()

	app, _, reached := newGateApp(t, newMemoryUserRepo(testUser()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, *reached)
}

func TestGate_ExpiredToken(t *testing.T) {
	t.Parallel()

	app, _, reached := newGateApp(t, newMemoryUserRepo(testUser()))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signExpired(t, testAuthConfig().AccessTokenSecret))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, *reached)
}

func TestGate_WrongSecret(t *testing.T) {
	t.Parallel()

	app, _, reached := newGateApp(t, newMemoryUserRepo(testUser()))

	other := testAuthConfig()
	other.AccessTokenSecret = "forged"
	forgedTM, err := auth.NewTokenManager(other)
	require.NoError(t, err)
	pair, err := forgedTM.IssuePair(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, *reached)
}

func TestGate_DeletedAccount(t *testing.T) {
	t.Parallel()

	app, tm, reached := newGateApp(t, newMemoryUserRepo())

	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, *reached)
}

func TestGate_ValidToken(t *testing.T) {
	t.Parallel()

	app, tm, reached := newGateApp(t, newMemoryUserRepo(testUser()))

	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *reached)
}

func TestGate_CookieTakesPrecedence(t *testing.T) {
	t.Parallel()

	app, tm, reached := newGateApp(t, newMemoryUserRepo(testUser()))

	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: pair.AccessToken})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *reached)
}
