package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/repository"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

const principalKey = "auth_principal"

// AccessTokenCookie and RefreshTokenCookie name the cookies carrying the
// token pair. Both are set HTTP-only and secure.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Middleware is the per-request authorization gate: it extracts the bearer
// token, verifies it and binds the sanitized account to the request context.
// Exactly one signature check and one store lookup per request; no caching,
// so revocation takes effect on the next request.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs the gate.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. Every failure kind
// collapses to a single unauthorized response so callers cannot distinguish
// expired from tampered tokens.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := BearerToken(c)
	if token == "" {
		return apperrors.NewUnauthorized("missing access token")
	}

	claims, err := m.tokens.VerifyAccess(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid access token")
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account no longer exists")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, user.Sanitized())
	return c.Next()
}

// BearerToken extracts the access token from the cookie or, failing that,
// the Authorization header. The cookie takes precedence.
func BearerToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie
	}
	return bearerFromHeader(c)
}

func bearerFromHeader(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// PrincipalFromContext retrieves the authenticated account bound by Handle.
func PrincipalFromContext(c *fiber.Ctx) (*domain.PublicUser, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.PublicUser)
	return principal, ok
}
