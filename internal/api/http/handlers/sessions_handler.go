package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/video-service/internal/api/dto"
	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/service"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// SessionsHandler exposes login, logout, refresh and password change.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// Login handles POST /api/v1/users/login.
func (h *SessionsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		return apperrors.NewValidationError("username or email is required", nil)
	}
	if req.Password == "" {
		return apperrors.NewValidationError("password is required", nil)
	}

	user, pair, err := h.sessions.Login(c.Context(), identifier, req.Password)
	if err != nil {
		return err
	}

	setTokenCookies(c, pair)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":         user,
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		},
	})
}

// Logout handles POST /api/v1/users/logout. Requires a prior gate pass.
func (h *SessionsHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	if err := h.sessions.Logout(c.Context(), principal.ID); err != nil {
		return err
	}

	clearTokenCookies(c)
	return c.JSON(fiber.Map{"data": nil})
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from
// the cookie, the body, or the bearer header, in that order.
func (h *SessionsHandler) Refresh(c *fiber.Ctx) error {
	presented := c.Cookies(auth.RefreshTokenCookie)
	if presented == "" {
		var req dto.RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		presented = auth.BearerToken(c)
	}

	pair, err := h.sessions.Refresh(c.Context(), presented)
	if err != nil {
		return err
	}

	setTokenCookies(c, pair)
	return c.JSON(fiber.Map{
		"data": dto.TokenResponse{
			AccessToken:      pair.AccessToken,
			RefreshToken:     pair.RefreshToken,
			AccessExpiresAt:  pair.AccessExpiresAt,
			RefreshExpiresAt: pair.RefreshExpiresAt,
		},
	})
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h *SessionsHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.sessions.ChangePassword(c.Context(), principal.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nil})
}

func setTokenCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    pair.AccessToken,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     auth.RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Expires:  pair.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearTokenCookies(c *fiber.Ctx) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   true,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
	}
}
