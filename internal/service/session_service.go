package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/events"
	"github.com/spec-kit/video-service/internal/repository"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// SessionService owns the session state machine: login issues a token pair
// and persists the refresh token, refresh rotates it, logout clears it. It is
// the only component that reads or writes the stored refresh token. At most
// one refresh token is live per account; a new login or refresh supersedes
// the previous one.
type SessionService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	limiter    *auth.LoginLimiter
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(users repository.UserRepository, tokens *auth.TokenManager, limiter *auth.LoginLimiter, dispatcher events.Dispatcher, bcryptCost int, logger *zap.Logger) *SessionService {
	return &SessionService{users: users, tokens: tokens, limiter: limiter, dispatcher: dispatcher, bcryptCost: bcryptCost, logger: logger}
}

// Login authenticates by email or username and opens a session. The refresh
// token write is the single commit point: until it lands, the previous
// session state stays observable.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*domain.PublicUser, *auth.TokenPair, error) {
	if err := s.limiter.Allow(ctx, identifier); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("user", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewInvalidCredentials()
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.logger.Info("session opened", zap.String("user_id", user.ID))
	return user.Sanitized(), pair, nil
}

// Refresh rotates the session. The presented token must carry a valid
// signature, be unexpired, and equal the stored value byte for byte; a
// rotated-out token fails the comparison even before it expires.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*auth.TokenPair, error) {
	if presented == "" {
		return nil, apperrors.NewUnauthorized("refresh token required")
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, apperrors.MapError(err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		return nil, apperrors.NewUnauthorized("refresh token superseded")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Debug("session rotated", zap.String("user_id", user.ID))
	return pair, nil
}

// Logout closes the session unconditionally. Logging out an account with no
// open session is not an error.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("session closed", zap.String("user_id", userID))
	return nil
}

// ChangePassword verifies the current password and persists a new hash. The
// confirmation check happens before any store write. The open session is left
// untouched.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	if newPassword != confirmPassword {
		return apperrors.NewValidationError("new password and confirmation do not match", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return apperrors.MapError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventPasswordChanged,
			UserID:    user.ID,
			Timestamp: time.Now(),
			Payload:   events.PasswordChangedPayload{Email: user.Email},
		})
	}
	return nil
}
