package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// LoginLimiter throttles login attempts per identifier using a Redis
// INCR+EXPIRE window. The limiter fails open when Redis is unreachable so an
// outage does not lock everyone out.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter constructs a limiter. A nil client disables throttling.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Allow records one attempt for the identifier and rejects when the window
// budget is exceeded.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) error {
	if l == nil || l.client == nil || l.maxAttempts <= 0 {
		return nil
	}

	key := "login_attempts:" + identifier
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", zap.Error(err))
		}
	}
	if count > int64(l.maxAttempts) {
		return apperrors.NewTooManyRequests("too many login attempts")
	}
	return nil
}
