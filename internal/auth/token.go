package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/video-service/internal/config"
	"github.com/spec-kit/video-service/internal/domain"
)

// Verification failure kinds. Callers that gate requests collapse all of them
// to a single unauthorized response; internal callers may branch on them.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the fixed set of identity fields embedded in every signed token.
// The subject id lives in the registered "sub" claim.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenManager issues and verifies paired access and refresh JWTs. The two
// token kinds use independent secrets and independent lifetimes so that
// compromise of one cannot forge the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager builds a manager from auth configuration. Missing secrets
// are a configuration error, not a per-request condition.
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, errors.New("token secrets not configured")
	}
	accessTTL := cfg.AccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL()
	if refreshTTL <= accessTTL {
		refreshTTL = 10 * 24 * time.Hour
	}
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssuePair signs a new access/refresh pair for the user. Pure: no state is
// read or written here; persisting the refresh token is the session manager's
// job.
func (tm *TokenManager) IssuePair(user *domain.User) (*TokenPair, error) {
	now := time.Now()

	access, accessExp, err := tm.sign(user, tm.accessSecret, now, tm.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.sign(user, tm.refreshSecret, now, tm.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (tm *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return verify(token, tm.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims. Signature
// validity is necessary but not sufficient for a refresh: the session manager
// also compares the token against the stored value.
func (tm *TokenManager) VerifyRefresh(token string) (*Claims, error) {
	return verify(token, tm.refreshSecret)
}

func (tm *TokenManager) sign(user *domain.User, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique jti: a rotation within the same second must still
			// produce a distinct token, or the old/new comparison on
			// refresh loses its meaning.
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func verify(tokenStr string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignature
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
