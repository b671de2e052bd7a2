package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/events"
	"github.com/spec-kit/video-service/internal/repository"
	"github.com/spec-kit/video-service/internal/storage"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// FileUpload carries an uploaded file stream into the service layer.
type FileUpload struct {
	Reader      io.Reader
	ContentType string
}

// RegisterParams bundles the registration input.
type RegisterParams struct {
	FullName string
	Email    string
	Username string
	Password string
	Avatar   *FileUpload
	Cover    *FileUpload
}

// ProfileUpdate carries optional profile fields; empty strings keep the
// current values.
type ProfileUpdate struct {
	FullName string
	Username string
	Email    string
}

// UserService handles account registration, profile and media updates, and
// channel views.
type UserService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	uploader      storage.Uploader
	dispatcher    events.Dispatcher
	bcryptCost    int
	logger        *zap.Logger
}

// NewUserService builds the service.
func NewUserService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	uploader storage.Uploader,
	dispatcher events.Dispatcher,
	bcryptCost int,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:         users,
		subscriptions: subscriptions,
		uploader:      uploader,
		dispatcher:    dispatcher,
		bcryptCost:    bcryptCost,
		logger:        logger,
	}
}

// Register creates a new account. The avatar is required; the cover image is
// optional. Usernames and emails are stored lowercased.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (*domain.PublicUser, error) {
	fullName := strings.TrimSpace(params.FullName)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	username := strings.ToLower(strings.TrimSpace(params.Username))

	if fullName == "" || email == "" || username == "" || params.Password == "" {
		return nil, apperrors.NewValidationError("fullName, email, username, password are required", nil)
	}
	if params.Avatar == nil {
		return nil, apperrors.NewValidationError("avatar image is required", nil)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("user already exists with given email or username", nil)
	}

	avatarURL, err := s.uploader.Upload(ctx, storage.RandomKey("avatars"), params.Avatar.Reader, params.Avatar.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	coverURL := ""
	if params.Cover != nil {
		coverURL, err = s.uploader.Upload(ctx, storage.RandomKey("covers"), params.Cover.Reader, params.Cover.ContentType)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	hash, err := auth.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	})

	return user.Sanitized(), nil
}

// UpdateProfile applies the provided fields; blanks keep current values.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if v := strings.TrimSpace(update.FullName); v != "" {
		user.FullName = v
	}
	if v := strings.ToLower(strings.TrimSpace(update.Username)); v != "" {
		user.Username = v
	}
	if v := strings.ToLower(strings.TrimSpace(update.Email)); v != "" {
		user.Email = v
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user.Sanitized(), nil
}

// UpdateAvatar uploads the replacement avatar, swaps the URL and removes the
// old object best-effort.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *FileUpload) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, file, "avatars", func(u *domain.User) *string { return &u.Avatar }, s.users.UpdateAvatar)
}

// UpdateCoverImage uploads the replacement cover image and swaps the URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *FileUpload) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, file, "covers", func(u *domain.User) *string { return &u.CoverImage }, s.users.UpdateCoverImage)
}

func (s *UserService) updateImage(
	ctx context.Context,
	userID string,
	file *FileUpload,
	prefix string,
	field func(*domain.User) *string,
	persist func(context.Context, string, string) error,
) (*domain.PublicUser, error) {
	if file == nil {
		return nil, apperrors.NewValidationError("image file is required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}

	url, err := s.uploader.Upload(ctx, storage.RandomKey(prefix), file.Reader, file.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	oldURL := *field(user)
	if err := persist(ctx, userID, url); err != nil {
		return nil, apperrors.MapError(err)
	}
	*field(user) = url

	if key := s.uploader.KeyFromURL(oldURL); key != "" {
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete old media object", zap.String("key", key), zap.Error(err))
		}
	}

	return user.Sanitized(), nil
}

// ChannelProfile resolves a channel by username with subscription counts
// relative to the viewer.
func (s *UserService) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}

	user, err := s.users.GetByEmailOrUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("channel", nil)
		}
		return nil, apperrors.MapError(err)
	}

	stats, err := s.subscriptions.Stats(ctx, user.ID, viewerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &domain.ChannelProfile{
		PublicUser:        *user.Sanitized(),
		SubscriberCount:   stats.SubscriberCount,
		SubscribedToCount: stats.SubscribedToCount,
		IsSubscribed:      stats.IsSubscribed,
	}, nil
}

// Subscribe adds the viewer as a subscriber of the channel. Idempotent.
func (s *UserService) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	if subscriberID == channelID {
		return apperrors.NewValidationError("cannot subscribe to own channel", nil)
	}
	if _, err := s.users.GetByID(ctx, channelID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("channel", nil)
		}
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.subscriptions.Subscribe(ctx, subscriberID, channelID))
}

// Unsubscribe removes the subscription. Idempotent.
func (s *UserService) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	return apperrors.MapError(s.subscriptions.Unsubscribe(ctx, subscriberID, channelID))
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
