package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/repository"
	"github.com/spec-kit/video-service/internal/storage"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

const watchHistoryLimit = 50

// PublishParams bundles the input for publishing a video.
type PublishParams struct {
	Title       string
	Description string
	Duration    string
	VideoFile   *FileUpload
	Thumbnail   *FileUpload
}

// VideoView is a video with its live view counter.
type VideoView struct {
	Video domain.Video
	Views int64
}

// VideoService handles video publishing, playback views and watch history.
// View counters live in Redis; the relational store keeps the catalog.
type VideoService struct {
	videos   repository.VideoRepository
	uploader storage.Uploader
	redis    *redis.Client
	logger   *zap.Logger
}

// NewVideoService builds the service.
func NewVideoService(videos repository.VideoRepository, uploader storage.Uploader, redisClient *redis.Client, logger *zap.Logger) *VideoService {
	return &VideoService{videos: videos, uploader: uploader, redis: redisClient, logger: logger}
}

// Publish uploads the media files and creates the catalog entry.
func (s *VideoService) Publish(ctx context.Context, ownerID string, params PublishParams) (*domain.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if params.VideoFile == nil || params.Thumbnail == nil {
		return nil, apperrors.NewValidationError("video file and thumbnail are required", nil)
	}

	videoURL, err := s.uploader.Upload(ctx, storage.RandomKey("videos"), params.VideoFile.Reader, params.VideoFile.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	thumbURL, err := s.uploader.Upload(ctx, storage.RandomKey("thumbnails"), params.Thumbnail.Reader, params.Thumbnail.ContentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	video := &domain.Video{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		VideoFile:   videoURL,
		Thumbnail:   thumbURL,
		Duration:    params.Duration,
		Published:   true,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, apperrors.MapError(err)
	}
	return video, nil
}

// Get returns a video with its current view count.
func (s *VideoService) Get(ctx context.Context, id string) (*VideoView, error) {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("video", nil)
		}
		return nil, apperrors.MapError(err)
	}

	views, err := s.redis.Get(ctx, viewsKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("view counter unavailable", zap.Error(err))
	}

	return &VideoView{Video: *video, Views: views}, nil
}

// RecordView appends the video to the viewer's watch history and bumps the
// view counter.
func (s *VideoService) RecordView(ctx context.Context, userID, videoID string) error {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("video", nil)
		}
		return apperrors.MapError(err)
	}

	if err := s.videos.AddWatchEntry(ctx, userID, videoID); err != nil {
		return apperrors.MapError(err)
	}

	if err := s.redis.Incr(ctx, viewsKey(videoID)).Err(); err != nil {
		s.logger.Warn("view counter increment failed", zap.Error(err))
	}
	return nil
}

// WatchHistory lists the viewer's recently watched videos with their owners.
func (s *VideoService) WatchHistory(ctx context.Context, userID string) ([]domain.WatchHistoryEntry, error) {
	entries, err := s.videos.WatchHistory(ctx, userID, watchHistoryLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func viewsKey(videoID string) string {
	return "video_views:" + videoID
}
