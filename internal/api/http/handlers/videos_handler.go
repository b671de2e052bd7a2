package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/service"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// VideosHandler exposes video publishing and playback endpoints.
type VideosHandler struct {
	videos *service.VideoService
}

// NewVideosHandler constructs handler.
func NewVideosHandler(videos *service.VideoService) *VideosHandler {
	return &VideosHandler{videos: videos}
}

// Publish handles POST /api/v1/videos (multipart).
func (h *VideosHandler) Publish(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	videoFile, err := formUpload(c, "videoFile")
	if err != nil {
		return err
	}
	thumbnail, err := formUpload(c, "thumbnail")
	if err != nil {
		return err
	}

	video, err := h.videos.Publish(c.Context(), principal.ID, service.PublishParams{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Duration:    c.FormValue("duration"),
		VideoFile:   videoFile,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"video": videoJSON(video, 0)}})
}

// Get handles GET /api/v1/videos/:id.
func (h *VideosHandler) Get(c *fiber.Ctx) error {
	view, err := h.videos.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"video": videoJSON(&view.Video, view.Views)}})
}

// View handles POST /api/v1/videos/:id/view.
func (h *VideosHandler) View(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	if err := h.videos.RecordView(c.Context(), principal.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nil})
}

func videoJSON(video *domain.Video, views int64) fiber.Map {
	return fiber.Map{
		"id":          video.ID,
		"ownerId":     video.OwnerID,
		"title":       video.Title,
		"description": video.Description,
		"videoFile":   video.VideoFile,
		"thumbnail":   video.Thumbnail,
		"duration":    video.Duration,
		"published":   video.Published,
		"views":       views,
		"createdAt":   video.CreatedAt,
	}
}
