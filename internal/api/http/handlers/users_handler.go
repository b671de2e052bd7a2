package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/video-service/internal/api/dto"
	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/domain"
	"github.com/spec-kit/video-service/internal/service"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// UsersHandler exposes registration, profile and channel endpoints.
type UsersHandler struct {
	users  *service.UserService
	videos *service.VideoService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, videos *service.VideoService) *UsersHandler {
	return &UsersHandler{users: users, videos: videos}
}

// Register handles POST /api/v1/users/register (multipart).
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	avatar, err := formUpload(c, "avatar")
	if err != nil {
		return err
	}
	cover, _ := formUpload(c, "coverImage")

	params := service.RegisterParams{
		FullName: c.FormValue("fullName"),
		Email:    c.FormValue("email"),
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	}

	user, err := h.users.Register(c.Context(), params)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"user": user}})
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h *UsersHandler) CurrentUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": principal}})
}

// UpdateProfile handles PATCH /api/v1/users/update-profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.UpdateProfile(c.Context(), principal.ID, service.ProfileUpdate{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": user}})
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart).
func (h *UsersHandler) UpdateAvatar(c *fiber.Ctx) error {
	return h.updateImage(c, "avatar", h.users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart).
func (h *UsersHandler) UpdateCoverImage(c *fiber.Ctx) error {
	return h.updateImage(c, "coverImage", h.users.UpdateCoverImage)
}

// ChannelProfile handles GET /api/v1/users/c/:username.
func (h *UsersHandler) ChannelProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	profile, err := h.users.ChannelProfile(c.Context(), c.Params("username"), principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"channel": profile}})
}

// Subscribe handles POST /api/v1/subscriptions/:channelId.
func (h *UsersHandler) Subscribe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	if err := h.users.Subscribe(c.Context(), principal.ID, c.Params("channelId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nil})
}

// Unsubscribe handles DELETE /api/v1/subscriptions/:channelId.
func (h *UsersHandler) Unsubscribe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	if err := h.users.Unsubscribe(c.Context(), principal.ID, c.Params("channelId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nil})
}

// WatchHistory handles GET /api/v1/users/watch-history.
func (h *UsersHandler) WatchHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	entries, err := h.videos.WatchHistory(c.Context(), principal.ID)
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fiber.Map{
			"id":          entry.Video.ID,
			"title":       entry.Video.Title,
			"description": entry.Video.Description,
			"thumbnail":   entry.Video.Thumbnail,
			"duration":    entry.Video.Duration,
			"owner":       entry.Owner,
			"watchedAt":   entry.WatchedAt,
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"watchHistory": items}})
}

func (h *UsersHandler) updateImage(
	c *fiber.Ctx,
	field string,
	update func(context.Context, string, *service.FileUpload) (*domain.PublicUser, error),
) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	upload, err := formUpload(c, field)
	if err != nil {
		return err
	}

	user, err := update(c.Context(), principal.ID, upload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": user}})
}

func formUpload(c *fiber.Ctx, field string) (*service.FileUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, apperrors.NewValidationError(field+" file is required", nil)
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.FileUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &service.FileUpload{
		Reader:      file,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
