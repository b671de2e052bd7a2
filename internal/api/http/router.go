package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/video-service/internal/api/http/handlers"
	"github.com/spec-kit/video-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Sessions *handlers.SessionsHandler
	Users    *handlers.UsersHandler
	Videos   *handlers.VideosHandler
	Payments *handlers.PaymentsHandler
	Gate     *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", handlers.Home)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	users := api.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Sessions.Login)
	users.Post("/refresh-token", cfg.Sessions.Refresh)

	// secured routes
	users.Post("/logout", cfg.Gate.Handle, cfg.Sessions.Logout)
	users.Post("/change-password", cfg.Gate.Handle, cfg.Sessions.ChangePassword)
	users.Get("/current-user", cfg.Gate.Handle, cfg.Users.CurrentUser)
	users.Patch("/update-profile", cfg.Gate.Handle, cfg.Users.UpdateProfile)
	users.Patch("/avatar", cfg.Gate.Handle, cfg.Users.UpdateAvatar)
	users.Patch("/cover-image", cfg.Gate.Handle, cfg.Users.UpdateCoverImage)
	users.Get("/c/:username", cfg.Gate.Handle, cfg.Users.ChannelProfile)
	users.Get("/watch-history", cfg.Gate.Handle, cfg.Users.WatchHistory)

	subscriptions := api.Group("/subscriptions", cfg.Gate.Handle)
	subscriptions.Post("/:channelId", cfg.Users.Subscribe)
	subscriptions.Delete("/:channelId", cfg.Users.Unsubscribe)

	videos := api.Group("/videos")
	videos.Post("/", cfg.Gate.Handle, cfg.Videos.Publish)
	videos.Get("/:id", cfg.Videos.Get)
	videos.Post("/:id/view", cfg.Gate.Handle, cfg.Videos.View)

	payments := api.Group("/payments")
	payments.Post("/create-order", cfg.Payments.CreateOrder)
	payments.Post("/verify", cfg.Payments.Verify)
	payments.Post("/confirmation-email", cfg.Payments.ConfirmationEmail)
}
