package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/video-service/internal/api/http"
	"github.com/spec-kit/video-service/internal/api/http/handlers"
	"github.com/spec-kit/video-service/internal/auth"
	"github.com/spec-kit/video-service/internal/config"
	"github.com/spec-kit/video-service/internal/events"
	"github.com/spec-kit/video-service/internal/mailer"
	"github.com/spec-kit/video-service/internal/observability"
	"github.com/spec-kit/video-service/internal/persistence"
	"github.com/spec-kit/video-service/internal/repository"
	"github.com/spec-kit/video-service/internal/service"
	"github.com/spec-kit/video-service/internal/storage"
	"github.com/spec-kit/video-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	uploader, err := storage.NewS3(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	}

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, mailer.NewSMTP(cfg.Mail), logger)
	worker.StartNotificationWorker(notificationService)

	limiter := auth.NewLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)
	sessionService := service.NewSessionService(userRepo, tokens, limiter, dispatcher, cfg.Auth.BcryptCost, logger)
	userService := service.NewUserService(userRepo, subscriptionRepo, uploader, dispatcher, cfg.Auth.BcryptCost, logger)
	videoService := service.NewVideoService(videoRepo, uploader, redis.Client, logger)
	paymentService := service.NewPaymentService(cfg.Payment, dispatcher, logger)

	gate := auth.NewMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Sessions: handlers.NewSessionsHandler(sessionService),
		Users:    handlers.NewUsersHandler(userService, videoService),
		Videos:   handlers.NewVideosHandler(videoService),
		Payments: handlers.NewPaymentsHandler(paymentService),
		Gate:     gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
