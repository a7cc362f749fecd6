package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/db"
	"github.com/LinhPhuong14/MediFlow/internal/auth/handler"
	repo "github.com/LinhPhuong14/MediFlow/internal/auth/repository/postgres"
	"github.com/LinhPhuong14/MediFlow/internal/auth/service"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/LinhPhuong14/MediFlow/internal/mailer"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg := config.Load()
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	clock := clockwork.NewRealClock()

	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		log.Error(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}

	userRepo := repo.NewUserRepository(pool)
	tokenRepo := repo.NewRefreshTokenRepository(pool)
	smtpMailer := mailer.NewSMTPMailer(cfg)
	hasher := service.NewBcryptHasher()

	tokenService := service.NewTokenService(cfg, clock)
	userService := service.NewUserService(userRepo, tokenRepo, tokenService, hasher, smtpMailer, cfg, clock, log)
	passwordService := service.NewPasswordService(userRepo, tokenRepo, tokenService, hasher, smtpMailer, cfg, clock, log)
	oauthService := service.NewOAuthService(userRepo, hasher, smtpMailer, cfg, clock, log)
	monitoring := service.NewMonitoringService(userRepo, tokenRepo, smtpMailer, cfg.AdminEmail, clock, log)

	// Daily report ticker; the service itself only runs read-only
	// aggregates.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			monitoring.SendDailyReport(ctx)
		}
	}()

	authHandler := handler.NewAuthHandler(userService, passwordService, oauthService, monitoring, tokenService)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	log.Info(ctx, "starting auth service", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
