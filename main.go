package main

import (
	"log"
	"log/slog"
	"os"

	"accounts-app/config"
	"accounts-app/database"
	routes "accounts-app/internal/app/http"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/infra/stripe"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	logger.Info("database ready")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Config:   cfg,
		Log:      logger,
		Users:    users.NewRepository(db),
		Provider: stripe.New(cfg.Stripe.SecretKey),
		Sessions: session.NewStore(cfg.SessionSecret, cfg.IsProd()),
	})

	logger.Info("starting server", slog.String("env", cfg.AppEnv), slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
