package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"slot-swap-api/internal/config"
	"slot-swap-api/internal/database"
	"slot-swap-api/internal/handler"
	"slot-swap-api/internal/queue"
	"slot-swap-api/internal/repository"
	"slot-swap-api/internal/router"
	queue_publisher "slot-swap-api/internal/service"
	"slot-swap-api/internal/swap"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	logger := config.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		logger.Fatal("migrate database", zap.Error(err))
	}
	cancel()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, cache and rate limiting disabled")
	}

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	engine := swap.NewEngine(store, logger.Named("swap"))

	publisher := queue_publisher.NewPublisher(logger.Named("publisher"))
	defer publisher.Close()

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	slotHandler := handler.NewSlotHandler(store)
	swapHandler := handler.NewSwapHandler(engine)
	swapHandler.Publish = publisher.PublishSwapApproved

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterAPI(e, slotHandler, swapHandler, cfg.JWTSecret, rdb)

	// Periodically drop refresh token rows that can never validate again.
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := tokens.DeleteExpired(ctx)
			cancel()
			if err != nil {
				logger.Warn("purge refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged refresh tokens", zap.Int64("rows", n))
			}
		}
	}()

	// Background consumer turns swap.approved events into audit log lines.
	go func() {
		if err := queue.StartSwapConsumer(logger.Named("swap-consumer")); err != nil {
			logger.Warn("swap consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
