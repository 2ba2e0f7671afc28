package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/umuco/heritage-gateway/internal/config"
	"github.com/umuco/heritage-gateway/internal/server"
	"github.com/umuco/heritage-gateway/internal/storage"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "heritage-gateway").Logger()

	cfg, err := config.Load("config.json")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	redis, err := storage.NewRedis(
		cfg.Redis.GetRedisAddr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		// The governor falls back to in-process counting, so a cold
		// start without Redis is degraded, not fatal.
		logger.Warn().Err(err).Msg("counter store unreachable, starting with in-process fallback")
	} else {
		logger.Info().Msg("connected to redis")
	}
	defer redis.Close()

	postgres, err := storage.NewPostgres(cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	srv, err := server.New(cfg, logger, redis, postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
