package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/api"
	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/config"
	"github.com/Chenghao-Wen/NoteTree/internal/handlers"
	"github.com/Chenghao-Wen/NoteTree/internal/jobs"
	"github.com/Chenghao-Wen/NoteTree/internal/store"
	"github.com/Chenghao-Wen/NoteTree/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the primary store: PostgreSQL when configured, SQLite
	// otherwise (development)
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer dataStore.Close()

	// Redis carries the job streams and the results channel; nothing works
	// without it
	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required")
	}
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisStore.Close()
	logger.Info().Msg("connected to Redis")

	// Assemble components: explicit constructor wiring, no DI container
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	submitter := jobs.NewSubmitter(dataStore, dataStore, redisStore, logger)

	hub := ws.NewHub(logger)
	gateway := ws.NewGateway(hub, tokens, logger)

	relay := ws.NewRelay(redisStore.Client(), hub, dataStore, logger)
	relay.Start(ctx)
	defer relay.Stop()

	h := handlers.NewHandler(dataStore, redisStore, submitter, tokens, logger)
	router := api.NewRouter(logger, cfg, redisStore, h, gateway, tokens)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting NoteTree server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
