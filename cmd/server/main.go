package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/api"
	"github.com/Barunkrsingh/chat-application/internal/api/middleware"
	"github.com/Barunkrsingh/chat-application/internal/chat"
	"github.com/Barunkrsingh/chat-application/internal/claim"
	"github.com/Barunkrsingh/chat-application/internal/config"
	"github.com/Barunkrsingh/chat-application/internal/dispatch"
	"github.com/Barunkrsingh/chat-application/internal/handlers"
	"github.com/Barunkrsingh/chat-application/internal/provider"
	"github.com/Barunkrsingh/chat-application/internal/realtime"
	"github.com/Barunkrsingh/chat-application/internal/store"
	"github.com/Barunkrsingh/chat-application/internal/webhook"
)

func main() {
	// Load configuration
	cfg, err := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg == nil || cfg.IsDevelopment() {
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

	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Identity store: PostgreSQL when configured, SQLite otherwise
	var identities store.IdentityStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		logger.Info().Msg("running database migrations...")
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		identities = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		identities = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite identity store")
	}
	defer identities.Close()

	// Message log and job claims: Redis when configured, memory otherwise
	var (
		messages   store.MessageStore
		claims     claim.Store
		redisStore *store.RedisStore
	)
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL, cfg.MessageRetention)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		messages, claims = redisStore, redisStore
		logger.Info().Msg("connected to Redis")
	} else {
		messages = store.NewMemoryMessageStore()
		claims = claim.NewMemory(10_000, 24*time.Hour)
		logger.Warn().Msg("no REDIS_URL: messages are kept in memory")
	}

	blobs, err := store.NewURLBlobStore(cfg.BlobBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid BLOB_BASE_URL")
	}

	verifier, err := webhook.NewVerifier(cfg.WebhookSecret,
		webhook.WithTolerance(cfg.WebhookTolerance),
		webhook.WithLogger(logger.With().Str("component", "webhook").Logger()))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid webhook secret")
	}

	// Generation provider is process-wide and closed on shutdown
	gen, err := provider.New(cfg.Generation.Provider, provider.Options{
		APIKey:    cfg.Generation.APIKey,
		BaseURL:   cfg.Generation.BaseURL,
		Model:     cfg.Generation.Model,
		MaxTokens: cfg.Generation.MaxTokens,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("provider setup failed")
	}
	defer gen.Close()

	// Every append, from users or the worker, reaches stream subscribers
	hub := realtime.NewHub(64, logger)
	messages = store.WithPublisher(messages, hub)

	queue := dispatch.NewQueue(cfg.AI.QueueSize)
	worker := dispatch.NewWorker(messages, gen, claims, dispatch.WorkerConfig{
		Timeout:     cfg.Generation.Timeout,
		Concurrency: cfg.AI.Workers,
	}, logger)

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(context.Background(), queue)
	}()

	svc := chat.NewService(identities, messages, blobs,
		dispatch.DefaultMatcher(cfg.AI.TextTrigger, cfg.AI.ImageTrigger), queue, logger)
	reader := chat.NewReader(identities, messages, chat.AIProfile{
		Name:        cfg.AI.DisplayName,
		TextAvatar:  cfg.AI.TextAvatar,
		ImageAvatar: cfg.AI.ImageAvatar,
	}, logger)

	h := handlers.NewHandler(handlers.Deps{
		Chat:       svc,
		Reader:     reader,
		Hub:        hub,
		Identities: identities,
		Messages:   messages,
		Verifier:   verifier,
		Replay:     webhook.NewReplayGuard(claims, cfg.WebhookTolerance),
		Issuer:     cfg.IdentityIssuer,
		Origins:    cfg.AllowedOrigins,
		Logger:     logger,
	})

	routerCfg := api.RouterConfig{
		IdentityHeader: cfg.IdentityHeader,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: !cfg.IsDevelopment(),
		},
	}
	if redisStore != nil {
		routerCfg.Redis = redisStore.Client()
	}
	router := api.NewRouter(logger, routerCfg, h)

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
			Str("provider", cfg.Generation.Provider).
			Int("workers", cfg.AI.Workers).
			Msg("starting chat server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	hub.Close()

	// Stop taking jobs; the worker answers everything already queued
	if pending := queue.Len(); pending > 0 {
		logger.Info().Int("pending", pending).Msg("draining queued AI jobs")
	}
	queue.Close()
	select {
	case err := <-workerDone:
		if err != nil {
			logger.Error().Err(err).Msg("worker stopped with error")
		}
	case <-shutdownCtx.Done():
		logger.Warn().Msg("timed out waiting for AI worker")
	}

	logger.Info().Msg("server stopped")
}
