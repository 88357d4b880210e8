package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/eventbank/internal/adapter/http"
	"github.com/iho/eventbank/internal/adapter/http/handler"
	postgresRepo "github.com/iho/eventbank/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/eventbank/internal/adapter/repository/redis"
	"github.com/iho/eventbank/internal/infrastructure/config"
	"github.com/iho/eventbank/internal/infrastructure/logger"
	"github.com/iho/eventbank/internal/infrastructure/metrics"
	"github.com/iho/eventbank/internal/infrastructure/postgres"
	"github.com/iho/eventbank/internal/infrastructure/projector"
	"github.com/iho/eventbank/internal/infrastructure/redis"
	"github.com/iho/eventbank/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = zlog

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	zlog.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Event store is always PostgreSQL; the read model backend is selectable.
	eventStore := postgresRepo.NewEventStore(pool)
	idGen := postgresRepo.NewULIDGenerator()

	var (
		readModel   usecase.ReadModelStore
		redisClient *redislib.Client
	)
	switch cfg.ReadModelBackend {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		zlog.Info().Msg("connected to redis")

		readModel = redisRepo.NewReadModelStore(client)
		redisClient = client
	default:
		readModel = postgresRepo.NewReadModelStore(pool)
	}

	appMetrics := metrics.New()

	// Write path: per-account serialized command dispatch.
	dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
		Store:          eventStore,
		LockTimeout:    cfg.DispatchLockTimeout,
		PublishTimeout: cfg.DispatchPublishTimeout,
		QueueSize:      cfg.DispatchQueueSize,
	})

	// Read path: async projection of committed events.
	proj := projector.New(projector.Config{
		Store:                readModel,
		EventLog:             eventStore,
		Events:               dispatcher.Events(),
		Logger:               slog.Default(),
		Metrics:              appMetrics,
		RetryInitialInterval: cfg.ProjectorRetryInitialInterval,
		RetryMaxElapsedTime:  cfg.ProjectorRetryMaxElapsedTime,
	})

	projectorCtx, stopProjector := context.WithCancel(context.Background())
	projectorDone := make(chan struct{})
	go func() {
		defer close(projectorDone)
		if err := proj.Run(projectorCtx); err != nil {
			zlog.Error().Err(err).Msg("projector stopped with error")
		}
	}()

	// Initialize handlers
	commandHandler := handler.NewCommandHandler(dispatcher, idGen, appMetrics)
	queryHandler := handler.NewQueryHandler(readModel, eventStore)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CommandHandler: commandHandler,
		QueryHandler:   queryHandler,
		HealthHandler:  healthHandler,
		Logger:         zlog,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop accepting commands, wait for in-flight ones, then let the projector
	// drain the remaining queue before exiting.
	dispatcher.Drain()
	<-projectorDone
	stopProjector()

	zlog.Info().Msg("server stopped")
}
