package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := base.With().Str("component", "api-main").Logger()

	db, err := database.Open(cfg.Database, logging.Component(base, "database"))
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	if forwarder := initAMQP(cfg, base); forwarder != nil {
		defer (func() { _ = forwarder.Close() })()
		eventWorker := worker.NewEventWorker(forwarder, redisClient, worker.RetryPolicy{}, logging.Component(base, "event-worker"))
		eventWorker.Attach(bus)
		go eventWorker.Start(ctx)
	}

	approvedOnly := cfg.Booking.ApprovedOnly
	svcLogger := logging.Component(base, "service")
	services := api.Services{
		Users:    service.NewUserService(db, svcLogger),
		Items:    service.NewItemService(db, db, db, db, db, bus, approvedOnly, svcLogger),
		Bookings: service.NewBookingService(db, db, db, bus, approvedOnly, svcLogger),
		Requests: service.NewRequestService(db, db, db, svcLogger),
	}

	limiter := initRateLimiter(cfg, redisClient, base)
	httpServer := api.NewHTTPServer(cfg.API, services, limiter, logging.Component(base, "http"))

	startMetrics(ctx, cfg, &logger)
	if err := startBackups(ctx, cfg, db, base); err != nil {
		return err
	}

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initRateLimiter prefers the shared Redis window and falls back to
// per-process token buckets.
func initRateLimiter(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	if !cfg.API.RateLimit.Enabled {
		return nil
	}

	rl := cfg.API.RateLimit
	memory := repository.NewMemoryRateLimiter(rl.RPS, rl.Burst)
	if redisClient == nil {
		return memory
	}

	window := repository.WindowFor(rl.RPS, rl.Burst)
	primary := repository.NewRedisRateLimiter(redisClient, rl.Burst, window)
	return repository.NewFailoverRateLimiter(primary, memory, logging.Component(logger, "rate-limiter"))
}

func initAMQP(cfg *config.Config, logger *zerolog.Logger) *events.AMQPForwarder {
	if cfg.Events.AMQPURL == "" {
		return nil
	}

	forwarder, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq init failed, continuing without event forwarding")
		return nil
	}

	logger.Info().Str("exchange", cfg.Events.Exchange).Msg("rabbitmq connected")
	return forwarder
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	if !cfg.Backup.Enabled {
		return nil
	}

	interval, err := cfg.BackupInterval()
	if err != nil {
		return err
	}
	backups := database.NewBackupService(db, cfg.Backup, interval, logging.Component(logger, "backup"))
	go backups.Start(ctx)
	return nil
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().
		Int("http_port", cfg.API.HTTP.Port).
		Bool("approved_only", cfg.Booking.ApprovedOnly).
		Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
