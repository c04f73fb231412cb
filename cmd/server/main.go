package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/api"
	"github.com/slotwise/slotwise/internal/app"
	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/config"
	"github.com/slotwise/slotwise/internal/realtime"
	"github.com/slotwise/slotwise/internal/repository"
	"github.com/slotwise/slotwise/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting slotwise server",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to reach database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	claimStore, err := newClaimStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create claim store", zap.Error(err))
	}

	hub := realtime.NewHub(logger)

	organizerRepo := repository.NewOrganizerRepository(pool)
	meetingTypeRepo := repository.NewMeetingTypeRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	exceptionRepo := repository.NewExceptionRepository(pool)
	apptRepo := repository.NewAppointmentRepository(pool)

	claimTTL := time.Duration(cfg.ClaimTTLSeconds) * time.Second
	coordinator := claim.NewCoordinator(claimStore, apptRepo, hub, claimTTL, logger)

	availabilityService := service.NewAvailabilityService(
		organizerRepo, ruleRepo, exceptionRepo, meetingTypeRepo, apptRepo, claimStore, logger)
	bookingService := service.NewBookingService(
		pool, meetingTypeRepo, apptRepo, coordinator, hub, logger)
	scheduleService := service.NewScheduleService(
		organizerRepo, ruleRepo, exceptionRepo, meetingTypeRepo, hub, logger)

	hub.SetHandler(api.NewClaimInbound(coordinator, hub, logger))
	go hub.Run(ctx)

	sweeper := app.NewSweeper(claimStore, sweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handlers := api.NewAPI(availabilityService, bookingService, scheduleService, coordinator, hub, logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

// newClaimStore picks the claim backend: Redis when REDIS_URL is set so
// claims survive process restarts and shard across instances, otherwise the
// in-process store.
func newClaimStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (claim.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("Using in-memory claim store")
		return claim.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("Using Redis claim store", zap.String("addr", opts.Addr))
	return claim.NewRedisStore(client), nil
}
