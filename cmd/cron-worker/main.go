package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/pasabuy/pasabuy-backend/internal/cron"
	"github.com/pasabuy/pasabuy-backend/internal/notifications"
	"github.com/pasabuy/pasabuy-backend/internal/presence"
	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db"
	"github.com/pasabuy/pasabuy-backend/pkg/instance"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/metrics"
	"github.com/pasabuy/pasabuy-backend/pkg/migrate"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/redis"
)

const (
	serviceKind   = "cron-worker"
	lockKeyFormat = "pb:cron:lock:%s"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Tick:     cfg.Presence.SweepInterval,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting cron worker")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, cfg.App.MetricsAddr, reg)
	})
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	return group.Wait()
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gormDB := dbClient.DB()

	presenceService, err := presence.NewService(presence.NewRepository(gormDB), nil, cfg.Presence.StaleAfter, logg)
	if err != nil {
		return nil, err
	}
	sweep, err := cron.NewPresenceSweepJob(logg, presenceService, cfg.Presence.SweepInterval)
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(logg, notifications.NewRepository(gormDB), 0)
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(logg, dbClient, outbox.NewRepository(gormDB), 0)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(sweep, cleanup, retention), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
