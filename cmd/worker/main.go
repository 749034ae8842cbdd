package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/pasabuy/pasabuy-backend/internal/notifications"
	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db"
	"github.com/pasabuy/pasabuy-backend/pkg/instance"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/migrate"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/idempotency"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox/registry"
	"github.com/pasabuy/pasabuy-backend/pkg/pubsub"
	"github.com/pasabuy/pasabuy-backend/pkg/redis"
)

const serviceKind = "worker"

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
		logg.Error(context.Background(), "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
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
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	guard, err := idempotency.NewGuard(redisClient, notifications.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	decoders := registry.NewDefaultDecoderRegistry()
	repo := notifications.NewRepository(dbClient.DB())

	consumers := map[string]runner{}
	subscriptions := map[string]func() *gcppubsub.Subscriber{
		"request-notifications": pubsubClient.NotificationSubscription,
		"chat-notifications":    pubsubClient.ChatNotificationSubscription,
	}
	for name, subscription := range subscriptions {
		sub := subscription()
		if sub == nil {
			logg.Warn(logg.WithField(ctx, "consumer", name), "subscription not configured, skipping")
			continue
		}
		consumer, err := notifications.NewConsumer(repo, sub, guard, decoders, logg)
		if err != nil {
			return err
		}
		consumers[name] = consumer
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Consumers: consumers,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
