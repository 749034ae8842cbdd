package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pasabuy/pasabuy-backend/api/routes"
	"github.com/pasabuy/pasabuy-backend/internal/auth"
	"github.com/pasabuy/pasabuy-backend/internal/chats"
	"github.com/pasabuy/pasabuy-backend/internal/matching"
	"github.com/pasabuy/pasabuy-backend/internal/notifications"
	"github.com/pasabuy/pasabuy-backend/internal/presence"
	"github.com/pasabuy/pasabuy-backend/internal/requests"
	"github.com/pasabuy/pasabuy-backend/internal/users"
	"github.com/pasabuy/pasabuy-backend/pkg/auth/session"
	"github.com/pasabuy/pasabuy-backend/pkg/changefeed"
	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db"
	"github.com/pasabuy/pasabuy-backend/pkg/env"
	"github.com/pasabuy/pasabuy-backend/pkg/geo"
	"github.com/pasabuy/pasabuy-backend/pkg/instance"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/maps"
	"github.com/pasabuy/pasabuy-backend/pkg/metrics"
	"github.com/pasabuy/pasabuy-backend/pkg/migrate"
	"github.com/pasabuy/pasabuy-backend/pkg/outbox"
	"github.com/pasabuy/pasabuy-backend/pkg/redis"
)

const (
	serviceKind     = "api"
	shutdownTimeout = 15 * time.Second
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, reg)
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, services, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	reg prometheus.Registerer,
) (routes.Services, error) {
	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	changes := changefeed.NewPublisher(redisClient, logg)

	usersService, err := users.NewService(users.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	requestRepo := requests.NewRepository(gormDB)
	requestService, err := requests.NewService(requests.ServiceParams{
		Repo:       requestRepo,
		Tx:         dbClient,
		Outbox:     outboxService,
		Identities: usersService,
		Changes:    changes,
	})
	if err != nil {
		return routes.Services{}, err
	}

	chatService, err := chats.NewService(chats.ServiceParams{
		Repo:             chats.NewRepository(gormDB),
		Tx:               dbClient,
		Outbox:           outboxService,
		Identities:       usersService,
		Requests:         requestRepo,
		Changes:          changes,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	})
	if err != nil {
		return routes.Services{}, err
	}

	var places *maps.Client
	var geocoder presence.Geocoder
	if cfg.GoogleMaps.APIKey != "" {
		places, err = maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			return routes.Services{}, err
		}
		geocoder, err = presence.NewCachedGeocoder(places, redisClient, 0)
		if err != nil {
			return routes.Services{}, err
		}
	} else {
		logg.Warn(context.Background(), "google maps key not set, places and reverse geocoding disabled")
	}

	presenceService, err := presence.NewService(presence.NewRepository(gormDB), geocoder, cfg.Presence.StaleAfter, logg)
	if err != nil {
		return routes.Services{}, err
	}

	engine, err := matching.NewEngine(matching.Params{
		Requests:  requestRepo,
		Tx:        dbClient,
		Outbox:    outboxService,
		Presence:  presenceService,
		Threads:   chatService,
		Changes:   changes,
		Gazetteer: geo.NewGazetteer(nil),
		RadiusKM:  cfg.Matching.RadiusKM,
		Metrics:   metrics.NewClaimMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authService,
		Users:         usersService,
		Requests:      requestService,
		Matching:      engine,
		Chats:         chatService,
		Presence:      presenceService,
		Notifications: notificationService,
		Places:        places,
	}, nil
}
