package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pasabuy/pasabuy-backend/api/controllers"
	"github.com/pasabuy/pasabuy-backend/api/middleware"
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
	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
	"github.com/pasabuy/pasabuy-backend/pkg/maps"
	"github.com/pasabuy/pasabuy-backend/pkg/metrics"
	"github.com/pasabuy/pasabuy-backend/pkg/redis"
)

type sessionManager interface {
	middleware.SessionVerifier
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (session.Pair, error)
	Revoke(context.Context, string) error
}

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type placesLookup interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

// Services groups the domain services the HTTP surface dispatches to.
type Services struct {
	Auth          auth.Service
	Users         *users.Service
	Requests      requests.Service
	Matching      *matching.Engine
	Chats         *chats.Service
	Presence      *presence.Service
	Notifications notifications.Service
	// Places is nil when no Google Maps key is configured.
	Places *maps.Client
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	svc Services,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	// Concrete nils must not leak into the interfaces below.
	var (
		limiter     windowLimiter
		idempotency middleware.ReplayStore
		feed        changefeed.Source
		readiness   = map[string]controllers.Pinger{"db": dbP}
	)
	if redisClient != nil {
		limiter = redisClient
		idempotency = redisClient
		feed = redisClient
		readiness["redis"] = redisClient
	}
	var places placesLookup
	if svc.Places != nil {
		places = svc.Places
	}

	loginPolicy := middleware.RateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(readiness, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(
			middleware.RateLimit(registerPolicy, limiter, logg),
			middleware.Idempotency(idempotency, logg),
		).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(idempotency, logg))

		pasabuyerOnly := middleware.RequireRole(logg, enums.UserRolePasabuyer)
		requesterOnly := middleware.RequireRole(logg, enums.UserRoleRequester)

		r.Get("/me", controllers.GetMe(svc.Users, logg))
		r.Patch("/me", controllers.UpdateMe(svc.Users, logg))

		r.Route("/requests", func(r chi.Router) {
			r.With(requesterOnly).Post("/", controllers.CreateRequest(svc.Requests, logg))
			r.Post("/quote", controllers.QuoteRequest(logg))
			r.Get("/mine", controllers.ListMyRequests(svc.Requests, logg))
			r.With(pasabuyerOnly).Get("/assigned", controllers.ListAssignedRequests(svc.Requests, logg))
			r.With(pasabuyerOnly).Get("/nearby", controllers.NearbyRequests(svc.Matching, logg))

			r.Route("/{requestId}", func(r chi.Router) {
				r.Get("/", controllers.GetRequest(svc.Requests, logg))
				r.Patch("/", controllers.UpdateRequest(svc.Requests, logg))
				r.Delete("/", controllers.DeleteRequest(svc.Requests, logg))
				r.With(pasabuyerOnly).Post("/accept", controllers.AcceptRequest(svc.Matching, logg))
				r.With(pasabuyerOnly).Post("/deliver", controllers.MarkRequestDelivered(svc.Requests, logg))
				r.Post("/confirm", controllers.ConfirmRequestReceipt(svc.Requests, logg))
				r.Post("/cancel", controllers.CancelRequest(svc.Requests, logg))
				r.Post("/report", controllers.ReportRequestIssue(svc.Requests, logg))
				r.Post("/chat", controllers.OpenRequestChat(svc.Chats, logg))
			})
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", controllers.ListChatThreads(svc.Chats, logg))
			r.Get("/{threadId}", controllers.GetChatThread(svc.Chats, logg))
			r.Get("/{threadId}/messages", controllers.ListChatMessages(svc.Chats, logg))
			r.Post("/{threadId}/messages", controllers.SendChatMessage(svc.Chats, logg))
			r.Post("/{threadId}/read", controllers.MarkChatRead(svc.Chats, logg))
		})

		r.Route("/presence", func(r chi.Router) {
			r.Use(pasabuyerOnly)
			r.Put("/", controllers.UpdatePresence(svc.Presence, logg))
			r.Post("/offline", controllers.GoOffline(svc.Presence, logg))
			r.Get("/me", controllers.GetMyPresence(svc.Presence, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
		})

		r.Route("/places", func(r chi.Router) {
			r.Get("/autocomplete", controllers.PlacesAutocomplete(places, logg))
			r.Get("/{placeId}", controllers.ResolvePlace(places, logg))
		})

		r.Get("/watch", controllers.Watch(feed, svc.Chats, controllers.NewWatchUpgrader(cfg.App.AllowedOrigins()), logg))
	})

	return r
}
