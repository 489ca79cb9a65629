package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Health        *HealthHandler
	Webhooks      *WebhookHandler
	Auth          *AuthHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Leads         *LeadHandler
	Analytics     *AnalyticsHandler
	// Stream is nil when the event stream is disabled.
	Stream *StreamHandler
}

// RouterConfig holds cross-cutting HTTP settings.
type RouterConfig struct {
	CORSOrigins              []string
	RateLimitRequests        int
	RateLimitWindow          time.Duration
	WebhookRateLimitRequests int
}

// NewRouter builds the HTTP routes.
func NewRouter(h Handlers, tokens middleware.TokenParser, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Platform webhooks are authenticated by signature, not by token.
	r.Route("/api/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Get("/whatsapp", h.Webhooks.Verify)
		r.With(middleware.ChannelRateLimit(cfg.WebhookRateLimitRequests, cfg.RateLimitWindow)).Post("/{channel}", h.Webhooks.Receive)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Get("/me", h.Auth.Me)
			r.With(middleware.RequireRole(model.RoleAdmin)).Post("/register", h.Auth.Register)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.Conversations.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Conversations.Get)
				r.With(middleware.RequireRole(model.RoleCounselor)).Post("/assign", h.Conversations.Assign)
				r.With(middleware.RequireRole(model.RoleCounselor)).Post("/close", h.Conversations.Close)

				r.Get("/messages", h.Messages.List)
				r.Post("/reply", h.Messages.Reply)
				r.Post("/messages/{messageID}/delivered", h.Messages.Delivered)
				r.Post("/messages/{messageID}/read", h.Messages.Read)

				if h.Stream != nil {
					r.Get("/events", h.Stream.Stream)
				} else {
					r.Get("/events", streamDisabled)
				}
			})
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.Leads.List)
			r.Get("/{id}", h.Leads.Get)
			r.Put("/{id}", h.Leads.Update)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAnalyst))
			r.Get("/dashboard", h.Analytics.Dashboard)
			r.Get("/performance", h.Analytics.Performance)
			r.Get("/export/{format}", h.Analytics.Export)
		})
	})

	return r
}

func streamDisabled(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusServiceUnavailable, "event stream disabled")
}
