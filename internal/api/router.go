package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/api/middleware"
	"github.com/Barunkrsingh/chat-application/internal/handlers"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	IdentityHeader string
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
	// Redis backs rate limiting. Nil disables it.
	Redis *redis.Client
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg RouterConfig, h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body, webhooks carry full profiles
	r.Use(middleware.ValidateRequest("/webhooks/"))

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	identity := middleware.NewIdentityMiddleware(cfg.IdentityHeader)
	r.Use(identity.Attach)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	if cfg.Redis != nil {
		limiter := middleware.NewRateLimiter(cfg.Redis, logger, cfg.RateLimit)
		r.Use(limiter.Middleware)
	} else {
		logger.Warn().Msg("rate limiting disabled: no Redis configured")
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identityHeader(cfg.IdentityHeader)},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)
	r.Post("/webhooks/identity", h.IdentityWebhook) // Authenticated by signature

	// Routes that need a signed-in user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Post("/conversations", h.CreateConversation)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/messages", h.GetMessages)
			r.Post("/messages", h.SendMessage)
			r.Post("/media", h.SendMedia)
			r.Get("/stream", h.StreamMessages)
		})
	})

	return r
}

func identityHeader(h string) string {
	if h == "" {
		return middleware.DefaultIdentityHeader
	}
	return h
}
