package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/middleware"
	"github.com/xaenox/terrenos-bot/internal/service"
)

type RouterConfig struct {
	Chat         *service.ChatService
	Store        Pinger
	Logger       *zap.Logger
	HistoryLimit int
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit   int
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter wires the HTTP API. Admin routes are only mounted when a JWT
// secret is configured.
func NewRouter(cfg RouterConfig) http.Handler {
	healthHandler := NewHealthHandler(cfg.Store)
	chatHandler := NewChatHandler(cfg.Chat, cfg.HistoryLimit, cfg.Logger)
	listingHandler := NewListingHandler(cfg.Chat.KnowledgeBase())
	leadHandler := NewLeadHandler(cfg.Chat, cfg.Logger)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimit, time.Minute))
		}

		r.Post("/sessions", chatHandler.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/messages", chatHandler.History)
			r.Post("/messages", chatHandler.Send)
		})

		r.Get("/listings", listingHandler.List)
		r.Get("/listings/{id}", listingHandler.Get)

		r.Post("/leads", leadHandler.Create)

		if cfg.JWTSecret != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireToken(cfg.JWTSecret, middleware.ScopeAdmin))
				r.Get("/leads", leadHandler.List)
			})
		}
	})

	return r
}
