// Package api wires the HTTP surface: routing, middleware and the websocket
// endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/api/middleware"
	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/config"
	"github.com/Chenghao-Wen/NoteTree/internal/handlers"
	"github.com/Chenghao-Wen/NoteTree/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	logger zerolog.Logger,
	cfg *config.Config,
	redisStore *store.RedisStore,
	h *handlers.Handler,
	events http.Handler,
	verifier auth.Verifier,
) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, cfg.RateLimitWhitelist)
	r.Use(limiter.Middleware)

	// CORS - the SPAs are served from separate origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/health", h.Health)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	// Live connection endpoint; the gateway authenticates the handshake
	// itself, since clients may carry the token in a query parameter.
	r.Handle("/events", events)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(verifier))

		r.Post("/notes", h.CreateNote)
		r.Get("/notes", h.ListNotes)
		r.Get("/notes/{id}", h.GetNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/search", h.Search)
	})

	return r
}
