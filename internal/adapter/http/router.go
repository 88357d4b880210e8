package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/eventbank/internal/adapter/http/handler"
	"github.com/iho/eventbank/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CommandHandler *handler.CommandHandler
	QueryHandler   *handler.QueryHandler
	HealthHandler  *handler.HealthHandler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health and observability endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.CommandHandler.Create)
			r.Get("/{id}", cfg.QueryHandler.Get)
			r.Get("/{id}/events", cfg.QueryHandler.ListEvents)
			r.Get("/{id}/operations", cfg.QueryHandler.ListOperations)
			r.Put("/{id}/credit", cfg.CommandHandler.Credit)
			r.Put("/{id}/debit", cfg.CommandHandler.Debit)
		})
	})

	return r
}
