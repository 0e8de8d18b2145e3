// Package api wires the HTTP surface of the statement ledger service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/api/handlers"
	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/metrics"
)

// RouterConfig carries the dependencies of the HTTP router.
type RouterConfig struct {
	Statements *handlers.StatementsHandler
	Jobs       *handlers.JobsHandler
	Metrics    *metrics.Metrics

	// Auth, when non-nil, protects every endpoint except health and metrics.
	Auth func(http.Handler) http.Handler

	Log zerolog.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}

		// Synchronous extraction: reply carries the full result.
		r.Post("/upload/", cfg.Statements.Extract)

		r.Route("/api", func(r chi.Router) {
			r.Post("/statements", cfg.Statements.CreateStatement)

			r.Get("/jobs", cfg.Jobs.ListJobs)
			r.Get("/jobs/{jobID}", cfg.Jobs.GetJob)
			r.Get("/jobs/{jobID}/transactions.csv", cfg.Jobs.ExportTransactions)
			r.Get("/jobs/{jobID}/summary.csv", cfg.Jobs.ExportSummary)
		})
	})

	return r
}
