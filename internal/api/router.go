/**
 * @description
 * This file sets up the HTTP router for the ledger service. It defines the API
 * endpoints, associates them with their handlers, and applies middleware for
 * request IDs, logging, panic recovery, timeouts, CORS and authentication.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS for the desktop and web clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig carries the HTTP settings taken from the service configuration.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates the ledger API router.
func NewRouter(h *Handlers, cfg RouterConfig, logger zerolog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/healthz", h.HealthHandler)

	routes := func(r chi.Router) {
		r.Post("/auth/login", h.LoginHandler)
		r.Post("/auth/refresh", h.RefreshHandler)
		r.Post("/auth/logout", h.LogoutHandler)

		// Group routes that require authentication.
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.identity))

			r.Get("/auth/me", h.MeHandler)
			r.Get("/system/init", h.SystemInitHandler)

			r.Get("/accounts", h.ListAccountsHandler)
			r.Post("/accounts", h.CreateAccountHandler)
			r.Get("/accounts/{accountID}", h.GetAccountHandler)
			r.Get("/accounts/{accountID}/snapshots", h.ListSnapshotsHandler)

			r.Get("/transactions", h.ListTransactionsHandler)
			r.Post("/transactions", h.CreateTransactionHandler)
			r.Get("/transactions/{transactionID}", h.GetTransactionHandler)
			r.Post("/asset-purchases", h.CreateAssetPurchaseHandler)

			r.Get("/schedules", h.ListSchedulesHandler)
			r.Get("/schedules/{scheduleID}", h.GetScheduleHandler)

			r.Post("/reconciliations", h.ReconcileHandler)

			r.Get("/reports/cash", h.CashFlowReportHandler)
			r.Get("/reports/utility", h.UtilityReportHandler)
			r.Get("/kpis/adjustment", h.AdjustmentKPIHandler)

			r.Get("/categories", h.ListCategoriesHandler)
			r.Post("/categories", h.CreateCategoryHandler)
			r.Get("/tags", h.ListTagsHandler)
			r.Post("/tags", h.CreateTagHandler)
			r.Get("/payees", h.ListPayeesHandler)
			r.Post("/payees", h.CreatePayeeHandler)
		})
	}
	if cfg.APIPrefix == "" {
		r.Group(routes)
	} else {
		r.Route(cfg.APIPrefix, routes)
	}

	return r
}
