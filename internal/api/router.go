package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sterlingtax/cryptotax-backend/internal/api/handlers"
	custommiddleware "github.com/sterlingtax/cryptotax-backend/internal/api/middleware"
	"github.com/sterlingtax/cryptotax-backend/internal/config"
	"github.com/sterlingtax/cryptotax-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	importService *service.ImportService,
	taxService *service.TaxService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/transaction", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(importService)
			r.Get("/", transactionHandler.AllTransactions)
			r.Delete("/", transactionHandler.DeleteAll)
			r.Get("/sources", transactionHandler.Sources)
			r.Post("/import/{source}", transactionHandler.Import)
		})

		r.Route("/tax", func(r chi.Router) {
			taxHandler := handlers.NewTaxHandler(taxService)
			r.Get("/report", taxHandler.Report)
			r.Get("/report/{year}", taxHandler.YearReport)
			r.Get("/holdings", taxHandler.Holdings)
			r.Get("/audit", taxHandler.Audit)
		})
	})

	return r
}
