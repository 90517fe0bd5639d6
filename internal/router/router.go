// Package router sets up the HTTP routes and middleware chains for the
// catalogd backend. Write endpoints carry image uploads and get a
// stricter rate limit than reads.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"catalogd/internal/handlers"
	"catalogd/internal/middleware"
)

// writeLimit caps mutating requests per client IP. Uploads are the
// expensive path; reads stay unthrottled.
const (
	writeLimit  = 30
	writeWindow = 1 * time.Minute
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. The returned limiter must be stopped on
// shutdown.
func New(catalog *handlers.Catalog) (chi.Router, *middleware.RateLimiter) {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Health check.
	r.Get("/health", healthHandler)

	limiter := middleware.NewRateLimiter(writeLimit, writeWindow)

	r.Route("/backend/category", func(r chi.Router) {
		r.Get("/list", catalog.List)
		r.Get("/detail/{id}", catalog.Detail)
		r.Get("/edit/{id}", catalog.Edit)

		// Mutations are rate-limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/store", catalog.Store)
			r.Post("/update/{id}", catalog.Update)
			r.Delete("/delete/{id}", catalog.Delete)
		})
	})

	return r, limiter
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
