/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/compute, /api/rules   Stateless computation and configuration
  /api/subjects/*            Subjects, entries, periods, approval records
  /api/approvals/bulk        Bulk transitions
  /healthz                   Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/compute", h.Compute)
		r.Get("/rules", h.GetRules)

		// Subject routes
		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.ListSubjects)
			r.Post("/", h.CreateSubject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSubject)
				r.Delete("/", h.DeleteSubject)
				r.Put("/entries/{date}", h.SaveEntry)

				r.Route("/periods/{period}", func(r chi.Router) {
					r.Get("/times", h.GetPeriodTimes)
					r.Get("/approval", h.GetApproval)
					r.Post("/approval/{category}", h.Transition)
					r.Get("/history", h.GetHistory)
				})
			})
		})

		// Approval routes
		r.Route("/approvals", func(r chi.Router) {
			r.Post("/bulk", h.BulkTransition)
		})
	})

	return r
}
