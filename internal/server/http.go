package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/joseph-ayodele/repair-jobsheets/internal/export"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/jobs"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

const maxBodyBytes = 1 << 20

// Deps are the services the HTTP API is built from.
type Deps struct {
	Jobs       *jobs.Service
	Auth       *auth.Service
	Export     *export.Service
	Store      sheets.Client
	Production bool
	// AllowedOrigins lists the browser origins allowed to call the API.
	// Empty disables CORS handling.
	AllowedOrigins []string
}

// API serves the REST endpoints under /api.
type API struct {
	deps   Deps
	errs   errorWriter
	logger *slog.Logger
	now    func() time.Time
}

func NewAPI(deps Deps, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		deps:   deps,
		errs:   errorWriter{production: deps.Production, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Router builds the chi router with middleware and every route.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(a.logger))
	r.Use(middleware.Recoverer)
	if len(a.deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(securityHeaders)

	r.Get("/", a.root)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.login)
			r.Post("/forgot-password", a.forgotPassword)
			r.Post("/reset-password", a.resetPassword)
			r.With(requireAdmin(a.deps.Auth, a.errs)).Get("/verify", a.verify)
		})

		r.Route("/jobs", func(r chi.Router) {
			// public lookups for customers
			r.Get("/search", a.searchJobs)
			r.Get("/{id}", a.getJob)
			r.Get("/{id}/invoice", a.invoice)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(a.deps.Auth, a.errs))
				r.Get("/", a.listJobs)
				r.Post("/", a.createJob)
				r.Put("/{id}", a.updateJob)
				r.Delete("/{id}", a.deleteJob)
				r.Patch("/{id}/status", a.updateJobStatus)
				r.Get("/analytics/dashboard", a.dashboard)
				r.Get("/export.xlsx", a.exportXLSX)
				r.Get("/export.csv", a.exportCSV)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "Route not found"})
	})
	return r
}

func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Repair jobsheets API",
		"status":  "running",
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if a.deps.Store != nil {
		if err := a.deps.Store.Ping(r.Context()); err != nil {
			a.logger.Warn("http.health.store_unavailable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"success":   code == http.StatusOK,
		"status":    status,
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}
