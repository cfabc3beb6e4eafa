// Package http assembles the HTTP route tree and the server lifecycle
// for the clinsignal API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinsignal/clinsignal/internal/interfaces/http/handlers"
	"github.com/clinsignal/clinsignal/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	NoteHandler   *handlers.NoteHandler
	SearchHandler *handlers.SearchHandler
	RiskHandler   *handlers.RiskHandler
	CohortHandler *handlers.CohortHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	LoggingMiddleware *middleware.LoggingMiddleware

	// MetricsRegistry, when set, exposes /metrics via promhttp.
	MetricsRegistry *prometheus.Registry
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration.  It wires global middleware, public health endpoints and
// the API v1 resource groups into a single http.Handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}

	// --- Public health endpoints ---
	r.Group(func(pub chi.Router) {
		if cfg.HealthHandler != nil {
			pub.Get("/healthz", cfg.HealthHandler.Liveness)
			pub.Get("/readyz", cfg.HealthHandler.Readiness)
		}
	})

	// --- Metrics endpoint ---
	if cfg.MetricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		registerNoteRoutes(api, cfg.NoteHandler)
		registerSearchRoutes(api, cfg.SearchHandler)
		registerRiskRoutes(api, cfg.RiskHandler)
		registerCohortRoutes(api, cfg.CohortHandler)
	})

	return r
}

// registerNoteRoutes mounts note pipeline endpoints.
func registerNoteRoutes(r chi.Router, h *handlers.NoteHandler) {
	if h == nil {
		return
	}
	r.Post("/notes/process", h.ProcessNote)
	r.Post("/sections/extract", h.ExtractSections)
	r.Post("/entities/extract", h.ExtractEntities)
	r.Post("/entities/batch", h.BatchExtract)
}

// registerSearchRoutes mounts similarity search endpoints.
func registerSearchRoutes(r chi.Router, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	r.Route("/search", func(sr chi.Router) {
		sr.Post("/cases", h.SearchCases)
		sr.Post("/documents", h.SearchDocuments)
	})
}

// registerRiskRoutes mounts readmission risk endpoints.
func registerRiskRoutes(r chi.Router, h *handlers.RiskHandler) {
	if h == nil {
		return
	}
	r.Route("/predict", func(pr chi.Router) {
		pr.Post("/readmission", h.PredictReadmission)
		pr.Post("/trajectory", h.Trajectory)
		pr.Post("/batch", h.BatchAssess)
	})
}

// registerCohortRoutes mounts cohort endpoints.
func registerCohortRoutes(r chi.Router, h *handlers.CohortHandler) {
	if h == nil {
		return
	}
	r.Route("/cohort", func(cr chi.Router) {
		cr.Post("/identify", h.Identify)
		cr.Post("/similar", h.FindSimilar)
		cr.Post("/analyze", h.Analyze)
	})
}
