// Package api exposes the assessment service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/auth"
	"github.com/sells-group/privacy-assess/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// CatalogInvalidator drops cached catalog content after admin edits.
type CatalogInvalidator interface {
	Invalidate()
}

// Deps are the collaborators a Server needs. Invalidator and Registry are
// optional.
type Deps struct {
	Builder        *assessment.Builder
	Store          store.Store
	Auth           *auth.Authenticator
	Invalidator    CatalogInvalidator
	Registry       *prometheus.Registry
	AllowedOrigins []string
	// SubscribeRate and SubscribeBurst limit subscription calls per client IP.
	SubscribeRate  float64
	SubscribeBurst int
}

// Server routes HTTP requests to the assessment, admin, and subscription
// handlers.
type Server struct {
	builder     *assessment.Builder
	taxonomy    *assessment.Taxonomy
	store       store.Store
	auth        *auth.Authenticator
	invalidator CatalogInvalidator
	registry    *prometheus.Registry
	metrics     *Metrics
	limiter     *ipLimiter
	origins     []string
}

// NewServer creates a Server and registers its metrics.
func NewServer(d Deps) *Server {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		builder:     d.Builder,
		taxonomy:    d.Builder.Taxonomy(),
		store:       d.Store,
		auth:        d.Auth,
		invalidator: d.Invalidator,
		registry:    reg,
		metrics:     NewMetrics(reg),
		limiter:     newIPLimiter(d.SubscribeRate, d.SubscribeBurst, 10*time.Minute),
		origins:     origins,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/report", s.handleReport)
		r.Get("/questions", s.handleListPublished)
		r.Get("/taxonomy", s.handleTaxonomy)

		r.With(s.rateLimit).Post("/subscribe", s.handleSubscribe)
		r.With(s.rateLimit).Delete("/subscribe/{id}", s.handleUnsubscribe)

		r.Post("/admin/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(s.auth.Tokens()))

			r.Get("/admin/questions", s.handleListQuestions)
			r.Post("/admin/questions", s.handleCreateQuestion)
			r.Put("/admin/questions/order", s.handleReorderQuestions)
			r.Get("/admin/questions/{id}", s.handleGetQuestion)
			r.Put("/admin/questions/{id}", s.handleUpdateQuestion)
			r.Delete("/admin/questions/{id}", s.handleDeleteQuestion)

			r.Get("/admin/catalog", s.handleListCatalog)
			r.Get("/admin/catalog/{code}", s.handleGetCatalogEntry)
			r.Put("/admin/catalog/{code}", s.handlePutCatalogEntry)
			r.Delete("/admin/catalog/{code}", s.handleDeleteCatalogEntry)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"concerns":   s.taxonomy.Concerns(),
		"categories": s.taxonomy.Categories(),
	})
}

func (s *Server) invalidateCatalog() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
