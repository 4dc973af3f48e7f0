// Package rest wires the HTTP surface of the thought network.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/application/services"
	"thoughtnet/interfaces/http/rest/handlers"
	"thoughtnet/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router.
type Router struct {
	repo           ports.ThoughtRepository
	pipeline       *services.EnrichmentPipeline
	enricher       ports.EnrichmentService
	logger         *zap.Logger
	allowedOrigins []string
}

// NewRouter creates a new router instance.
func NewRouter(
	repo ports.ThoughtRepository,
	pipeline *services.EnrichmentPipeline,
	enricher ports.EnrichmentService,
	logger *zap.Logger,
	allowedOrigins []string,
) *Router {
	return &Router{
		repo:           repo,
		pipeline:       pipeline,
		enricher:       enricher,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", healthCheck)

	thoughtHandler := handlers.NewThoughtHandler(rt.repo, rt.pipeline, rt.enricher, rt.logger)
	statsHandler := handlers.NewStatsHandler(rt.repo, rt.logger)

	router.Route("/api", func(r chi.Router) {
		r.Route("/thoughts", func(r chi.Router) {
			r.Get("/", thoughtHandler.List)
			r.Post("/", thoughtHandler.Create)
			r.Get("/search", thoughtHandler.Search)
			r.Post("/{id}/like", thoughtHandler.Like)
			r.Get("/{id}/connections", thoughtHandler.Connections)
			r.Get("/{id}/summary", thoughtHandler.Summary)
		})

		r.Get("/stats", statsHandler.GetStats)
		r.Get("/thought-of-the-day", thoughtHandler.ThoughtOfTheDay)
	})

	return router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
