// Package rest wires the HTTP surface over the memory graph facade.
package rest

import (
	"net/http"

	"memgraph/application/services"
	"memgraph/interfaces/http/rest/handlers"
	"memgraph/interfaces/http/rest/middleware"
	"memgraph/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	graph      *services.MemoryGraph
	validator  *auth.JWTValidator // nil enables the dev header fallback
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(graph *services.MemoryGraph, validator *auth.JWTValidator, enableCORS bool, logger *zap.Logger) *Router {
	return &Router{
		graph:      graph,
		validator:  validator,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Office-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		memoryHandler := handlers.NewMemoryHandler(rt.graph, rt.logger)
		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.CreateMemory)
			r.Get("/search", memoryHandler.SearchMemories)
			r.Get("/{nodeID}", memoryHandler.GetMemory)
			r.Put("/{nodeID}/consent", memoryHandler.UpdateConsent)
			r.Put("/{nodeID}/importance", memoryHandler.AdjustImportance)
		})

		grantHandler := handlers.NewGrantHandler(rt.graph, rt.logger)
		r.Route("/grants", func(r chi.Router) {
			r.Post("/", grantHandler.CreateGrant)
			r.Delete("/{grantID}", grantHandler.RevokeGrant)
		})

		adminHandler := handlers.NewAdminHandler(rt.graph, rt.logger)
		r.Get("/stats", adminHandler.Stats)
		r.Post("/maintenance", adminHandler.TriggerMaintenance)
		r.Post("/office-links", adminHandler.LinkOffices)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
