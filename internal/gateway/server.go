package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knowdhq/knowd/internal/events"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	if g.config.Tracing {
		r.Use(tracingMiddleware())
	}

	// Public — no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metrics.Handler())

	// Event stream — WebSocket mutation feed when the broker is wired.
	if g.broker != nil {
		r.Handle("/ws/events", events.NewHandler(g.broker, g.logger))
	}

	// Read-only file proxy, mounted when a module provides one.
	if svc, ok := g.appCtx.Service("fsproxy.handler"); ok {
		if handler, ok := svc.(http.Handler); ok {
			r.Handle("/api/files/*", http.StripPrefix("/api/files", handler))
		}
	}

	// Table service routes, mounted when the table module is loaded.
	if svc, ok := g.appCtx.Service("table.handler"); ok {
		if handler, ok := svc.(http.Handler); ok {
			r.Mount("/api/tables", handler)
		}
	}

	// The store API. Auth middleware applies only when configured.
	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth))
		}

		r.Get("/status", g.handleStatus())

		r.Route("/api", func(r chi.Router) {
			r.Route("/entities", func(r chi.Router) {
				r.Post("/", g.handleCreateEntity())
				r.Get("/", g.handleFindEntities())
				r.Get("/{id}", g.handleGetEntity())
				r.Patch("/{id}", g.handleUpdateEntity())
				r.Delete("/{id}", g.handleDeleteEntity())
			})

			r.Route("/facts", func(r chi.Router) {
				r.Post("/", g.handleAddFact())
				r.Get("/", g.handleQueryFacts())
			})

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", g.handleAddNote())
				r.Get("/", g.handleSearchNotes())
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Put("/{id}", g.handleSaveConversation())
				r.Get("/{id}", g.handleGetConversation())
			})

			r.Get("/search", g.handleSearch())
			r.Get("/stats", g.handleStats())
			r.Get("/export", g.handleExport())
			r.Post("/import", g.handleImport())
			r.Post("/clear", g.handleClear())
		})
	})

	return r
}
