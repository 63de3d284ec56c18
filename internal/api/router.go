// Package api assembles the gateway's HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/modelgate/modelgate/internal/api/handlers"
	"github.com/modelgate/modelgate/internal/api/middleware"
	"github.com/modelgate/modelgate/internal/metrics"
)

// NewRouter creates the HTTP router with all gateway routes. webUIDir,
// when non-empty, is served at the root.
func NewRouter(h *handlers.Handlers, m *metrics.Metrics, webUIDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// OpenAI-compatible surface
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/completions", h.Chat)
		r.Post("/embeddings", h.Embeddings)
		r.Post("/audio/transcriptions", h.Transcriptions)
		r.Post("/audio/translations", h.Translations)
		r.Post("/audio/speech", h.Speech)
		r.Post("/images/generations", h.ImagesGenerations)
		r.Post("/images/edits", h.ImagesEdits)
		r.Get("/info", h.Info)
		r.Get("/models", h.Models)
	})

	// Admin surface
	r.Route("/admin", func(r chi.Router) {
		r.Post("/servers/register", h.RegisterServer)
		r.Post("/servers/unregister", h.UnregisterServer)
		r.Post("/servers", h.ListServers)
		r.Post("/rag/documents", h.IngestDocument)
	})

	if webUIDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(webUIDir)))
	}

	return r
}
