// Package server composes the gateway: configuration in, an http.Handler
// and shutdown hook out. It exists in pkg/ so embedders can assemble the
// gateway with their own listener.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/api"
	"github.com/modelgate/modelgate/internal/api/handlers"
	"github.com/modelgate/modelgate/internal/capability"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/metrics"
	"github.com/modelgate/modelgate/internal/proxy"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/internal/telemetry"
)

// Server holds the assembled gateway.
type Server struct {
	// Handler carries all routes and middleware.
	Handler http.Handler

	// Addr is the configured bind address.
	Addr string

	// Registry is the live backend registry, exposed for embedders that
	// pre-register backends programmatically.
	Registry *registry.Registry

	// ShutdownFunc flushes telemetry; call it on graceful shutdown.
	ShutdownFunc func(context.Context) error
}

// New assembles the gateway from its configuration. webUIDir, when
// non-empty, is served at the root path.
func New(cfg *config.Config, webUIDir string) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	reg := registry.New()
	caps := capability.NewStore()
	verifier := capability.NewVerifier(cfg.Server.VerifyTimeout())
	engine := proxy.New(cfg.Server.Timeout())
	m := metrics.New()

	h := handlers.New(reg, caps, verifier, engine, m, cfg)
	router := api.NewRouter(h, m, webUIDir)

	log.Info().
		Str("addr", cfg.Server.Addr).
		Bool("rag", cfg.RAG.Enable).
		Msg("Gateway assembled")

	return &Server{
		Handler:      router,
		Addr:         cfg.Server.Addr,
		Registry:     reg,
		ShutdownFunc: shutdown,
	}, nil
}
