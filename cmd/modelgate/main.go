// Modelgate — an API gateway for OpenAI-compatible inference backends.
//
// Clients address one endpoint; the gateway routes each request to a
// registered backend by capability kind, optionally augmenting chat
// requests with retrieved context (RAG) before dispatch.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/pkg/server"
)

const version = "0.1.0"

type cli struct {
	Config  string `help:"Path to the TOML configuration file." default:"config.toml" type:"path"`
	Addr    string `help:"Override the configured bind address."`
	RAG     bool   `name:"rag" help:"Force-enable retrieval-augmented chat."`
	WebUI   string `name:"web-ui" help:"Directory of static Web UI assets to serve at /." type:"path"`
	Version bool   `help:"Show version and exit."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("modelgate"),
		kong.Description("API gateway for OpenAI-compatible inference backends."),
	)

	if c.Version {
		fmt.Println("modelgate", version)
		return
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(logLevel(os.Getenv("LOG")))

	cfg, err := config.Load(c.Config)
	if err != nil {
		log.Error().Err(err).Str("path", c.Config).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.RAG {
		cfg.RAG.Enable = true
	}

	srv, err := server.New(cfg, c.WebUI)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize the gateway")
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              srv.Addr,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: streamed completions are open-ended.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Modelgate listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Listener failed")
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
		if err := srv.ShutdownFunc(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry flush failed")
		}
	}
}

// logLevel parses the LOG environment variable. Both a bare level
// ("debug") and the target=level form ("stdout=info") are accepted; only
// the level segment is honored.
func logLevel(v string) zerolog.Level {
	if i := strings.LastIndex(v, "="); i >= 0 {
		v = v[i+1:]
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
