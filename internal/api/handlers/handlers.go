// Package handlers implements the gateway's HTTP handlers: one dispatcher
// per inference kind, the admin surface, and the aggregated info/models
// endpoints.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/modelgate/modelgate/internal/api/middleware"
	"github.com/modelgate/modelgate/internal/capability"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/internal/metrics"
	"github.com/modelgate/modelgate/internal/proxy"
	"github.com/modelgate/modelgate/internal/rag"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/models"
)

// Handlers holds the dispatcher dependencies.
type Handlers struct {
	Registry *registry.Registry
	Caps     *capability.Store
	Verifier *capability.Verifier
	Proxy    *proxy.Engine
	Metrics  *metrics.Metrics
	Config   *config.Config

	// RAG is nil when retrieval augmentation is disabled.
	RAG      *rag.Orchestrator
	Ingester *rag.Ingester
}

// New wires the handlers and, when RAG is enabled, the orchestrator with
// its in-process embeddings sub-dispatch.
func New(reg *registry.Registry, caps *capability.Store, verifier *capability.Verifier, engine *proxy.Engine, m *metrics.Metrics, cfg *config.Config) *Handlers {
	h := &Handlers{
		Registry: reg,
		Caps:     caps,
		Verifier: verifier,
		Proxy:    engine,
		Metrics:  m,
		Config:   cfg,
	}
	embedder := &embedDispatcher{h: h}
	if cfg.RAG.Enable {
		h.RAG = rag.NewOrchestrator(cfg.RAG, caps, embedder)
	}
	h.Ingester = rag.NewIngester(cfg.RAG.VectorDB.URL, embedder)
	return h
}

// ── Kind dispatchers ─────────────────────────────────────────

// Chat handles POST /v1/chat/completions. The body is buffered because the
// stream flag must be read and, with RAG enabled, the messages rewritten.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	log.Info().Str("request_id", requestID).Msg("Received a new chat request")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httperr.Write(w, requestID, httperr.Operationf("Failed to read the request body: %s", err))
		return
	}

	if h.RAG != nil {
		body, err = h.RAG.Prepare(r.Context(), requestID, body)
		if err != nil {
			httperr.Write(w, requestID, err)
			return
		}
	}

	ct := proxy.ContentTypeJSON
	if gjson.GetBytes(body, "stream").Bool() {
		ct = proxy.ContentTypeEventStream
	}
	h.dispatch(w, r, registry.KindChat, "/v1/chat/completions", ct, bytes.NewReader(body))
}

// Embeddings handles POST /v1/embeddings.
func (h *Handlers) Embeddings(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindEmbeddings, "/v1/embeddings", proxy.ContentTypeJSON, r.Body)
}

// Transcriptions handles POST /v1/audio/transcriptions.
func (h *Handlers) Transcriptions(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindTranscribe, "/v1/audio/transcriptions", proxy.ContentTypeJSON, r.Body)
}

// Translations handles POST /v1/audio/translations.
func (h *Handlers) Translations(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindTranslate, "/v1/audio/translations", proxy.ContentTypeJSON, r.Body)
}

// Speech handles POST /v1/audio/speech. The backend's Content-Type and
// body bytes pass through untouched; speech responses are binary.
func (h *Handlers) Speech(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindTTS, "/v1/audio/speech", proxy.ContentTypeEcho, r.Body)
}

// ImagesGenerations handles POST /v1/images/generations.
func (h *Handlers) ImagesGenerations(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindImage, "/v1/images/generations", proxy.ContentTypeJSON, r.Body)
}

// ImagesEdits handles POST /v1/images/edits.
func (h *Handlers) ImagesEdits(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, registry.KindImage, "/v1/images/edits", proxy.ContentTypeJSON, r.Body)
}

// dispatch selects a backend for the kind, forwards, and relays. The
// registry locks are released before any network I/O happens.
func (h *Handlers) dispatch(w http.ResponseWriter, r *http.Request, kind registry.Kind, path string, ct proxy.ContentType, body io.Reader) {
	requestID := middleware.GetRequestID(r.Context())
	start := time.Now()

	backend, err := h.Registry.Select(kind)
	if err != nil {
		h.observe(kind, http.StatusNotFound, start)
		httperr.Write(w, requestID, err)
		return
	}
	h.Metrics.Selections.WithLabelValues(backend.ID()).Inc()
	if h.Config.Server.DecrementLoadOnCompletion {
		defer backend.Release()
	}

	resp, err := h.Proxy.Do(r.Context(), requestID, r.Method, backend.BaseURL(), path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		h.observe(kind, http.StatusInternalServerError, start)
		httperr.Write(w, requestID, err)
		return
	}

	status, err := h.Proxy.Relay(w, resp, ct)
	h.observe(kind, status, start)
	if err != nil {
		log.Error().Str("request_id", requestID).Msg(err.Error())
		return
	}
	log.Info().
		Str("request_id", requestID).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("Request completed")
}

func (h *Handlers) observe(kind registry.Kind, status int, start time.Time) {
	h.Metrics.Requests.WithLabelValues(kind.String(), strconv.Itoa(status)).Inc()
	h.Metrics.Duration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
}

// ── In-process embeddings sub-dispatch ───────────────────────

// embedDispatcher satisfies rag.Embedder by calling the embeddings pool
// directly, without a loopback HTTP hop. The sub-call carries the same
// request id as the chat request that triggered it.
type embedDispatcher struct {
	h *Handlers
}

func (d *embedDispatcher) Embed(ctx context.Context, requestID, input string) ([]float32, error) {
	backend, err := d.h.Registry.Select(registry.KindEmbeddings)
	if err != nil {
		return nil, err
	}
	d.h.Metrics.Selections.WithLabelValues(backend.ID()).Inc()
	if d.h.Config.Server.DecrementLoadOnCompletion {
		defer backend.Release()
	}

	payload, err := json.Marshal(models.EmbeddingRequest{Input: input})
	if err != nil {
		return nil, httperr.Operationf("Failed to build the embeddings request: %s", err)
	}

	header := http.Header{"Content-Type": []string{"application/json"}}
	resp, err := d.h.Proxy.Do(ctx, requestID, http.MethodPost, backend.BaseURL(), "/v1/embeddings", "", header, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httperr.Operationf("The embeddings server returned %s", resp.Status)
	}
	var parsed models.EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, httperr.Operationf("Failed to parse embeddings response: %s", err)
	}
	if len(parsed.Data) == 0 {
		return nil, httperr.Operation("No embeddings returned")
	}
	return parsed.Data[0].Embedding, nil
}
