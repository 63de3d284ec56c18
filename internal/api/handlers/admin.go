package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/api/middleware"
	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/models"
)

// RegisterServer handles POST /admin/servers/register: validate the
// candidate, verify its capabilities, then commit it to the registry and
// the capability cache together. A verification failure leaves no trace.
func (h *Handlers) RegisterServer(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, requestID, httperr.BadRequest(err.Error()))
		return
	}

	kinds, err := registry.ParseTokens(req.Kind)
	if err != nil {
		httperr.Write(w, requestID, err)
		return
	}
	backend, err := registry.NewBackend(req.URL, kinds)
	if err != nil {
		httperr.Write(w, requestID, err)
		return
	}

	caps, modelList, err := h.Verifier.Verify(r.Context(), requestID, backend)
	if err != nil {
		httperr.Write(w, requestID, err)
		return
	}

	h.Caps.Put(backend.ID(), caps, modelList)
	h.Registry.Register(backend)

	log.Info().
		Str("request_id", requestID).
		Str("server_id", backend.ID()).
		Msg("Registered successfully")

	respondJSON(w, http.StatusOK, models.RegisterResponse{
		ID:   backend.ID(),
		URL:  backend.BaseURL(),
		Kind: backend.Kinds().Tokens(),
	})
}

// UnregisterServer handles POST /admin/servers/unregister.
func (h *Handlers) UnregisterServer(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req models.UnregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, requestID, httperr.BadRequest(err.Error()))
		return
	}

	if err := h.Registry.Unregister(req.ServerID); err != nil {
		httperr.Write(w, requestID, err)
		return
	}
	h.Caps.Remove(req.ServerID)

	respondJSON(w, http.StatusOK, models.UnregisterResponse{
		Message: "Server unregistered successfully.",
		ID:      req.ServerID,
	})
}

// ListServers handles POST /admin/servers.
func (h *Handlers) ListServers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	servers := h.Registry.List()

	total := 0
	for _, list := range servers {
		total += len(list)
	}
	log.Info().
		Str("request_id", requestID).
		Int("servers", total).
		Msg("Found downstream servers")

	respondJSON(w, http.StatusOK, servers)
}

// IngestDocument handles POST /admin/rag/documents: chunk, embed, and
// persist a document into the default vector DB.
func (h *Handlers) IngestDocument(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, requestID, httperr.BadRequest(err.Error()))
		return
	}

	result, err := h.Ingester.Ingest(r.Context(), requestID, req)
	if err != nil {
		httperr.Write(w, requestID, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Info handles GET /v1/info: the capability documents of every registered
// backend, keyed by backend id.
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"servers": h.Caps.Info()})
}

// Models handles GET /v1/models: the union of the cached per-backend
// model lists, in the OpenAI list shape.
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	list := h.Caps.Models()
	if list == nil {
		list = []models.Model{}
	}
	respondJSON(w, http.StatusOK, models.ListModelsResponse{Object: "list", Data: list})
}

// Health handles GET /health. It reports gateway liveness only; backends
// are not polled.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
