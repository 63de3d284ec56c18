// Package models holds the wire types the gateway itself owns: backend
// capability documents, model listings, the embedding sub-request, and the
// admin payloads. Chat and other inference payloads are deliberately NOT
// modeled here — they pass through the gateway as opaque JSON.
package models

// ── Backend capabilities (/v1/info) ──────────────────────────

// ModelDescriptor describes one model a backend serves. Only the fields the
// gateway consumes are declared; backends may send more.
type ModelDescriptor struct {
	Name           string   `json:"name,omitempty"`
	Type           string   `json:"type,omitempty"`
	PromptTemplate string   `json:"prompt_template,omitempty"`
	CtxSize        uint64   `json:"ctx_size,omitempty"`
	BatchSize      uint64   `json:"batch_size,omitempty"`
	LoRA           []string `json:"lora,omitempty"`
}

// BackendCapabilities is the body of a backend's GET /v1/info response.
// A backend advertises a kind by carrying the matching model descriptor.
type BackendCapabilities struct {
	ServerID        string           `json:"server_id,omitempty"`
	Version         string           `json:"version,omitempty"`
	Plugin          string           `json:"plugin_version,omitempty"`
	Port            string           `json:"port,omitempty"`
	ChatModel       *ModelDescriptor `json:"chat_model,omitempty"`
	EmbeddingModel  *ModelDescriptor `json:"embedding_model,omitempty"`
	ImageModel      *ModelDescriptor `json:"image_model,omitempty"`
	TTSModel        *ModelDescriptor `json:"tts_model,omitempty"`
	TranslateModel  *ModelDescriptor `json:"translate_model,omitempty"`
	TranscribeModel *ModelDescriptor `json:"transcribe_model,omitempty"`
}

// ── Model listing (/v1/models) ───────────────────────────────

// Model is one entry of an OpenAI-compatible model list.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ListModelsResponse is the body of GET /v1/models, both as returned by
// backends and as aggregated by the gateway.
type ListModelsResponse struct {
	Object string  `json:"object,omitempty"`
	Data   []Model `json:"data"`
}

// ── Embeddings sub-request ───────────────────────────────────

// EmbeddingRequest is the request the RAG pipeline sends to an embeddings
// backend. Input is a single query string.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbeddingObject is one vector of an embeddings response.
type EmbeddingObject struct {
	Object    string    `json:"object,omitempty"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingsResponse is the subset of an OpenAI embeddings response the
// gateway reads.
type EmbeddingsResponse struct {
	Object string            `json:"object,omitempty"`
	Model  string            `json:"model,omitempty"`
	Data   []EmbeddingObject `json:"data"`
}

// ── Admin payloads ───────────────────────────────────────────

// RegisterRequest is the body of POST /admin/servers/register.
// Kind carries the declared kind tokens, e.g. ["chat","embeddings"].
type RegisterRequest struct {
	URL  string   `json:"url"`
	Kind []string `json:"kind"`
}

// RegisterResponse acknowledges a successful registration.
type RegisterResponse struct {
	ID   string   `json:"id"`
	URL  string   `json:"url"`
	Kind []string `json:"kind"`
}

// UnregisterRequest is the body of POST /admin/servers/unregister.
type UnregisterRequest struct {
	ServerID string `json:"server_id"`
}

// UnregisterResponse acknowledges a successful removal.
type UnregisterResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// BackendView is the listing shape of one registered backend.
type BackendView struct {
	ID   string   `json:"id"`
	URL  string   `json:"url"`
	Kind []string `json:"kind"`
	Load uint64   `json:"load"`
}

// ── RAG ingestion ────────────────────────────────────────────

// IngestRequest is the body of POST /admin/rag/documents.
type IngestRequest struct {
	Text           string `json:"text"`
	Type           string `json:"type,omitempty"` // "txt" (default) or "md"
	CollectionName string `json:"collection_name"`
	ChunkCapacity  int    `json:"chunk_capacity,omitempty"`
}

// IngestResponse reports what an ingestion run produced.
type IngestResponse struct {
	CollectionName string `json:"collection_name"`
	Chunks         int    `json:"chunks"`
	Dim            int    `json:"dim"`
}

// ── Retrieval ────────────────────────────────────────────────

// RetrievedPoint is one deduplicated hit from a vector-DB search. Source is
// the chunk text stored under the point's "source" payload field; it is also
// the deduplication key.
type RetrievedPoint struct {
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}
