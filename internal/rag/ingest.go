package rag

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/internal/vectordb"
	"github.com/modelgate/modelgate/pkg/models"
)

// Ingester loads documents into the default vector DB: chunk the text,
// embed every chunk, create the collection, and upsert the points with the
// chunk text stored under the "source" payload key so retrieval can hand
// it straight back as context.
type Ingester struct {
	vdbURL   string
	embedder Embedder
}

// NewIngester creates an ingester against the configured vector-DB URL.
func NewIngester(vdbURL string, embedder Embedder) *Ingester {
	return &Ingester{vdbURL: vdbURL, embedder: embedder}
}

// Ingest runs the full pipeline and reports the number of chunks written
// and the embedding dimensionality.
func (ing *Ingester) Ingest(ctx context.Context, requestID string, req models.IngestRequest) (*models.IngestResponse, error) {
	start := time.Now()

	if req.CollectionName == "" {
		return nil, httperr.BadRequest("Found empty collection name")
	}

	chunks, err := chunkText(req.Text, req.Type, req.ChunkCapacity)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("request_id", requestID).
		Str("collection", req.CollectionName).
		Int("chunks", len(chunks)).
		Msg("Chunking complete")

	points := make([]vectordb.Point, len(chunks))
	dim := 0
	for i, chunk := range chunks {
		vector, err := ing.embedder.Embed(ctx, requestID, chunk)
		if err != nil {
			return nil, err
		}
		if dim == 0 {
			dim = len(vector)
		}
		points[i] = vectordb.Point{
			ID:      uint64(i),
			Vector:  vector,
			Payload: map[string]any{"source": chunk},
		}
	}
	if dim == 0 {
		return nil, httperr.Operation("No embeddings returned")
	}

	client := vectordb.New(ing.vdbURL, vectordb.WithAPIKey(os.Getenv("VDB_API_KEY")))
	if err := client.CreateCollection(ctx, req.CollectionName, dim); err != nil {
		return nil, httperr.Operationf("Failed to create the collection: %s", err)
	}
	if err := client.UpsertPoints(ctx, req.CollectionName, points); err != nil {
		return nil, httperr.Operationf("Failed to upsert the points: %s", err)
	}

	log.Info().
		Str("request_id", requestID).
		Str("collection", req.CollectionName).
		Int("points", len(points)).
		Int("dim", dim).
		Dur("elapsed", time.Since(start)).
		Msg("Ingestion complete")

	return &models.IngestResponse{
		CollectionName: req.CollectionName,
		Chunks:         len(chunks),
		Dim:            dim,
	}, nil
}
