// Package rag augments chat requests with retrieved context before they
// reach a chat backend: derive a query from the conversation, embed it,
// search the configured vector-DB collections, and merge the deduplicated
// hits into the message array.
package rag

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/modelgate/modelgate/internal/capability"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/internal/vectordb"
	"github.com/modelgate/modelgate/pkg/models"
)

// Embedder turns a query string into its embedding vector. The chat
// pipeline satisfies it with an in-process call into the embeddings
// dispatcher, so no loopback HTTP hop is paid.
type Embedder interface {
	Embed(ctx context.Context, requestID, input string) ([]float32, error)
}

// Orchestrator runs the retrieval stages ahead of a chat dispatch.
type Orchestrator struct {
	cfg      config.RAGConfig
	caps     *capability.Store
	embedder Embedder
	tracer   trace.Tracer
}

// NewOrchestrator wires the pipeline. The capability store supplies the
// chat backend's prompt template for the merge policy.
func NewOrchestrator(cfg config.RAGConfig, caps *capability.Store, embedder Embedder) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		caps:     caps,
		embedder: embedder,
		tracer:   otel.Tracer("modelgate/rag"),
	}
}

// Prepare runs the full retrieval pipeline on a chat request body and
// returns the body with context merged in. When nothing crosses the score
// threshold the body comes back unchanged.
func (o *Orchestrator) Prepare(ctx context.Context, requestID string, body []byte) ([]byte, error) {
	ctx, span := o.tracer.Start(ctx, "rag.prepare")
	defer span.End()

	targets, err := resolveTargets(body, o.cfg.VectorDB)
	if err != nil {
		return nil, err
	}

	window := o.cfg.ContextWindow
	if cw := gjson.GetBytes(body, "context_window"); cw.Exists() && cw.Uint() > 0 {
		window = cw.Uint()
	}

	query, err := deriveQuery(body, window)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("request_id", requestID).
		Uint64("context_window", window).
		Msg("Query text for the context retrieval: " + query)

	vector, err := o.embedder.Embed(ctx, requestID, query)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("embedding_dim", len(vector)))

	points, err := o.retrieve(ctx, requestID, body, targets, vector)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		log.Warn().
			Str("request_id", requestID).
			Msg("No context retrieved; forwarding the chat request unchanged")
		return body, nil
	}

	var sb strings.Builder
	for _, p := range points {
		sb.WriteString(p.Source)
		sb.WriteString("\n\n")
	}

	template, ok := o.caps.ChatPromptTemplate()
	if !ok {
		return nil, httperr.NotFoundBackend("chat")
	}

	return mergeContext(body, sb.String(), o.cfg.Policy, o.cfg.Prompt, hasSystemPrompt(template), requestID)
}

// retrieve searches every target concurrently and merges the results in
// target order, dropping points whose source was already seen.
func (o *Orchestrator) retrieve(ctx context.Context, requestID string, body []byte, targets []Target, vector []float32) ([]models.RetrievedPoint, error) {
	apiKey := gjson.GetBytes(body, "vdb_api_key").String()
	if apiKey == "" {
		apiKey = os.Getenv("VDB_API_KEY")
	}

	results := make([][]vectordb.ScoredPoint, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			client := vectordb.New(t.URL, vectordb.WithAPIKey(apiKey))
			hits, err := client.SearchPoints(gctx, t.Collection, vector, t.Limit, t.ScoreThreshold)
			if err != nil {
				return httperr.Operationf("No point retrieved. %s", err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var points []models.RetrievedPoint
	for i, hits := range results {
		kept := 0
		for _, hit := range hits {
			source := hit.Source()
			if source == "" {
				continue
			}
			if _, dup := seen[source]; dup {
				continue
			}
			seen[source] = struct{}{}
			points = append(points, models.RetrievedPoint{Source: source, Score: hit.Score})
			kept++
		}
		if kept == 0 {
			log.Warn().
				Str("request_id", requestID).
				Str("collection", targets[i].Collection).
				Float32("score_threshold", targets[i].ScoreThreshold).
				Msg("No point retrieved from the collection")
			continue
		}
		log.Info().
			Str("request_id", requestID).
			Str("collection", targets[i].Collection).
			Int("points", kept).
			Msg("Retrieved points from the collection")
	}
	return points, nil
}
