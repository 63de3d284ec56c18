// Package vectordb is a thin REST client for a qdrant-compatible vector
// database: point search for retrieval, collection creation and point
// upsert for ingestion.
package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one qdrant instance. Instances are cheap to construct;
// the RAG path builds one per request because the URL may come from the
// request itself.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sends the key in the api-key header on every call.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a client for the qdrant instance at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScoredPoint is one search hit. The payload carries the chunk text under
// its "source" key.
type ScoredPoint struct {
	Score   float32                    `json:"score"`
	Payload map[string]json.RawMessage `json:"payload"`
}

// Source returns the payload's "source" string, or "" when absent.
func (p ScoredPoint) Source() string {
	raw, ok := p.Payload["source"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Point is one vector to upsert.
type Point struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          uint64    `json:"limit"`
	ScoreThreshold float32   `json:"score_threshold,omitempty"`
	WithPayload    bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []ScoredPoint `json:"result"`
}

// SearchPoints returns up to limit points similar to vector, filtered by
// the score threshold.
func (c *Client) SearchPoints(ctx context.Context, collection string, vector []float32, limit uint64, scoreThreshold float32) ([]ScoredPoint, error) {
	body := searchRequest{
		Vector:         vector,
		Limit:          limit,
		ScoreThreshold: scoreThreshold,
		WithPayload:    true,
	}
	var out searchResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// CreateCollection creates (or recreates) a cosine-distance collection of
// the given dimensionality.
func (c *Client) CreateCollection(ctx context.Context, collection string, dim int) error {
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+collection, body, nil)
}

// UpsertPoints writes the points into the collection.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	body := map[string]any{"points": points}
	return c.do(ctx, http.MethodPut, "/collections/"+collection+"/points", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector db request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vector db returned %d: %s", resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse vector db response: %w", err)
	}
	return nil
}
