// Package proxy forwards inbound requests to a selected backend and relays
// the response back, preserving streaming semantics.
package proxy

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/modelgate/modelgate/internal/httperr"
)

// ContentType selects how the relayed response's Content-Type is set.
type ContentType int

const (
	// ContentTypeJSON normalizes the response to application/json.
	ContentTypeJSON ContentType = iota
	// ContentTypeEventStream forces text/event-stream, used when the chat
	// client asked for a streamed completion.
	ContentTypeEventStream
	// ContentTypeEcho preserves whatever the backend declared; audio
	// speech responses keep their binary type this way.
	ContentTypeEcho
)

// hop-by-hop headers are stripped in both directions.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Engine performs the actual round trips. The client's transport bounds
// the dial and response-header wait but never the body read, so streamed
// completions are not cut off mid-stream.
type Engine struct {
	client *http.Client
	tracer trace.Tracer
}

// Option configures the engine.
type Option func(*Engine)

// WithHTTPClient replaces the forwarding client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// New creates an engine whose per-hop timeout covers connect plus response
// headers.
func New(timeout time.Duration, opts ...Option) *Engine {
	e := &Engine{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		tracer: otel.Tracer("modelgate/proxy"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do forwards a request to trimTrailingSlash(baseURL)+path, copying the
// inbound headers minus the hop-by-hop set. The body is passed through as
// a stream. The caller owns the returned response body.
func (e *Engine) Do(ctx context.Context, requestID, method, baseURL, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	target := baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	ctx, span := e.tracer.Start(ctx, "proxy.forward",
		trace.WithAttributes(attribute.String("target", target)))
	defer span.End()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, httperr.Operationf("Failed to create the request: %s", err)
	}
	copyHeaders(req.Header, header)
	req.Header.Set("X-Request-Id", requestID)

	log.Info().
		Str("request_id", requestID).
		Str("target", target).
		Msg("Forward the request to the downstream server")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, httperr.Operationf("Failed to forward the request to the downstream server after %s: %s",
			time.Since(start).Round(time.Millisecond), err)
	}
	return resp, nil
}

// Relay streams the backend response to the client, applying the
// content-type policy and flushing after every chunk so SSE frames arrive
// as the backend emits them. It returns the relayed status code.
func (e *Engine) Relay(w http.ResponseWriter, resp *http.Response, ct ContentType) (int, error) {
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	switch ct {
	case ContentTypeEventStream:
		w.Header().Set("Content-Type", "text/event-stream")
	case ContentTypeJSON:
		w.Header().Set("Content-Type", "application/json")
	case ContentTypeEcho:
		// keep the backend's declaration
	}
	w.WriteHeader(resp.StatusCode)

	var dst io.Writer = w
	if f, ok := w.(http.Flusher); ok {
		dst = &flushWriter{w: w, f: f}
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		// Headers are already out; the client sees a truncated body.
		return resp.StatusCode, httperr.Operationf("Failed to relay the response body: %s", err)
	}
	return resp.StatusCode, nil
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		dst[name] = append([]string(nil), values...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
	dst.Del("Host")
}

type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}
