// Package middleware holds the gateway's HTTP middleware: request-id
// extraction and structured request logging.
package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// unknownRequestID tags requests whose client sent no x-request-id.
const unknownRequestID = "unknown"

// RequestID reads the inbound x-request-id header, defaults it to
// "unknown", and stores it in the request context for every log line
// downstream. The id is echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = unknownRequestID
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored by RequestID, or "unknown".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return unknownRequestID
}
