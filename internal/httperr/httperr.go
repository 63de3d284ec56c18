// Package httperr defines the gateway's error taxonomy and the single place
// where errors become HTTP responses.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind classifies a gateway error and fixes its HTTP status.
type Kind int

const (
	// KindOperation covers downstream network failures, verification
	// failures, and response construction errors.
	KindOperation Kind = iota
	// KindNotFoundBackend means no registered backend can serve the kind.
	KindNotFoundBackend
	// KindSocketAddr means a bind or backend URL failed to parse.
	KindSocketAddr
	// KindArgumentError means CLI or config values were unusable.
	KindArgumentError
	// KindBadRequest means the inbound payload was malformed.
	KindBadRequest
	// KindInvalidKind means an unknown kind token was supplied.
	KindInvalidKind
	// KindFailedToLoadConfig means the config file could not be read or parsed.
	KindFailedToLoadConfig
)

func (k Kind) String() string {
	switch k {
	case KindNotFoundBackend:
		return "not_found_backend"
	case KindSocketAddr:
		return "socket_addr"
	case KindArgumentError:
		return "argument_error"
	case KindBadRequest:
		return "bad_request"
	case KindInvalidKind:
		return "invalid_kind"
	case KindFailedToLoadConfig:
		return "failed_to_load_config"
	default:
		return "operation"
	}
}

// Status maps the kind onto its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNotFoundBackend:
		return http.StatusNotFound
	case KindSocketAddr, KindArgumentError, KindBadRequest, KindInvalidKind, KindFailedToLoadConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified gateway error. Message is the full client-facing
// wording; constructors bake in the per-kind prefix.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int { return e.Kind.Status() }

// ── Constructors ─────────────────────────────────────────────

// NotFoundBackend reports an empty or missing pool for a kind token.
func NotFoundBackend(kind string) *Error {
	return &Error{Kind: KindNotFoundBackend, Message: fmt.Sprintf("No %s server available", kind)}
}

// SocketAddr reports an unparseable bind or backend address.
func SocketAddr(detail string) *Error {
	return &Error{Kind: KindSocketAddr, Message: "Failed to parse socket address: " + detail}
}

// ArgumentError reports unusable CLI or configuration values.
func ArgumentError(detail string) *Error {
	return &Error{Kind: KindArgumentError, Message: detail}
}

// BadRequest reports a malformed inbound payload.
func BadRequest(detail string) *Error {
	return &Error{Kind: KindBadRequest, Message: "Bad request: " + detail}
}

// InvalidKind reports an unknown kind token.
func InvalidKind(token string) *Error {
	return &Error{Kind: KindInvalidKind, Message: "Invalid server kind: " + token}
}

// FailedToLoadConfig reports a config file that could not be loaded.
func FailedToLoadConfig(detail string) *Error {
	return &Error{Kind: KindFailedToLoadConfig, Message: "Failed to load config: " + detail}
}

// Operation reports a downstream or internal operation failure.
func Operation(detail string) *Error {
	return &Error{Kind: KindOperation, Message: detail}
}

// Operationf is Operation with formatting.
func Operationf(format string, args ...any) *Error {
	return &Error{Kind: KindOperation, Message: fmt.Sprintf(format, args...)}
}

// As extracts a classified error, wrapping anything else as Operation.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindOperation, Message: err.Error()}
}

// Write logs the error with the request id and renders it. Every error
// response carries CORS wildcards so browser clients can read the failure
// regardless of origin.
func Write(w http.ResponseWriter, requestID string, err error) {
	e := As(err)

	log.Error().
		Str("request_id", requestID).
		Str("kind", e.Kind.String()).
		Int("status", e.Status()).
		Msg(e.Message)

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "*")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(map[string]string{"error": e.Message})
}
