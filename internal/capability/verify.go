package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/models"
)

// Verifier probes a candidate backend before registration commits: its
// /v1/info must declare a model for every kind the candidate claims, and
// its /v1/models list is captured for the aggregated listing.
type Verifier struct {
	client *http.Client
}

// VerifierOption configures the verifier.
type VerifierOption func(*Verifier)

// WithHTTPClient replaces the probe client, mainly for tests.
func WithHTTPClient(c *http.Client) VerifierOption {
	return func(v *Verifier) { v.client = c }
}

// NewVerifier creates a verifier whose probes are bounded by timeout.
func NewVerifier(timeout time.Duration, opts ...VerifierOption) *Verifier {
	v := &Verifier{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// kindCheck pairs the phrasing of a verification failure with the probe
// field that must be present for the kind.
var kindChecks = []struct {
	kind    registry.Kind
	article string
	noun    string
	field   func(*models.BackendCapabilities) *models.ModelDescriptor
}{
	{registry.KindChat, "a", "chat server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.ChatModel }},
	{registry.KindEmbeddings, "an", "embedding server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.EmbeddingModel }},
	{registry.KindImage, "an", "image server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.ImageModel }},
	{registry.KindTranscribe, "a", "transcription server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.TranscribeModel }},
	{registry.KindTranslate, "a", "translation server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.TranslateModel }},
	{registry.KindTTS, "a", "TTS server", func(c *models.BackendCapabilities) *models.ModelDescriptor { return c.TTSModel }},
}

// Verify fetches the candidate's /v1/info and /v1/models, checks every
// declared kind against the reported capabilities, and returns what was
// fetched. Nothing is cached here; the caller commits the result together
// with the registry entry so a failure leaves no trace.
func (v *Verifier) Verify(ctx context.Context, requestID string, b *registry.Backend) (models.BackendCapabilities, []models.Model, error) {
	var caps models.BackendCapabilities
	if err := v.getJSON(ctx, b.BaseURL()+"/v1/info", &caps); err != nil {
		return caps, nil, httperr.Operationf("Failed to verify the %s downstream server: %s", b.Kinds(), err)
	}

	for _, check := range kindChecks {
		if !b.Kinds().Contains(check.kind) {
			continue
		}
		if check.field(&caps) == nil {
			return caps, nil, httperr.Operationf(
				"You are trying to register %s %s. However, the server does not support `%s`. Please check the server kind.",
				check.article, check.noun, check.kind)
		}
	}

	var list models.ListModelsResponse
	if err := v.getJSON(ctx, b.BaseURL()+"/v1/models", &list); err != nil {
		return caps, nil, httperr.Operationf("Failed to get the models from the downstream server: %s", err)
	}

	log.Info().
		Str("request_id", requestID).
		Str("server_id", b.ID()).
		Str("kind", b.Kinds().String()).
		Int("models", len(list.Data)).
		Msg("Verified downstream server")

	return caps, list.Data, nil
}

func (v *Verifier) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	return nil
}
