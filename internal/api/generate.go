package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/accounting"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/billing"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/prompt"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/provider/openai"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/telemetry"
)

// handleGenerate streams a landing page for the caller's prompt.
//
// Validation and provider rejection are reported as JSON errors. Once the first
// byte of the page is written the response is committed to plain text, so a
// failure after that point shows up only as a truncated page.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := newRequestID()
	w.Header().Set("X-Request-ID", requestID)
	if clientID := clientRequestID(r); clientID != "" {
		h.logger.Debug("generation request received", "request_id", requestID, "client_request_id", clientID)
	}

	var req domain.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !h.provider.Configured() {
		h.logger.Error("generation rejected, provider credential not configured", "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "Missing OPENAI_API_KEY")
		return
	}
	if !h.allow(w, r, "generate", req.UserID, requestID) {
		return
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.defaultModel
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxDuration)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "generate")
	defer span.End()

	imageURLs := h.fetchImages(ctx, req.Prompt)
	telemetry.AddGenerationAttributes(span, requestID, req.UserID, model, len(imageURLs))

	system := prompt.Compose(imageURLs)
	body, err := h.provider.OpenStream(ctx, openai.StreamRequest{
		Model:  model,
		System: system,
		User:   req.Prompt,
	})
	if err != nil {
		status, message := providerErrorStatus(err)
		errorType := "transport"
		if _, ok := openai.IsUpstream(err); ok {
			errorType = "rejected"
		}
		metrics.RecordProviderError("openai", errorType)
		metrics.RecordGeneration(model, "rejected", time.Since(start).Seconds())
		telemetry.AddErrorAttribute(span, err)
		h.logger.Error("provider stream failed to open",
			"request_id", requestID,
			"model", model,
			"error", err,
		)
		writeError(w, status, message)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementActiveStreams()
	stream := accounting.NewStream(body, w, accounting.EstimateInputTokens(system, req.Prompt))
	res := stream.Run(ctx)
	metrics.DecrementActiveStreams()

	h.recordOutcome(ctx, requestID, model, res, start)

	if res.State == accounting.StateComplete && req.UserID != "" {
		h.saveGeneration(ctx, requestID, req, model, res.Content)
	}

	if h.reporter != nil {
		h.reporter.Dispatch(ctx, billing.Input{
			RequestID: requestID,
			UserID:    req.UserID,
			Model:     model,
			Prompt:    req.Prompt,
			Usage:     res.Usage,
			Source:    res.Source,
		})
	}
}

func (h *Handler) fetchImages(ctx context.Context, query string) []string {
	if h.images == nil {
		return nil
	}
	return h.images.Fetch(ctx, query)
}

func (h *Handler) recordOutcome(ctx context.Context, requestID, model string, res accounting.Result, start time.Time) {
	duration := time.Since(start)
	metrics.RecordGeneration(model, res.State.String(), duration.Seconds())
	metrics.RecordTokens(model, string(res.Source), res.Usage.PromptTokens, res.Usage.CompletionTokens)
	metrics.RecordMalformedLines(res.Malformed)
	if res.State == accounting.StateUpstreamError {
		metrics.RecordProviderError("openai", "stream")
	}

	span := telemetry.SpanFromContext(ctx)
	telemetry.AddStreamAttributes(span, res.State.String(), res.ContentChars, res.Malformed)
	telemetry.AddUsageAttributes(span, res.Usage.PromptTokens, res.Usage.CompletionTokens, string(res.Source))

	attrs := []any{
		"request_id", requestID,
		"model", model,
		"state", res.State.String(),
		"usage_source", res.Source,
		"prompt_tokens", res.Usage.PromptTokens,
		"completion_tokens", res.Usage.CompletionTokens,
		"content_chars", res.ContentChars,
		"latency_ms", duration.Milliseconds(),
	}
	if res.Malformed > 0 {
		h.logger.Debug("provider stream had malformed lines", "request_id", requestID, "count", res.Malformed)
	}

	switch res.State {
	case accounting.StateComplete:
		h.logger.Info("generation completed", attrs...)
	case accounting.StateCancelled:
		h.logger.Info("generation cancelled", append(attrs, "error", res.Err)...)
	default:
		if res.Err != nil {
			telemetry.AddErrorAttribute(span, res.Err)
		}
		h.logger.Warn("generation stream failed", append(attrs, "error", res.Err)...)
	}
}

// saveGeneration stores the finished page. The client already has it, so a
// failure here is logged rather than reported.
func (h *Handler) saveGeneration(ctx context.Context, requestID string, req domain.GenerationRequest, model, html string) {
	if h.generations == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	gen := &domain.Generation{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Prompt:    req.Prompt,
		HTML:      html,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.generations.Save(ctx, gen); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("failed to save generation", "request_id", requestID, "user_id", req.UserID, "error", err)
		return
	}
	h.logger.Debug("generation saved", "request_id", requestID, "generation_id", gen.ID)
}
