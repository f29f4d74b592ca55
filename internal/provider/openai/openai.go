// Package openai talks to an OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/httputil"
)

const maxErrorBody = 4 << 10

// UpstreamError is a non-2xx answer from the provider.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return domain.ErrProviderError }

// StreamRequest is one generation: a system instruction plus the user's prompt.
type StreamRequest struct {
	Model  string
	System string
	User   string
}

type Provider struct {
	apiKey       string
	baseURL      string
	streamClient *http.Client
	client       *http.Client
}

type Option func(*Provider)

// WithHTTPClient replaces both the streaming and the request/response client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.streamClient = c
		p.client = c
	}
}

func New(apiKey, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		streamClient: httputil.NewClient(httputil.StreamingConfig()),
		client:       httputil.DefaultClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string {
	return "openai"
}

// Configured reports whether an API key is set. Without one every call fails
// with domain.ErrMissingCredential before touching the network.
func (p *Provider) Configured() bool {
	return p.apiKey != ""
}

// OpenStream starts a streaming completion and returns the raw event-stream body.
// The caller owns the body and must close it.
func (p *Provider) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	chatReq := domain.ChatRequest{
		Model: req.Model,
		Messages: []domain.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream:        true,
		StreamOptions: &domain.StreamOptions{IncludeUsage: true},
	}

	resp, err := p.do(ctx, p.streamClient, chatReq, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Complete runs a non-streaming completion and returns the first choice's text.
func (p *Provider) Complete(ctx context.Context, model, system, user string, temperature float64) (string, error) {
	chatReq := domain.ChatRequest{
		Model: model,
		Messages: []domain.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
	}

	resp, err := p.do(ctx, p.client, chatReq, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp domain.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return "", nil
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) do(ctx context.Context, client *http.Client, chatReq domain.ChatRequest, accept string) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, domain.ErrMissingCredential
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", accept)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %w", domain.ErrProviderError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	return resp, nil
}

// IsUpstream reports whether err came back from the provider as a non-2xx answer.
func IsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
