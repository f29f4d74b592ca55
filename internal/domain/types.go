package domain

import "time"

// GenerationRequest is the inbound body of POST /api/generate.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	UserID string `json:"userId,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageSource tells whether a Usage was echoed by the provider or estimated locally.
type UsageSource string

const (
	UsageAuthoritative UsageSource = "authoritative"
	UsageEstimated     UsageSource = "estimated"
)

// CostReport is the one-way ledger entry handed to the billing sinks.
type CostReport struct {
	RequestID   string      `json:"requestId"`
	UserID      string      `json:"userId"`
	Model       string      `json:"model"`
	Usage       Usage       `json:"usage"`
	UsageSource UsageSource `json:"usageSource"`
	Cost        float64     `json:"cost"`
	Prompt      string      `json:"prompt"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Generation is a stored landing page.
type Generation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Prompt    string    `json:"prompt"`
	HTML      string    `json:"html_code"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile carries the prepaid wallet balance of a user.
type Profile struct {
	ID        string
	Balance   float64
	UpdatedAt time.Time
}

type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}
