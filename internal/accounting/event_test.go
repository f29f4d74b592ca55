package accounting

import (
	"testing"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantKind  EventKind
		wantText  string
		wantUsage *domain.Usage
		malformed bool
	}{
		{
			name:     "content delta",
			line:     `data: {"choices":[{"index":0,"delta":{"content":"<h1>"}}]}`,
			wantKind: EventContent,
			wantText: "<h1>",
		},
		{
			name:     "content delta without space after prefix",
			line:     `data:{"choices":[{"delta":{"content":"x"}}]}`,
			wantKind: EventContent,
			wantText: "x",
		},
		{
			name:     "carriage return is stripped",
			line:     "data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\r",
			wantKind: EventContent,
			wantText: "y",
		},
		{
			name:      "usage record",
			line:      `data: {"choices":[],"usage":{"prompt_tokens":120,"completion_tokens":40,"total_tokens":160}}`,
			wantKind:  EventUsage,
			wantUsage: &domain.Usage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
		},
		{
			name:      "usage without total is summed",
			line:      `data: {"usage":{"prompt_tokens":3,"completion_tokens":4}}`,
			wantKind:  EventUsage,
			wantUsage: &domain.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		},
		{
			name:      "negative usage fields clamp",
			line:      `data: {"usage":{"prompt_tokens":-3,"completion_tokens":4,"total_tokens":1}}`,
			wantKind:  EventUsage,
			wantUsage: &domain.Usage{PromptTokens: 0, CompletionTokens: 4, TotalTokens: 1},
		},
		{
			name:      "delta and usage in one payload",
			line:      `data: {"choices":[{"delta":{"content":"end"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
			wantKind:  EventContent,
			wantText:  "end",
			wantUsage: &domain.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
		},
		{
			name:     "null usage is not a usage record",
			line:     `data: {"choices":[{"delta":{"content":"a"}}],"usage":null}`,
			wantKind: EventContent,
			wantText: "a",
		},
		{
			name:     "done marker",
			line:     "data: [DONE]",
			wantKind: EventDone,
		},
		{
			name:     "empty delta",
			line:     `data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`,
			wantKind: EventIgnored,
		},
		{
			name:     "keep-alive comment",
			line:     ": keep-alive",
			wantKind: EventIgnored,
		},
		{
			name:     "blank line",
			line:     "",
			wantKind: EventIgnored,
		},
		{
			name:     "event field",
			line:     "event: message",
			wantKind: EventIgnored,
		},
		{
			name:      "truncated json",
			line:      `data: {"choices":[{"delta":{"content":"hal`,
			wantKind:  EventIgnored,
			malformed: true,
		},
		{
			name:     "content of wrong type",
			line:     `data: {"choices":[{"delta":{"content":42}}]}`,
			wantKind: EventIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DecodeLine([]byte(tt.line))

			if ev.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", ev.Text, tt.wantText)
			}
			if ev.Malformed != tt.malformed {
				t.Errorf("Malformed = %v, want %v", ev.Malformed, tt.malformed)
			}
			switch {
			case tt.wantUsage == nil && ev.Usage != nil:
				t.Errorf("Usage = %+v, want nil", *ev.Usage)
			case tt.wantUsage != nil && ev.Usage == nil:
				t.Errorf("Usage = nil, want %+v", *tt.wantUsage)
			case tt.wantUsage != nil && *ev.Usage != *tt.wantUsage:
				t.Errorf("Usage = %+v, want %+v", *ev.Usage, *tt.wantUsage)
			}
		})
	}
}

func TestEstimates(t *testing.T) {
	tests := []struct {
		chars int
		want  int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{7, 2},
		{15, 5},
		{35, 10},
		{36, 11},
	}

	for _, tt := range tests {
		if got := EstimateOutputTokens(tt.chars); got != tt.want {
			t.Errorf("EstimateOutputTokens(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}

	if got := EstimateInputTokens("abcd", "efgh"); got != 2 {
		t.Errorf("EstimateInputTokens(8 chars) = %d, want 2", got)
	}
	if got := EstimateInputTokens("abcde", ""); got != 2 {
		t.Errorf("EstimateInputTokens(5 chars) = %d, want 2", got)
	}
	if got := EstimateInputTokens("", ""); got != 0 {
		t.Errorf("EstimateInputTokens(empty) = %d, want 0", got)
	}
	// Characters, not bytes.
	if got := EstimateInputTokens("héllo wörld", ""); got != 3 {
		t.Errorf("EstimateInputTokens(11 runes) = %d, want 3", got)
	}
}
