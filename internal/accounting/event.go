package accounting

import (
	"bytes"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/tidwall/gjson"
)

// EventKind tags a decoded provider line.
type EventKind int

const (
	// EventIgnored covers keep-alives, comments, unknown records and malformed JSON.
	EventIgnored EventKind = iota
	EventContent
	EventUsage
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventUsage:
		return "usage"
	case EventDone:
		return "done"
	default:
		return "ignored"
	}
}

// Event is one decoded line of the provider stream. A payload that carries both a
// delta and a usage object decodes as EventContent with Usage set.
type Event struct {
	Kind      EventKind
	Text      string
	Usage     *domain.Usage
	Malformed bool
}

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// DecodeLine maps a single line (without its newline) to an Event. It never fails:
// anything it cannot interpret is EventIgnored.
func DecodeLine(line []byte) Event {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, dataPrefix) {
		return Event{Kind: EventIgnored}
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if bytes.Equal(payload, doneMarker) {
		return Event{Kind: EventDone}
	}

	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return Event{Kind: EventIgnored, Malformed: len(payload) > 0}
	}

	ev := Event{Kind: EventIgnored}

	if u := gjson.GetBytes(payload, "usage"); u.IsObject() {
		usage := decodeUsage(u)
		ev.Usage = &usage
		ev.Kind = EventUsage
	}

	if c := gjson.GetBytes(payload, "choices.0.delta.content"); c.Type == gjson.String && c.Str != "" {
		ev.Text = c.Str
		ev.Kind = EventContent
	}

	return ev
}

func decodeUsage(u gjson.Result) domain.Usage {
	usage := domain.Usage{
		PromptTokens:     nonNegative(u.Get("prompt_tokens").Int()),
		CompletionTokens: nonNegative(u.Get("completion_tokens").Int()),
		TotalTokens:      nonNegative(u.Get("total_tokens").Int()),
	}
	if !u.Get("total_tokens").Exists() {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func nonNegative(v int64) int {
	if v < 0 {
		return 0
	}
	return int(v)
}
