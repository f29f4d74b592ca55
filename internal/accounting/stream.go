// Package accounting meters a provider's chat-completion event stream while
// forwarding the generated text to the client.
//
// A Stream moves through these states:
//   - Streaming: reading provider bytes, forwarding content deltas
//   - Complete: the provider closed the stream cleanly
//   - UpstreamError: reading from the provider failed mid-stream
//   - Cancelled: the client went away or the context ended
//
// Whatever the exit, exactly one usage figure is finalized: the provider's own
// usage record when one arrived, otherwise a character-count estimate.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

type State int

const (
	StateStreaming State = iota
	StateComplete
	StateUpstreamError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateUpstreamError:
		return "upstream_error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const defaultChunkSize = 32 * 1024

// Result is the finalized outcome of a Stream.
type Result struct {
	State        State
	Usage        domain.Usage
	Source       domain.UsageSource
	Content      string
	ContentChars int
	Malformed    int
	Err          error
}

type Stream struct {
	src            io.ReadCloser
	sink           io.Writer
	estimatedInput int
	chunkSize      int

	splitter  LineSplitter
	content   strings.Builder
	chars     int
	malformed int
	usage     *domain.Usage
	state     State
	err       error
	result    *Result
}

// NewStream wires the provider body src to sink. estimatedInputTokens is used only
// if the provider never reports usage. If sink implements http.Flusher it is
// flushed after every content delta.
func NewStream(src io.ReadCloser, sink io.Writer, estimatedInputTokens int) *Stream {
	return &Stream{
		src:            src,
		sink:           sink,
		estimatedInput: estimatedInputTokens,
		chunkSize:      defaultChunkSize,
		state:          StateStreaming,
	}
}

// Run consumes the provider stream until it ends, fails or ctx is done, and
// returns the finalized Result. The provider body is always closed. Calling Run
// again returns the same Result without reading.
func (s *Stream) Run(ctx context.Context) (res Result) {
	if s.result != nil {
		return *s.result
	}

	defer func() {
		s.src.Close()
		res = s.finalize()
	}()

	// Closing the body unblocks a pending Read when the client disconnects.
	stop := context.AfterFunc(ctx, func() { s.src.Close() })
	defer stop()

	buf := make([]byte, s.chunkSize)
	for s.state == StateStreaming {
		n, err := s.src.Read(buf)
		if n > 0 {
			if ferr := s.splitter.Feed(buf[:n], s.handleLine); ferr != nil {
				s.transition(StateUpstreamError, ferr)
			}
		}
		if s.state != StateStreaming {
			break
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			s.splitter.Flush(s.handleLine)
			s.transition(StateComplete, nil)
		case ctx.Err() != nil:
			s.transition(StateCancelled, ctx.Err())
		default:
			s.transition(StateUpstreamError, fmt.Errorf("read provider stream: %w", err))
		}
	}

	return Result{}
}

// Result returns the finalized Result and whether the stream has finished.
func (s *Stream) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

func (s *Stream) State() State {
	return s.state
}

func (s *Stream) transition(to State, err error) {
	if s.state != StateStreaming {
		return
	}
	s.state = to
	s.err = err
}

func (s *Stream) handleLine(line []byte) {
	if s.state != StateStreaming {
		return
	}

	ev := DecodeLine(line)
	if ev.Malformed {
		s.malformed++
	}

	if ev.Text != "" {
		s.forward(ev.Text)
	}

	if ev.Usage != nil {
		usage := *ev.Usage
		s.usage = &usage
	}
}

func (s *Stream) forward(text string) {
	if _, err := io.WriteString(s.sink, text); err != nil {
		s.transition(StateCancelled, fmt.Errorf("write to client: %w", err))
		return
	}
	if f, ok := s.sink.(http.Flusher); ok {
		f.Flush()
	}

	s.content.WriteString(text)
	s.chars += utf8.RuneCountInString(text)
}

// finalize fixes the usage decision. It runs once; later calls return the cached Result.
func (s *Stream) finalize() Result {
	if s.result != nil {
		return *s.result
	}

	if s.state == StateStreaming {
		s.transition(StateUpstreamError, errors.New("stream ended unexpectedly"))
	}

	r := Result{
		State:        s.state,
		Content:      s.content.String(),
		ContentChars: s.chars,
		Malformed:    s.malformed,
		Err:          s.err,
	}

	if s.usage != nil {
		r.Usage = *s.usage
		r.Source = domain.UsageAuthoritative
	} else {
		completion := EstimateOutputTokens(s.chars)
		r.Usage = domain.Usage{
			PromptTokens:     s.estimatedInput,
			CompletionTokens: completion,
			TotalTokens:      s.estimatedInput + completion,
		}
		r.Source = domain.UsageEstimated
	}

	s.result = &r
	return r
}
