package accounting

import (
	"bytes"
	"errors"
)

// DefaultMaxLineBytes bounds a line that has not seen its newline yet.
const DefaultMaxLineBytes = 1 << 20

var ErrLineTooLong = errors.New("provider stream line exceeds size limit")

// LineSplitter reassembles newline-terminated lines from arbitrarily sized chunks.
// Bytes after the last newline are carried into the next Feed.
type LineSplitter struct {
	buf []byte

	// MaxLineBytes caps the carried-over bytes; zero means DefaultMaxLineBytes.
	MaxLineBytes int
}

// Feed appends chunk and calls emit for every complete line, without the
// terminator. The slice passed to emit is only valid for the duration of the call.
// It returns ErrLineTooLong, and drops the partial line, once the unterminated
// remainder exceeds the cap.
func (s *LineSplitter) Feed(chunk []byte, emit func(line []byte)) error {
	s.buf = append(s.buf, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(s.buf[start:], '\n')
		if i < 0 {
			break
		}
		emit(bytes.TrimSuffix(s.buf[start:start+i], []byte("\r")))
		start += i + 1
	}

	if start > 0 {
		n := copy(s.buf, s.buf[start:])
		s.buf = s.buf[:n]
	}

	limit := s.MaxLineBytes
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	if len(s.buf) > limit {
		s.buf = s.buf[:0]
		return ErrLineTooLong
	}
	return nil
}

// Flush emits a trailing unterminated line, if any. Call it only on clean EOF.
func (s *LineSplitter) Flush(emit func(line []byte)) {
	if len(s.buf) == 0 {
		return
	}
	emit(bytes.TrimSuffix(s.buf, []byte("\r")))
	s.buf = s.buf[:0]
}

// Pending returns the number of buffered bytes that do not yet form a line.
func (s *LineSplitter) Pending() int {
	return len(s.buf)
}
