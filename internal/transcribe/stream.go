package transcribe

import (
	"errors"
	"sync"
)

// ErrStreamConsumed is returned by Collect when a stream has already been
// drained.
var ErrStreamConsumed = errors.New("segment stream already consumed")

// Segment is one recognized span of speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Stream is a forward-only, one-shot sequence of segments produced lazily by
// an engine.
type Stream struct {
	next  func() (Segment, bool, error)
	close func() error

	mu      sync.Mutex
	drained bool
	err     error
	closed  bool
}

// NewStream wraps a producer. next returns ok=false at the end of the
// sequence or on error; closeFn releases the producer and may be nil.
func NewStream(next func() (Segment, bool, error), closeFn func() error) *Stream {
	return &Stream{next: next, close: closeFn}
}

// SliceStream returns a stream over a fixed list of segments.
func SliceStream(segments []Segment) *Stream {
	i := 0
	return NewStream(func() (Segment, bool, error) {
		if i >= len(segments) {
			return Segment{}, false, nil
		}
		seg := segments[i]
		i++
		return seg, true, nil
	}, nil)
}

// Next returns the next segment. Once it reports false the stream is
// exhausted for good.
func (s *Stream) Next() (Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return Segment{}, false
	}
	seg, ok, err := s.next()
	if err != nil {
		s.err = err
		s.drained = true
		return Segment{}, false
	}
	if !ok {
		s.drained = true
		return Segment{}, false
	}
	return seg, true
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Drained reports whether the stream has reached its end.
func (s *Stream) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

// Close releases the producer. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.drained = true
	if s.close != nil {
		return s.close()
	}
	return nil
}

// Collect drains stream into an ordered list. A stream can be collected only
// once.
func Collect(stream *Stream) ([]Segment, error) {
	if stream == nil {
		return nil, errors.New("nil segment stream")
	}
	if stream.Drained() {
		return nil, ErrStreamConsumed
	}
	var out []Segment
	for {
		seg, ok := stream.Next()
		if !ok {
			break
		}
		out = append(out, seg)
	}
	if err := stream.Err(); err != nil {
		return out, err
	}
	return out, nil
}
