package gps

import "blecap/internal/stream"

// MaxLine bounds the assembler's line buffer. Longer lines are cut at
// MaxLine bytes and the rest is discarded up to the line end.
const MaxLine = 4096

// Sentences assembles newline-terminated sentences from a byte stream.
type Sentences struct {
	src stream.Source

	line      []byte
	ready     bool
	truncated bool
}

func NewSentences(src stream.Source) *Sentences {
	return &Sentences{src: src, line: make([]byte, 0, 128)}
}

// HasNewSentence drains available bytes until a complete sentence is
// pending. It returns false when the stream runs dry first. Empty lines are
// skipped.
func (s *Sentences) HasNewSentence() bool {
	if s.ready {
		return true
	}
	for stream.Available(s.src) {
		b, err := s.src.ReadByte()
		if err != nil {
			return false
		}
		switch b {
		case '\n':
			if len(s.line) == 0 && !s.truncated {
				continue
			}
			s.ready = true
			return true
		case '\r':
			continue
		}
		if len(s.line) >= MaxLine {
			s.truncated = true
			continue
		}
		s.line = append(s.line, b)
	}
	return false
}

// TakeSentence returns the pending sentence without its line terminator.
// The slice is valid until the next HasNewSentence call. It returns nil when
// no sentence is pending.
func (s *Sentences) TakeSentence() []byte {
	if !s.ready {
		return nil
	}
	out := s.line
	s.line = s.line[:0]
	s.ready = false
	s.truncated = false
	return out
}

// Truncated reports whether the pending sentence was cut at MaxLine.
func (s *Sentences) Truncated() bool { return s.ready && s.truncated }
