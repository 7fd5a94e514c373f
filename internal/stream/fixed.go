package stream

import "time"

// Bytes is a Source over an in-memory slice. Once drained it reports
// ErrEmpty forever, which looks like a stalled link to a reader.
type Bytes struct {
	b []byte
}

func NewBytes(b []byte) *Bytes {
	return &Bytes{b: append([]byte(nil), b...)}
}

// Push appends more bytes, as if they had just arrived on the link.
func (s *Bytes) Push(b ...byte) {
	s.b = append(s.b, b...)
}

func (s *Bytes) Buffered() int { return len(s.b) }

func (s *Bytes) ReadByte() (byte, error) {
	if len(s.b) == 0 {
		return 0, ErrEmpty
	}
	c := s.b[0]
	s.b = s.b[1:]
	return c, nil
}

// ManualClock is a Clock under explicit control. When Step is non-zero every
// call to Now advances the clock by Step after reading it, so bounded
// polling loops terminate without real sleeps.
type ManualClock struct {
	T    time.Duration
	Step time.Duration
}

func (c *ManualClock) Now() time.Duration {
	t := c.T
	c.T += c.Step
	return t
}

func (c *ManualClock) Advance(d time.Duration) {
	c.T += d
}
