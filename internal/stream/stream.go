// Package stream models the serial byte sources the capture loop polls.
//
// A Source never blocks. Waiting for a byte is always bounded by a deadline
// read from a Clock, so tests can drive time explicitly instead of sleeping.
package stream

import (
	"errors"
	"runtime"
	"time"
)

var (
	// ErrEmpty is returned by Source.ReadByte when nothing is buffered.
	ErrEmpty = errors.New("stream: no byte available")
	// ErrTimeout is returned by ReadByteBefore when the deadline passes.
	ErrTimeout = errors.New("stream: read timed out")
)

// Source is a non-blocking byte source, one per serial link.
type Source interface {
	// Buffered reports how many bytes can be read without waiting.
	Buffered() int
	// ReadByte returns the next buffered byte or ErrEmpty.
	ReadByte() (byte, error)
}

// Clock is a monotonic time source measured from an arbitrary origin.
type Clock interface {
	Now() time.Duration
}

// Available reports whether src has at least one byte buffered.
func Available(src Source) bool {
	return src.Buffered() > 0
}

// ReadByteBefore polls src until a byte arrives or clk reaches deadline.
func ReadByteBefore(src Source, clk Clock, deadline time.Duration) (byte, error) {
	for {
		b, err := src.ReadByte()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrEmpty) {
			return 0, err
		}
		if clk.Now() >= deadline {
			return 0, ErrTimeout
		}
		runtime.Gosched()
	}
}

// ReadByteTimeout is ReadByteBefore with a deadline relative to now.
func ReadByteTimeout(src Source, clk Clock, timeout time.Duration) (byte, error) {
	return ReadByteBefore(src, clk, clk.Now()+timeout)
}

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock whose origin is the moment of the call.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Now() time.Duration {
	return time.Since(c.start)
}
