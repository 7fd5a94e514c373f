package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

// Ring is a Source backed by a fixed-size ring buffer. A pump goroutine
// fills it from a serial port while the capture loop drains it, mirroring a
// UART with an attached receive buffer.
type Ring struct {
	name string
	rb   *ringbuffer.RingBuffer

	received atomic.Uint64
	overflow atomic.Uint64
}

func NewRing(name string, size int) *Ring {
	if size <= 0 {
		size = 64 * 1024
	}
	return &Ring{name: name, rb: ringbuffer.New(size)}
}

func (r *Ring) Name() string { return r.name }

func (r *Ring) Buffered() int { return r.rb.Length() }

func (r *Ring) ReadByte() (byte, error) {
	b, err := r.rb.ReadByte()
	if err != nil {
		if errors.Is(err, ringbuffer.ErrIsEmpty) {
			return 0, ErrEmpty
		}
		return 0, err
	}
	return b, nil
}

// Write appends p. Bytes that do not fit are dropped and counted as
// overflow; Write itself never fails so a full ring cannot stall the pump.
func (r *Ring) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.received.Add(uint64(len(p)))
	n, err := r.rb.Write(p)
	if err != nil && n < len(p) {
		r.overflow.Add(uint64(len(p) - n))
	}
	return len(p), nil
}

// Received is the number of bytes handed to Write since creation.
func (r *Ring) Received() uint64 { return r.received.Load() }

// Overflow is the number of bytes dropped because the ring was full.
func (r *Ring) Overflow() uint64 { return r.overflow.Load() }

// Pump copies rd into the ring until rd fails or ctx is done. Closing rd is
// the caller's way of unblocking a pending read.
func (r *Ring) Pump(ctx context.Context, rd io.Reader) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := rd.Read(buf)
		if n > 0 {
			_, _ = r.Write(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s read: %w", r.name, err)
		}
	}
}
