// Package framing implements the radio link's byte-stuffed frame format:
//
//	START stuffed(payload ++ checksum) END
//
// Payload bytes equal to Escape or End travel as Escape, byte^XorMask. The
// checksum byte is Seed XOR every payload byte, so XOR-ing Seed with all
// unstuffed bytes including the checksum yields zero for a valid frame.
package framing

import (
	"errors"
	"time"

	"blecap/internal/stream"
)

const (
	Start   = 0x7F
	Escape  = 0x7E
	End     = 0x7D
	XorMask = 0x20
	Seed    = 0xAA

	DefaultByteTimeout = 100 * time.Millisecond
	MaxFrameSize       = 64 * 1024
)

var (
	ErrTimeout       = errors.New("framing: byte timeout inside frame")
	ErrChecksum      = errors.New("framing: checksum mismatch")
	ErrFrameTooLarge = errors.New("framing: frame exceeds buffer capacity")
)

// Buffer is the reusable scratch area a frame is decoded into. Its capacity
// is fixed at construction and never grows.
type Buffer struct {
	b []byte
	n int
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = MaxFrameSize
	}
	return &Buffer{b: make([]byte, size)}
}

// Bytes returns the decoded payload. It is only valid until the next Decode.
func (buf *Buffer) Bytes() []byte { return buf.b[:buf.n] }

func (buf *Buffer) Len() int { return buf.n }

func (buf *Buffer) Cap() int { return len(buf.b) }

func (buf *Buffer) Reset() { buf.n = 0 }

func (buf *Buffer) put(c byte) bool {
	if buf.n >= len(buf.b) {
		return false
	}
	buf.b[buf.n] = c
	buf.n++
	return true
}

// Decode reads one frame body from src into buf. The caller must already
// have consumed the Start marker. Each byte read, including the one after an
// Escape, must arrive within timeout or the frame is abandoned.
//
// On success it returns the payload length, excluding the checksum byte.
// On failure buf holds no valid payload.
func Decode(src stream.Source, clk stream.Clock, timeout time.Duration, buf *Buffer) (int, error) {
	buf.Reset()
	sum := byte(Seed)

	for {
		c, err := stream.ReadByteTimeout(src, clk, timeout)
		if err != nil {
			buf.Reset()
			return 0, ErrTimeout
		}
		switch c {
		case Escape:
			c, err = stream.ReadByteTimeout(src, clk, timeout)
			if err != nil {
				buf.Reset()
				return 0, ErrTimeout
			}
			c ^= XorMask
		case End:
			if buf.n == 0 {
				// No checksum byte at all.
				return 0, ErrChecksum
			}
			buf.n--
			if sum != 0 {
				buf.Reset()
				return 0, ErrChecksum
			}
			return buf.n, nil
		}
		if !buf.put(c) {
			buf.Reset()
			return 0, ErrFrameTooLarge
		}
		sum ^= c
	}
}

// Checksum returns the trailing byte Encode appends to payload.
func Checksum(payload []byte) byte {
	sum := byte(Seed)
	for _, c := range payload {
		sum ^= c
	}
	return sum
}

// Encode frames payload for the wire.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, 3+len(payload)*2)
	out = append(out, Start)
	out = stuff(out, payload)
	out = stuff(out, []byte{Checksum(payload)})
	out = append(out, End)
	return out
}

func stuff(out, p []byte) []byte {
	for _, c := range p {
		if c == Escape || c == End {
			out = append(out, Escape, c^XorMask)
			continue
		}
		out = append(out, c)
	}
	return out
}
