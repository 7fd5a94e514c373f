package framing

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
	"time"

	"blecap/internal/stream"
)

func decodeWire(t *testing.T, wire []byte, buf *Buffer) (int, error) {
	t.Helper()
	if len(wire) == 0 || wire[0] != Start {
		t.Fatalf("wire does not begin with START: % x", wire)
	}
	src := stream.NewBytes(wire[1:])
	clk := &stream.ManualClock{Step: time.Millisecond}
	return Decode(src, clk, DefaultByteTimeout, buf)
}

func TestDecode_ConcreteFixture(t *testing.T) {
	// 0xAA^0x01^0x02 = 0xA9, so A9 is the checksum that zeroes the frame.
	wire := []byte{0x7F, 0x01, 0x02, 0xA9, 0x7D}
	buf := NewBuffer(MaxFrameSize)

	n, err := decodeWire(t, wire, buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if n != 2 || !bytes.Equal(buf.Bytes(), []byte{0x01, 0x02}) {
		t.Fatalf("payload=% x (n=%d) want 01 02", buf.Bytes(), n)
	}
}

func TestDecode_UnescapedChecksumFixtureIsRejected(t *testing.T) {
	// 7E 9F unstuffs to BF, and AA^01^02^BF = 0x16, not zero.
	wire := []byte{0x7F, 0x01, 0x02, 0x7E, 0x9F, 0x7D}
	_, err := decodeWire(t, wire, NewBuffer(64))
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("err=%v want ErrChecksum", err)
	}
}

func TestDecode_EscapedFixture(t *testing.T) {
	wire := []byte{0x7F, 0x01, 0x7E, 0x5E, 0xD5, 0x7D}
	buf := NewBuffer(64)
	n, err := decodeWire(t, wire, buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if n != 2 || !bytes.Equal(buf.Bytes(), []byte{0x01, 0x7E}) {
		t.Fatalf("payload=% x want 01 7e", buf.Bytes())
	}
	if !bytes.Equal(Encode([]byte{0x01, 0x7E}), wire) {
		t.Fatalf("Encode()=% x want % x", Encode([]byte{0x01, 0x7E}), wire)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	markers := []byte{Start, Escape, End, XorMask, Seed}
	buf := NewBuffer(MaxFrameSize)

	for size := 0; size < 300; size++ {
		payload := make([]byte, size)
		for i := range payload {
			if rng.Intn(3) == 0 {
				payload[i] = markers[rng.Intn(len(markers))]
			} else {
				payload[i] = byte(rng.Intn(256))
			}
		}
		wire := Encode(payload)
		for _, c := range wire[1 : len(wire)-1] {
			if c == End {
				t.Fatalf("size=%d: unstuffed END inside frame: % x", size, wire)
			}
		}
		n, err := decodeWire(t, wire, buf)
		if err != nil {
			t.Fatalf("size=%d: Decode() error: %v", size, err)
		}
		if n != size || !bytes.Equal(buf.Bytes(), payload) {
			t.Fatalf("size=%d: payload mismatch\n got: % x\nwant: % x", size, buf.Bytes(), payload)
		}
	}
}

// frameWithChecksum frames payload with an explicit checksum byte.
func frameWithChecksum(payload []byte, sum byte) []byte {
	out := []byte{Start}
	out = stuff(out, payload)
	out = stuff(out, []byte{sum})
	return append(out, End)
}

func TestDecode_SingleBitFlipFailsChecksum(t *testing.T) {
	payload := []byte{0x00, 0x7E, 0x7D, 0x10, 0xFF, 0x42}
	sum := Checksum(payload)
	buf := NewBuffer(64)

	for i := range payload {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), payload...)
			flipped[i] ^= 1 << bit
			if Checksum(flipped) == sum {
				// Cannot happen for a single flip under XOR; guard anyway.
				continue
			}
			_, err := decodeWire(t, frameWithChecksum(flipped, sum), buf)
			if !errors.Is(err, ErrChecksum) {
				t.Fatalf("byte %d bit %d: err=%v want ErrChecksum", i, bit, err)
			}
		}
	}
}

func TestDecode_EmptyFrameFailsChecksum(t *testing.T) {
	_, err := decodeWire(t, []byte{Start, End}, NewBuffer(8))
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("err=%v want ErrChecksum", err)
	}
}

func TestDecode_ZeroLengthPayload(t *testing.T) {
	buf := NewBuffer(8)
	n, err := decodeWire(t, Encode(nil), buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}

func TestDecode_Timeouts(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{name: "MidFrame", body: []byte{0x01, 0x02}},
		{name: "AfterEscape", body: []byte{0x01, Escape}},
		{name: "NoBytes", body: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := stream.NewBytes(tc.body)
			clk := &stream.ManualClock{Step: 10 * time.Millisecond}
			buf := NewBuffer(16)
			n, err := Decode(src, clk, DefaultByteTimeout, buf)
			if !errors.Is(err, ErrTimeout) {
				t.Fatalf("err=%v want ErrTimeout", err)
			}
			if n != 0 || buf.Len() != 0 || len(buf.Bytes()) != 0 {
				t.Fatalf("abandoned frame left %d bytes in buffer (n=%d)", buf.Len(), n)
			}
		})
	}
}

func TestDecode_FrameTooLarge(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11}, 16)
	buf := NewBuffer(8)
	_, err := decodeWire(t, Encode(payload), buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err=%v want ErrFrameTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer keeps %d bytes after failure", buf.Len())
	}

	// Capacity counts the checksum byte: cap-1 payload bytes fit.
	n, err := decodeWire(t, Encode(payload[:7]), buf)
	if err != nil || n != 7 {
		t.Fatalf("n=%d err=%v want 7 <nil>", n, err)
	}
}

func TestDecode_BufferReusedAcrossFrames(t *testing.T) {
	buf := NewBuffer(64)
	if _, err := decodeWire(t, Encode([]byte("long payload")), buf); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if _, err := decodeWire(t, Encode([]byte("ab")), buf); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if string(buf.Bytes()) != "ab" {
		t.Fatalf("payload=%q want %q", buf.Bytes(), "ab")
	}
}
