package radio

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"blecap/internal/stream"
)

func TestTagString(t *testing.T) {
	cases := []struct {
		tag  Tag
		want string
	}{
		{TagData, "TAG_DATA"},
		{TagConnectRequest, "TAG_MSG_CONNECT_REQUEST"},
		{TagLog, "TAG_MSG_LOG"},
		{TagCmdSniffChannel, "TAG_CMD_SNIFF_CHANNEL"},
		{Tag(0x99), "<Unknown Tag 0x99>"},
	}
	for _, tc := range cases {
		if got := tc.tag.String(); got != tc.want {
			t.Fatalf("Tag(0x%02X).String()=%q want %q", uint8(tc.tag), got, tc.want)
		}
	}
	if Tag(0x99).Known() {
		t.Fatalf("0x99 should not be known")
	}
}

func TestFrameTag(t *testing.T) {
	if _, ok := FrameTag(nil); ok {
		t.Fatalf("expected ok=false for empty frame")
	}
	tag, ok := FrameTag([]byte{0x42, 0x00})
	if !ok || tag != TagConnectionEvent {
		t.Fatalf("tag=%s ok=%v", tag, ok)
	}
}

func TestReset_WritesHeaderOnly(t *testing.T) {
	var out bytes.Buffer
	if err := Reset(&out); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if !bytes.Equal(out.Bytes(), []byte{0x80, 0x00, 0x00}) {
		t.Fatalf("wrote % x", out.Bytes())
	}
}

func TestStartSniffer_Layout(t *testing.T) {
	var out bytes.Buffer
	if err := StartSniffer(&out, 38); err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	want := []byte{
		0x82, 0x14, 0x00, // header: tag, length=20
		0x00, 0x00, 0x00, 0x00, // timestamp
		38,                     // channel
		0xD6, 0xBE, 0x89, 0x8E, // access address
		0x55, 0x55, 0x55, 0x00, // crc init
		0, 0, 0, 0, 0, 0, // mac
		0xFF, // rssi filter off
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("wrote\n% x\nwant\n% x", out.Bytes(), want)
	}
}

func TestReadVersion(t *testing.T) {
	src := stream.NewBytes(append([]byte{0x81, 0x05, 0x00}, "1.2.3"...))
	clk := &stream.ManualClock{Step: time.Millisecond}
	v, err := ReadVersion(src, clk, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadVersion() error: %v", err)
	}
	if v != "1.2.3" {
		t.Fatalf("version=%q", v)
	}
}

func TestReadVersion_Errors(t *testing.T) {
	clk := &stream.ManualClock{Step: 10 * time.Millisecond}

	_, err := ReadVersion(stream.NewBytes([]byte{0x40, 0x00, 0x00}), clk, 100*time.Millisecond)
	if !errors.Is(err, ErrBadReply) {
		t.Fatalf("err=%v want ErrBadReply", err)
	}

	_, err = ReadVersion(stream.NewBytes([]byte{0x81, 0x05, 0x00, '1'}), clk, 100*time.Millisecond)
	if !errors.Is(err, stream.ErrTimeout) {
		t.Fatalf("err=%v want ErrTimeout", err)
	}
}
