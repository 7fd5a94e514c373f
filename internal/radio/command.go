package radio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lunixbochs/struc"

	"blecap/internal/stream"
)

const (
	// AdvertisingAccessAddress is the access address of BLE advertising PDUs.
	AdvertisingAccessAddress = 0x8E89BED6
	// AdvertisingCRCInit is the CRC preset of BLE advertising PDUs.
	AdvertisingCRCInit = 0x555555

	sniffChannelBodyLen = 20
)

var ErrBadReply = errors.New("radio: unexpected reply")

var littleEndian = &struc.Options{Order: binary.LittleEndian}

// Header precedes every command and reply on the link.
type Header struct {
	Tag    uint8
	Length uint16
}

// SniffChannel is the body of TagCmdSniffChannel.
type SniffChannel struct {
	Timestamp       uint32
	Channel         uint8
	AccessAddress   uint32
	CRCInit         uint32
	MAC             [6]byte
	RSSIMinNegative uint8
}

func writeCommand(w io.Writer, tag Tag, body any, bodyLen int) error {
	var buf bytes.Buffer
	hdr := Header{Tag: uint8(tag), Length: uint16(bodyLen)}
	if err := struc.PackWithOptions(&buf, &hdr, littleEndian); err != nil {
		return fmt.Errorf("radio: pack %s header: %w", tag, err)
	}
	if body != nil {
		if err := struc.PackWithOptions(&buf, body, littleEndian); err != nil {
			return fmt.Errorf("radio: pack %s body: %w", tag, err)
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("radio: write %s: %w", tag, err)
	}
	return nil
}

// Reset asks the radio to reboot its sniffer state.
func Reset(w io.Writer) error {
	return writeCommand(w, TagCmdReset, nil, 0)
}

// StartSniffer tunes the radio to an advertising channel with no address or
// RSSI filter.
func StartSniffer(w io.Writer, channel uint8) error {
	body := SniffChannel{
		Channel:         channel,
		AccessAddress:   AdvertisingAccessAddress,
		CRCInit:         AdvertisingCRCInit,
		RSSIMinNegative: 0xFF,
	}
	return writeCommand(w, TagCmdSniffChannel, &body, sniffChannelBodyLen)
}

// RequestVersion sends TagCmdGetVersion; the reply is read with ReadVersion.
func RequestVersion(w io.Writer) error {
	return writeCommand(w, TagCmdGetVersion, nil, 0)
}

// ReadVersion reads the get-version reply from src: a Header followed by
// Length bytes of version text. Every byte must arrive within timeout.
func ReadVersion(src stream.Source, clk stream.Clock, timeout time.Duration) (string, error) {
	raw := make([]byte, 3)
	for i := range raw {
		c, err := stream.ReadByteTimeout(src, clk, timeout)
		if err != nil {
			return "", fmt.Errorf("radio: version header: %w", err)
		}
		raw[i] = c
	}
	var hdr Header
	if err := struc.UnpackWithOptions(bytes.NewReader(raw), &hdr, littleEndian); err != nil {
		return "", fmt.Errorf("radio: version header: %w", err)
	}
	if Tag(hdr.Tag) != TagCmdGetVersion {
		return "", fmt.Errorf("%w: tag %s", ErrBadReply, Tag(hdr.Tag))
	}
	text := make([]byte, hdr.Length)
	for i := range text {
		c, err := stream.ReadByteTimeout(src, clk, timeout)
		if err != nil {
			return "", fmt.Errorf("radio: version text: %w", err)
		}
		text[i] = c
	}
	return string(text), nil
}
