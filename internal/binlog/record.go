// Package binlog is the capture log: a sequential, unindexed stream of
// tagged records. Every multi-byte integer is little-endian.
//
//	SYSTEM_TIMESTAMP  tag(1) millis(4) micros(2)
//	NMEA_SENTENCE     tag(1) millis(4) micros(2) len(1) ascii(len)
//	RADIO_FRAME       tag(1) millis(4) micros(2) len(4) frame(len)
//
// micros is the sub-millisecond fraction, 0..999.
package binlog

import (
	"errors"
	"fmt"
	"time"
)

// Tag is the first byte of every record.
type Tag uint8

const (
	TagSystemTimestamp Tag = 0x00
	TagNMEASentence    Tag = 0x01
	TagRadio37         Tag = 0x02
	TagRadio38         Tag = 0x03
	TagRadio39         Tag = 0x04
)

const (
	stampLen = 4 + 2

	TimestampRecordLen  = 1 + stampLen
	NMEAHeaderLen       = 1 + stampLen + 1
	RadioFrameHeaderLen = 1 + stampLen + 4

	// MaxSentenceLen is the longest sentence a one-byte length can carry.
	MaxSentenceLen = 0xFF
	// MaxFrameLen bounds radio frame records on read.
	MaxFrameLen = 64 * 1024
)

var (
	ErrSentenceTooLong = errors.New("binlog: nmea sentence longer than 255 bytes")
	ErrNotRadioTag     = errors.New("binlog: not a radio frame tag")
	ErrUnknownTag      = errors.New("binlog: unknown record tag")
	ErrFrameTooLong    = errors.New("binlog: radio frame record too long")
)

var tagInfo = [...]struct {
	name    string
	channel uint8
}{
	TagSystemTimestamp: {name: "SYSTEM_TIMESTAMP"},
	TagNMEASentence:    {name: "NMEA_SENTENCE"},
	TagRadio37:         {name: "RADIO_FRAME_37", channel: 37},
	TagRadio38:         {name: "RADIO_FRAME_38", channel: 38},
	TagRadio39:         {name: "RADIO_FRAME_39", channel: 39},
}

// Tags lists every record tag in numeric order.
func Tags() []Tag {
	return []Tag{TagSystemTimestamp, TagNMEASentence, TagRadio37, TagRadio38, TagRadio39}
}

func (t Tag) Valid() bool { return int(t) < len(tagInfo) }

func (t Tag) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TAG(0x%02X)", uint8(t))
	}
	return tagInfo[t].name
}

// IsRadio reports whether t carries a radio frame.
func (t Tag) IsRadio() bool {
	return t.Valid() && tagInfo[t].channel != 0
}

// Channel returns the advertising channel of a radio tag, or 0.
func (t Tag) Channel() uint8 {
	if !t.Valid() {
		return 0
	}
	return tagInfo[t].channel
}

// RadioTag maps an advertising channel to its record tag.
func RadioTag(channel uint8) (Tag, bool) {
	for _, t := range Tags() {
		if t.IsRadio() && t.Channel() == channel {
			return t, true
		}
	}
	return 0, false
}

// Stamp splits a monotonic reading into whole milliseconds (wrapping at
// 2^32) and the microsecond fraction of the current millisecond.
func Stamp(d time.Duration) (millis uint32, micros uint16) {
	if d < 0 {
		d = 0
	}
	millis = uint32(int64(d / time.Millisecond))
	micros = uint16(int64(d/time.Microsecond) % 1000)
	return millis, micros
}

// Record is one decoded log entry. Payload is the sentence or frame bytes
// and is nil for timestamps.
type Record struct {
	Tag     Tag
	Millis  uint32
	Micros  uint16
	Payload []byte
}

// At reassembles the record's stamp as a duration.
func (r Record) At() time.Duration {
	return time.Duration(r.Millis)*time.Millisecond + time.Duration(r.Micros)*time.Microsecond
}

// Size is the number of bytes the record occupies in the log.
func (r Record) Size() int {
	switch {
	case r.Tag == TagNMEASentence:
		return NMEAHeaderLen + len(r.Payload)
	case r.Tag.IsRadio():
		return RadioFrameHeaderLen + len(r.Payload)
	default:
		return TimestampRecordLen
	}
}
