// Package radio holds the sniffer radios' message vocabulary and the
// one-shot setup commands sent to them before capture starts.
package radio

import "fmt"

// Tag identifies a sniffer message. A decoded radio frame begins with one.
type Tag uint8

const (
	TagData            Tag = 0x00
	TagResetComplete   Tag = 0x40
	TagConnectRequest  Tag = 0x41
	TagConnectionEvent Tag = 0x42
	TagConnParamUpdate Tag = 0x43
	TagChanMapUpdate   Tag = 0x44
	TagTerminate       Tag = 0x45
	TagLog             Tag = 0x50
	TagCmdReset        Tag = 0x80
	TagCmdGetVersion   Tag = 0x81
	TagCmdSniffChannel Tag = 0x82
)

var tagNames = map[Tag]string{
	TagData:            "TAG_DATA",
	TagResetComplete:   "TAG_MSG_RESET_COMPLETE",
	TagConnectRequest:  "TAG_MSG_CONNECT_REQUEST",
	TagConnectionEvent: "TAG_MSG_CONNECTION_EVENT",
	TagConnParamUpdate: "TAG_MSG_CONN_PARAM_UPDATE",
	TagChanMapUpdate:   "TAG_MSG_CHAN_MAP_UPDATE",
	TagTerminate:       "TAG_MSG_TERMINATE",
	TagLog:             "TAG_MSG_LOG",
	TagCmdReset:        "TAG_CMD_RESET",
	TagCmdGetVersion:   "TAG_CMD_GET_VERSION",
	TagCmdSniffChannel: "TAG_CMD_SNIFF_CHANNEL",
}

// Known reports whether t is part of the sniffer vocabulary.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("<Unknown Tag 0x%02X>", uint8(t))
}

// FrameTag returns the message tag a decoded frame starts with.
func FrameTag(frame []byte) (Tag, bool) {
	if len(frame) == 0 {
		return 0, false
	}
	return Tag(frame[0]), true
}
