package binlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader replays a log from the start.
type Reader struct {
	r   *bufio.Reader
	off int64
	hdr [4 + 2 + 4]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Offset is the position of the next record in the log.
func (rr *Reader) Offset() int64 { return rr.off }

// Next returns the next record. It returns io.EOF at a clean end of log and
// io.ErrUnexpectedEOF when the last record was cut short, as happens when
// power is lost between flushes.
func (rr *Reader) Next() (Record, error) {
	start := rr.off
	b, err := rr.r.ReadByte()
	if err != nil {
		return Record{}, err
	}
	tag := Tag(b)
	if !tag.Valid() {
		return Record{}, fmt.Errorf("%w 0x%02x at offset %d", ErrUnknownTag, b, start)
	}

	var lenBytes int
	switch {
	case tag == TagNMEASentence:
		lenBytes = 1
	case tag.IsRadio():
		lenBytes = 4
	}

	hdr := rr.hdr[:stampLen+lenBytes]
	if _, err := io.ReadFull(rr.r, hdr); err != nil {
		return Record{}, truncated(err)
	}
	rec := Record{
		Tag:    tag,
		Millis: binary.LittleEndian.Uint32(hdr[0:4]),
		Micros: binary.LittleEndian.Uint16(hdr[4:6]),
	}

	var n int
	switch lenBytes {
	case 1:
		n = int(hdr[6])
	case 4:
		v := binary.LittleEndian.Uint32(hdr[6:10])
		if v > MaxFrameLen {
			return Record{}, fmt.Errorf("%w: %d bytes at offset %d", ErrFrameTooLong, v, start)
		}
		n = int(v)
	}
	if lenBytes > 0 {
		rec.Payload = make([]byte, n)
		if _, err := io.ReadFull(rr.r, rec.Payload); err != nil {
			return Record{}, truncated(err)
		}
	}

	rr.off += int64(rec.Size())
	return rec, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadAll reads records until the end of the log. On error it returns the
// records read so far together with the error.
func (rr *Reader) ReadAll() ([]Record, error) {
	recs := make([]Record, 0, 1024)
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
