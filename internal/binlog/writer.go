package binlog

import (
	"encoding/binary"
	"io"
	"time"
)

// Sink is the append-only destination of records.
type Sink interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Writer serializes records onto a Sink. Each record is assembled in full
// and handed to the sink with a single Write.
type Writer struct {
	sink Sink
	rec  []byte
}

func NewWriter(sink Sink) *Writer {
	return &Writer{sink: sink, rec: make([]byte, 0, 256)}
}

func (w *Writer) header(tag Tag, at time.Duration) {
	millis, micros := Stamp(at)
	w.rec = append(w.rec[:0], byte(tag))
	w.rec = binary.LittleEndian.AppendUint32(w.rec, millis)
	w.rec = binary.LittleEndian.AppendUint16(w.rec, micros)
}

// commit hands the record to the sink in one Write. On success it returns
// the record size. On failure it returns how many bytes the sink took: a
// sink that fails part way (a bufio.Writer whose file write failed) may
// hold a record prefix, so the tail of a log written under sink errors is
// best effort and readers report it as io.ErrUnexpectedEOF.
func (w *Writer) commit() (int, error) {
	n, err := w.sink.Write(w.rec)
	if err == nil && n != len(w.rec) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, err
	}
	return len(w.rec), nil
}

// WriteTimestamp appends a SYSTEM_TIMESTAMP record and returns its size.
func (w *Writer) WriteTimestamp(at time.Duration) (int, error) {
	w.header(TagSystemTimestamp, at)
	return w.commit()
}

// WriteNMEA appends an NMEA_SENTENCE record. Sentences over MaxSentenceLen
// are refused with ErrSentenceTooLong and nothing is written.
func (w *Writer) WriteNMEA(at time.Duration, sentence []byte) (int, error) {
	if len(sentence) > MaxSentenceLen {
		return 0, ErrSentenceTooLong
	}
	w.header(TagNMEASentence, at)
	w.rec = append(w.rec, byte(len(sentence)))
	w.rec = append(w.rec, sentence...)
	return w.commit()
}

// WriteRadioFrame appends a RADIO_FRAME record for the radio behind tag.
func (w *Writer) WriteRadioFrame(tag Tag, at time.Duration, frame []byte) (int, error) {
	if !tag.IsRadio() {
		return 0, ErrNotRadioTag
	}
	w.header(tag, at)
	w.rec = binary.LittleEndian.AppendUint32(w.rec, uint32(len(frame)))
	w.rec = append(w.rec, frame...)
	return w.commit()
}

func (w *Writer) Flush() error {
	return w.sink.Flush()
}
