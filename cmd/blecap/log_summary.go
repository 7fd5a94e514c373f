package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"blecap/internal/binlog"
	"blecap/internal/radio"
)

type logSummary struct {
	Records    int
	Bytes      int
	Timestamps int
	Sentences  int
	Frames     map[binlog.Tag]int
	EmptyFrame int
	MsgTags    map[radio.Tag]int
	Duration   time.Duration
	// MaxGap is the longest stretch between consecutive records.
	MaxGap    time.Duration
	Truncated bool
}

func summarizeCaptureLog(records []binlog.Record) logSummary {
	s := logSummary{Frames: map[binlog.Tag]int{}, MsgTags: map[radio.Tag]int{}}
	for i, r := range records {
		s.Records++
		s.Bytes += r.Size()
		if i > 0 {
			gap := binlog.Elapsed(records[i-1], r)
			s.Duration += gap
			if gap > s.MaxGap {
				s.MaxGap = gap
			}
		}
		switch {
		case r.Tag == binlog.TagSystemTimestamp:
			s.Timestamps++
		case r.Tag == binlog.TagNMEASentence:
			s.Sentences++
		case r.Tag.IsRadio():
			s.Frames[r.Tag]++
			tag, ok := radio.FrameTag(r.Payload)
			if !ok {
				s.EmptyFrame++
				continue
			}
			s.MsgTags[tag]++
		}
	}
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path, err := resolveLogPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := binlog.NewReader(f).ReadAll()
	s := summarizeCaptureLog(recs)
	if err != nil {
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}
		s.Truncated = true
	}

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "records: %d\n", s.Records)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "duration: %s\n", s.Duration)
	fmt.Fprintf(w, "max_gap: %s\n", s.MaxGap)
	fmt.Fprintf(w, "timestamps: %d\n", s.Timestamps)
	fmt.Fprintf(w, "nmea_sentences: %d\n", s.Sentences)
	fmt.Fprintf(w, "frames:\n")
	for _, tag := range binlog.Tags() {
		if tag.IsRadio() {
			fmt.Fprintf(w, "  channel %d: %d\n", tag.Channel(), s.Frames[tag])
		}
	}
	if s.EmptyFrame > 0 {
		fmt.Fprintf(w, "empty_frames: %d\n", s.EmptyFrame)
	}

	keys := make([]int, 0, len(s.MsgTags))
	for k := range s.MsgTags {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "msg_tag_counts:\n")
	for _, k := range keys {
		tag := radio.Tag(k)
		fmt.Fprintf(w, "  0x%02X %s: %d\n", k, tag, s.MsgTags[tag])
	}
	if s.Truncated {
		fmt.Fprintf(w, "truncated: true\n")
	}
	return nil
}

// resolveLogPath accepts a capture file or a capture directory, in which
// case the newest numbered file is used.
func resolveLogPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !st.IsDir() {
		return path, nil
	}
	return binlog.LatestPath(path)
}
