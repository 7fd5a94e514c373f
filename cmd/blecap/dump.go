package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"blecap/internal/binlog"
	"blecap/internal/radio"
)

func formatRecord(r binlog.Record) string {
	stamp := fmt.Sprintf("%10d.%03d", r.Millis, r.Micros)
	switch {
	case r.Tag == binlog.TagSystemTimestamp:
		return fmt.Sprintf("%s %s", stamp, r.Tag)
	case r.Tag == binlog.TagNMEASentence:
		return fmt.Sprintf("%s %s %s", stamp, r.Tag, strings.TrimSpace(string(r.Payload)))
	case r.Tag.IsRadio():
		msg := "-"
		if tag, ok := radio.FrameTag(r.Payload); ok {
			msg = tag.String()
		}
		return fmt.Sprintf("%s %s len=%d %s % X", stamp, r.Tag, len(r.Payload), msg, r.Payload)
	default:
		return fmt.Sprintf("%s %s", stamp, r.Tag)
	}
}

func openLog(path string) (*os.File, string, error) {
	path, err := resolveLogPath(path)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// dumpLog prints every record. limit <= 0 prints all of them.
func dumpLog(w io.Writer, path string, limit int) error {
	f, _, err := openLog(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := binlog.NewReader(f)
	for n := 0; limit <= 0 || n < limit; n++ {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d at offset %d: %w", n, rd.Offset(), err)
		}
		fmt.Fprintln(w, formatRecord(rec))
	}
	return nil
}

// replayLog prints records paced by their recorded timestamps.
func replayLog(ctx context.Context, w io.Writer, path string, speed float64, sleeper binlog.Sleeper) error {
	f, _, err := openLog(path)
	if err != nil {
		return err
	}
	recs, err := binlog.NewReader(f).ReadAll()
	_ = f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return binlog.Play(recs, speed, sleeper, func(r binlog.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, formatRecord(r))
		return err
	})
}
