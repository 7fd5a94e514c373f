package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"blecap/internal/binlog"
)

type fakeSleeper struct {
	sleeps []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) { f.sleeps = append(f.sleeps, d) }

func TestFormatRecord(t *testing.T) {
	cases := []struct {
		rec  binlog.Record
		want string
	}{
		{
			rec:  binlog.Record{Tag: binlog.TagSystemTimestamp, Millis: 250, Micros: 7},
			want: "       250.007 SYSTEM_TIMESTAMP",
		},
		{
			rec:  binlog.Record{Tag: binlog.TagNMEASentence, Millis: 1, Payload: []byte("$GPRMC,x")},
			want: "         1.000 NMEA_SENTENCE $GPRMC,x",
		},
		{
			rec:  binlog.Record{Tag: binlog.TagRadio38, Millis: 2, Micros: 999, Payload: []byte{0x42, 0x01}},
			want: "         2.999 RADIO_FRAME_38 len=2 TAG_MSG_CONNECTION_EVENT 42 01",
		},
		{
			rec:  binlog.Record{Tag: binlog.TagRadio37, Payload: []byte{}},
			want: "         0.000 RADIO_FRAME_37 len=0 - ",
		},
	}
	for _, tc := range cases {
		if got := formatRecord(tc.rec); got != tc.want {
			t.Fatalf("formatRecord(%v)=%q want %q", tc.rec.Tag, got, tc.want)
		}
	}
}

func TestDumpLog_Limit(t *testing.T) {
	path := writeCaptureLog(t, t.TempDir())

	var buf bytes.Buffer
	if err := dumpLog(&buf, path, 2); err != nil {
		t.Fatalf("dumpLog() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "RADIO_FRAME_37 len=3 TAG_DATA 00 01 02") {
		t.Fatalf("lines=%q", lines)
	}

	buf.Reset()
	if err := dumpLog(&buf, path, 0); err != nil {
		t.Fatalf("dumpLog() error: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 6 {
		t.Fatalf("dumped %d lines want 6", n)
	}
}

func TestReplayLog_PacesRecords(t *testing.T) {
	path := writeCaptureLog(t, t.TempDir())
	fs := &fakeSleeper{}

	var buf bytes.Buffer
	if err := replayLog(context.Background(), &buf, path, 2, fs); err != nil {
		t.Fatalf("replayLog() error: %v", err)
	}
	want := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond, 500 * time.Microsecond, 124500 * time.Microsecond}
	if len(fs.sleeps) != len(want) {
		t.Fatalf("sleeps=%v want %v", fs.sleeps, want)
	}
	for i := range want {
		if fs.sleeps[i] != want[i] {
			t.Fatalf("sleeps=%v want %v", fs.sleeps, want)
		}
	}
	if strings.Count(buf.String(), "\n") != 6 {
		t.Fatalf("output:\n%s", buf.String())
	}
}

func TestReplayLog_StopsOnCancel(t *testing.T) {
	path := writeCaptureLog(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := replayLog(ctx, &buf, path, 1, &fakeSleeper{}); err == nil {
		t.Fatalf("expected context error")
	}
	if buf.Len() != 0 {
		t.Fatalf("output after cancel: %q", buf.String())
	}
}
