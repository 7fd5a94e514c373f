package gps

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

// logged returns body as the capture loop hands it over: checksummed,
// without the CRLF.
func logged(body string) []byte {
	return bytes.TrimRight(Command(body), "\r\n")
}

func TestParseSentence(t *testing.T) {
	s, err := parseSentence(logged("GNRMC,064951.000,A,2307.1256,N,12016.4438,E,0.03,165.48,260406,,,A"))
	if err != nil {
		t.Fatalf("parseSentence() error: %v", err)
	}
	if s.talker != "GN" || s.kind != "RMC" || len(s.fields) != 13 {
		t.Fatalf("talker=%q kind=%q fields=%d", s.talker, s.kind, len(s.fields))
	}
	if string(s.field(2)) != "A" || s.field(40) != nil {
		t.Fatalf("field(2)=%q field(40)=%q", s.field(2), s.field(40))
	}

	ack, err := parseSentence(logged("PMTK001,314,3"))
	if err != nil || ack.talker != "P" || ack.kind != "MTK001" {
		t.Fatalf("ack=%+v err=%v", ack, err)
	}
}

func TestParseSentence_Errors(t *testing.T) {
	good := logged("GPGGA,064951.000,2307.1256,N,12016.4438,E,1,8,0.95,39.9,M,17.8,M,,")
	corrupt := append([]byte(nil), good...)
	corrupt[10] = '7'

	cases := []struct {
		name string
		line []byte
		want error
	}{
		{"Empty", nil, ErrNoStart},
		{"NoDollar", good[1:], ErrNoStart},
		{"NoStar", []byte("$GPGGA,1,2"), ErrNoChecksum},
		{"ShortChecksum", []byte("$GPGGA,1*4"), ErrNoChecksum},
		{"NotHex", []byte("$GPGGA,1*ZZ"), ErrNoChecksum},
		{"Corrupt", corrupt, ErrBadChecksum},
		{"ShortAddress", logged("GPX,1"), ErrBadAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseSentence(tc.line); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestCoordinate(t *testing.T) {
	cases := []struct {
		v, hemi string
		want    float64
		ok      bool
	}{
		{"4807.038", "N", 48.1173, true},
		{"01131.000", "W", -11.516667, true},
		{"3345.5000", "S", -33.758333, true},
		{"12", "N", 0, false},
		{"4870.000", "N", 0, false},
		{"4807.038", "X", 0, false},
		{"", "N", 0, false},
	}
	for _, tc := range cases {
		got, ok := coordinate([]byte(tc.v), []byte(tc.hemi))
		if ok != tc.ok || math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("coordinate(%q,%q)=%v,%t want %v,%t", tc.v, tc.hemi, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	got, ok := parseDateTime([]byte("260406"), []byte("064951.250"))
	want := time.Date(2006, 4, 26, 6, 49, 51, 250*int(time.Millisecond), time.UTC)
	if !ok || !got.Equal(want) {
		t.Fatalf("parseDateTime()=%v,%t want %v", got, ok, want)
	}
	if _, ok := parseDateTime([]byte("320406"), []byte("064951")); ok {
		t.Fatalf("day 32 accepted")
	}
	if _, ok := parseDateTime([]byte("260406"), []byte("0649")); ok {
		t.Fatalf("short time accepted")
	}
}
