package gps

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"time"
)

var (
	ErrNoStart     = errors.New("nmea: missing '$'")
	ErrNoChecksum  = errors.New("nmea: missing checksum")
	ErrBadChecksum = errors.New("nmea: checksum mismatch")
	ErrBadAddress  = errors.New("nmea: bad address field")
)

// sentence is a checksum-verified NMEA line split on commas. fields[0] is
// the address, e.g. "GPRMC".
type sentence struct {
	talker string
	kind   string
	fields [][]byte
}

// field returns fields[i], or nil when the sentence is shorter.
func (s sentence) field(i int) []byte {
	if i < len(s.fields) {
		return s.fields[i]
	}
	return nil
}

// parseSentence works on the bytes exactly as the capture loop logs them:
// "$" address "," ... "*" two hex digits, without CR/LF.
func parseSentence(line []byte) (sentence, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '$' {
		return sentence{}, ErrNoStart
	}
	star := bytes.LastIndexByte(line, '*')
	if star < 0 || len(line)-star-1 < 2 {
		return sentence{}, ErrNoChecksum
	}
	var want [1]byte
	if _, err := hex.Decode(want[:], line[star+1:star+3]); err != nil {
		return sentence{}, ErrNoChecksum
	}
	body := line[1:star]
	var got byte
	for _, c := range body {
		got ^= c
	}
	if got != want[0] {
		return sentence{}, ErrBadChecksum
	}

	fields := bytes.Split(body, []byte{','})
	addr := fields[0]
	if len(addr) > 1 && addr[0] == 'P' {
		// Proprietary, e.g. the PMTK001 acknowledgements.
		return sentence{talker: "P", kind: string(addr[1:]), fields: fields}, nil
	}
	if len(addr) != 5 {
		return sentence{}, ErrBadAddress
	}
	return sentence{
		talker: string(addr[:2]),
		kind:   string(addr[len(addr)-3:]),
		fields: fields,
	}, nil
}

// fixState accumulates what RMC, GGA and GSA say about the receiver's fix.
type fixState struct {
	valid bool

	lat, lon   float64
	haveLatLon bool

	altM     float64
	haveAlt  bool
	speedKt  float64
	haveSpd  bool
	trackDeg float64
	haveTrk  bool

	quality  int // GGA: 0 invalid, 1 GPS, 2 DGPS, ...
	sats     int // GGA: satellites in view of the solution
	haveSats bool

	mode     int // GSA: 1 none, 2 2D, 3 3D
	used     int // GSA: satellite IDs listed
	pdop     float64
	hdop     float64
	vdop     float64
	haveDOPs bool

	gpsTime  time.Time // from RMC date + time
	lastFix  time.Time // wall clock of the last valid fix
	lastKind string
}

// apply updates the state from s and reports whether s was understood.
func (st *fixState) apply(now time.Time, s sentence) bool {
	switch s.kind {
	case "RMC":
		st.applyRMC(now, s)
	case "GGA":
		st.applyGGA(now, s)
	case "GSA":
		st.applyGSA(s)
	default:
		return false
	}
	st.lastKind = s.kind
	return true
}

// RMC: 1 time, 2 status A/V, 3-4 lat, 5-6 lon, 7 speed kt, 8 track, 9 date.
func (st *fixState) applyRMC(now time.Time, s sentence) {
	if t, ok := parseDateTime(s.field(9), s.field(1)); ok {
		st.gpsTime = t
	}
	if string(s.field(2)) != "A" {
		st.valid = false
		return
	}
	st.setPosition(now, s.field(3), s.field(4), s.field(5), s.field(6))
	if v, ok := number(s.field(7)); ok {
		st.speedKt, st.haveSpd = v, true
	}
	if v, ok := number(s.field(8)); ok {
		st.trackDeg, st.haveTrk = v, true
	}
}

// GGA: 1 time, 2-3 lat, 4-5 lon, 6 quality, 7 satellites, 8 HDOP,
// 9 altitude, 10 altitude unit (M).
func (st *fixState) applyGGA(now time.Time, s sentence) {
	q, err := strconv.Atoi(string(s.field(6)))
	if err != nil {
		return
	}
	st.quality = q
	if n, err := strconv.Atoi(string(s.field(7))); err == nil {
		st.sats, st.haveSats = n, true
	}
	if q == 0 {
		st.valid = false
		return
	}
	st.setPosition(now, s.field(2), s.field(3), s.field(4), s.field(5))
	if v, ok := number(s.field(9)); ok {
		st.altM, st.haveAlt = v, true
	}
	if v, ok := number(s.field(8)); ok {
		st.hdop = v
	}
}

// GSA: 1 selection A/M, 2 mode, 3-14 satellite IDs, 15 PDOP, 16 HDOP,
// 17 VDOP.
func (st *fixState) applyGSA(s sentence) {
	mode, err := strconv.Atoi(string(s.field(2)))
	if err != nil {
		return
	}
	st.mode = mode
	used := 0
	for i := 3; i <= 14; i++ {
		if len(s.field(i)) > 0 {
			used++
		}
	}
	st.used = used
	if mode < 2 {
		st.valid = false
		return
	}
	p, okP := number(s.field(15))
	h, okH := number(s.field(16))
	v, okV := number(s.field(17))
	if okP && okH && okV {
		st.pdop, st.hdop, st.vdop = p, h, v
		st.haveDOPs = true
	}
}

func (st *fixState) setPosition(now time.Time, lat, ns, lon, ew []byte) {
	la, okLat := coordinate(lat, ns)
	lo, okLon := coordinate(lon, ew)
	if !okLat || !okLon {
		return
	}
	st.lat, st.lon, st.haveLatLon = la, lo, true
	st.valid = true
	st.lastFix = now
}

func number(b []byte) (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(b), 64)
	return v, err == nil
}

// coordinate converts ddmm.mmmm / dddmm.mmmm and a hemisphere letter to
// signed decimal degrees.
func coordinate(v, hemi []byte) (float64, bool) {
	if len(hemi) != 1 {
		return 0, false
	}
	sign := 1.0
	switch hemi[0] {
	case 'N', 'E':
	case 'S', 'W':
		sign = -1
	default:
		return 0, false
	}
	whole := v
	if dot := bytes.IndexByte(v, '.'); dot >= 0 {
		whole = v[:dot]
	}
	if len(whole) < 3 {
		return 0, false
	}
	split := len(whole) - 2
	deg, err := strconv.Atoi(string(v[:split]))
	if err != nil {
		return 0, false
	}
	mins, ok := number(v[split:])
	if !ok || mins >= 60 {
		return 0, false
	}
	return sign * (float64(deg) + mins/60), true
}

// parseDateTime combines RMC's ddmmyy date and hhmmss[.sss] time.
func parseDateTime(date, clock []byte) (time.Time, bool) {
	if len(date) != 6 || len(clock) < 6 {
		return time.Time{}, false
	}
	t, err := time.Parse("020106150405", string(date)+string(clock[:6]))
	if err != nil {
		return time.Time{}, false
	}
	if len(clock) > 6 {
		frac, err := strconv.ParseFloat("0"+string(clock[6:]), 64)
		if err != nil || frac >= 1 {
			return time.Time{}, false
		}
		t = t.Add(time.Duration(math.Round(frac*1000)) * time.Millisecond)
	}
	return t, true
}
