package gps

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is the fix summary shown on the status page.
type Snapshot struct {
	Valid bool `json:"valid"`

	LatDeg   float64  `json:"lat_deg,omitempty"`
	LonDeg   float64  `json:"lon_deg,omitempty"`
	AltM     *float64 `json:"alt_m,omitempty"`
	SpeedKt  *float64 `json:"speed_kt,omitempty"`
	TrackDeg *float64 `json:"track_deg,omitempty"`

	// Quality is GGA's fix quality; Mode is GSA's 1 (none), 2 (2D) or 3 (3D).
	Quality    int      `json:"quality"`
	Mode       int      `json:"mode"`
	Satellites *int     `json:"satellites,omitempty"`
	SatsUsed   int      `json:"sats_used"`
	HDOP       float64  `json:"hdop,omitempty"`
	PDOP       *float64 `json:"pdop,omitempty"`
	VDOP       *float64 `json:"vdop,omitempty"`

	// GPSTimeUTC is the receiver's own clock from the last RMC, which lets
	// a capture be lined up with wall time afterwards.
	GPSTimeUTC string `json:"gps_time_utc,omitempty"`
	LastFixUTC string `json:"last_fix_utc,omitempty"`
	LastKind   string `json:"last_kind,omitempty"`

	Sentences uint64 `json:"sentences"`
	Ignored   uint64 `json:"ignored,omitempty"`
	BadLines  uint64 `json:"bad_lines,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Tracker follows the receiver's fix from the sentences the capture loop
// logs. Observe and Snapshot may be called from different goroutines.
type Tracker struct {
	mu        sync.Mutex
	st        fixState
	sentences uint64
	ignored   uint64
	bad       uint64
	lastErr   string
}

// Observe parses one logged sentence. Lines that fail to parse are counted
// and remembered; sentence types without fix data are counted as ignored.
func (t *Tracker) Observe(nowUTC time.Time, line []byte) {
	s, err := parseSentence(line)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sentences++
	if err != nil {
		t.bad++
		t.lastErr = err.Error()
		return
	}
	if !t.st.apply(nowUTC, s) {
		t.ignored++
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := &t.st
	out := Snapshot{
		Valid:     st.valid,
		Quality:   st.quality,
		Mode:      st.mode,
		SatsUsed:  st.used,
		HDOP:      st.hdop,
		LastKind:  st.lastKind,
		Sentences: t.sentences,
		Ignored:   t.ignored,
		BadLines:  t.bad,
		LastError: t.lastErr,
	}
	if st.haveLatLon {
		out.LatDeg, out.LonDeg = st.lat, st.lon
	}
	if st.haveAlt {
		v := st.altM
		out.AltM = &v
	}
	if st.haveSpd {
		v := st.speedKt
		out.SpeedKt = &v
	}
	if st.haveTrk {
		v := st.trackDeg
		out.TrackDeg = &v
	}
	if st.haveSats {
		v := st.sats
		out.Satellites = &v
	}
	if st.haveDOPs {
		p, v := st.pdop, st.vdop
		out.PDOP, out.VDOP = &p, &v
	}
	if !st.gpsTime.IsZero() {
		out.GPSTimeUTC = st.gpsTime.Format(time.RFC3339Nano)
	}
	if !st.lastFix.IsZero() {
		out.LastFixUTC = st.lastFix.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// Status is the one-line fix summary for the display.
func (s Snapshot) Status() string {
	if !s.Valid {
		return "GPS: no fix"
	}
	fix := fmt.Sprintf("GPS: %.5f,%.5f", s.LatDeg, s.LonDeg)
	if s.Mode >= 2 {
		fix += fmt.Sprintf(" %dD", s.Mode)
	}
	switch {
	case s.Satellites != nil:
		fix += fmt.Sprintf(" sats=%d", *s.Satellites)
	case s.SatsUsed > 0:
		fix += fmt.Sprintf(" sats=%d", s.SatsUsed)
	}
	return fix
}
