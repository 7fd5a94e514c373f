package gps

import (
	"testing"
	"time"
)

// A one-second burst from a MediaTek receiver after ConfigurePMTK.
var mtkBurst = []string{
	"GPRMC,064951.000,A,2307.1256,N,12016.4438,E,0.03,165.48,260406,,,A",
	"GPGGA,064951.000,2307.1256,N,12016.4438,E,1,8,0.95,39.9,M,17.8,M,,",
	"GPGSA,A,3,29,21,26,15,18,09,06,10,,,,,2.32,0.95,2.11",
}

func observeAll(tr *Tracker, now time.Time, bodies ...string) {
	for _, b := range bodies {
		tr.Observe(now, logged(b))
	}
}

func TestTracker_NoFixStatus(t *testing.T) {
	var tr Tracker
	snap := tr.Snapshot()
	if snap.Valid || snap.Sentences != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if got := snap.Status(); got != "GPS: no fix" {
		t.Fatalf("Status()=%q", got)
	}
}

func TestTracker_MediaTekBurst(t *testing.T) {
	var tr Tracker
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	observeAll(&tr, now, mtkBurst...)

	snap := tr.Snapshot()
	if !snap.Valid || snap.Mode != 3 || snap.Quality != 1 || snap.SatsUsed != 8 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.AltM == nil || *snap.AltM != 39.9 || snap.SpeedKt == nil || *snap.SpeedKt != 0.03 {
		t.Fatalf("alt=%v speed=%v", snap.AltM, snap.SpeedKt)
	}
	if snap.PDOP == nil || *snap.PDOP != 2.32 || snap.VDOP == nil || *snap.VDOP != 2.11 || snap.HDOP != 0.95 {
		t.Fatalf("dops p=%v h=%v v=%v", snap.PDOP, snap.HDOP, snap.VDOP)
	}
	if snap.GPSTimeUTC != "2006-04-26T06:49:51Z" || snap.LastFixUTC != "2026-01-02T03:04:05Z" {
		t.Fatalf("gps time=%q last fix=%q", snap.GPSTimeUTC, snap.LastFixUTC)
	}
	if snap.LastKind != "GSA" || snap.Sentences != 3 || snap.Ignored != 0 || snap.BadLines != 0 {
		t.Fatalf("kind=%q sentences=%d ignored=%d bad=%d", snap.LastKind, snap.Sentences, snap.Ignored, snap.BadLines)
	}
	if got := snap.Status(); got != "GPS: 23.11876,120.27406 3D sats=8" {
		t.Fatalf("Status()=%q", got)
	}
}

func TestTracker_LosesFix(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"RMCVoid", "GPRMC,065951.000,V,,,,,,,260406,,,N"},
		{"GGAQualityZero", "GPGGA,065951.000,,,,,0,0,,,M,,M,,"},
		{"GSANoFix", "GPGSA,A,1,,,,,,,,,,,,,,,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tr Tracker
			now := time.Now()
			observeAll(&tr, now, mtkBurst...)
			observeAll(&tr, now, tc.body)
			snap := tr.Snapshot()
			if snap.Valid || snap.Status() != "GPS: no fix" {
				t.Fatalf("snapshot=%+v", snap)
			}
		})
	}
}

func TestTracker_SouthWestGGA(t *testing.T) {
	var tr Tracker
	observeAll(&tr, time.Now(), "GNGGA,101010.00,3345.5000,S,07030.0000,W,2,11,0.8,520.0,M,30.1,M,,")
	snap := tr.Snapshot()
	if got := snap.Status(); got != "GPS: -33.75833,-70.50000 sats=11" {
		t.Fatalf("Status()=%q", got)
	}
}

func TestTracker_CountsBadAndIgnored(t *testing.T) {
	var tr Tracker
	tr.Observe(time.Now(), []byte("$GPRMC,garbage*00"))
	observeAll(&tr, time.Now(), "PMTK001,314,3", "GPGSV,3,1,12,29,36,029,42")

	snap := tr.Snapshot()
	if snap.Sentences != 3 || snap.BadLines != 1 || snap.Ignored != 2 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.LastError != ErrBadChecksum.Error() || snap.Valid {
		t.Fatalf("last error=%q valid=%t", snap.LastError, snap.Valid)
	}
}
