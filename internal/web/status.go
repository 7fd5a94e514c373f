package web

import (
	"sync/atomic"
	"time"

	"blecap/internal/capture"
	"blecap/internal/display"
	"blecap/internal/gps"
	"blecap/internal/stats"
)

// RadioInfo describes one configured sniffer.
type RadioInfo struct {
	Name    string `json:"name"`
	Device  string `json:"device"`
	Baud    int    `json:"baud"`
	Channel int    `json:"channel"`
	Version string `json:"version,omitempty"`
}

// Status collects what /api/status reports. The capture loop writes to it
// through Update; handlers read it concurrently.
type Status struct {
	startUnixNano int64
	lastTickNano  int64
	file          atomic.Value // string
	dir           atomic.Value // string
	radios        atomic.Value // []RadioInfo
	report        atomic.Value // CaptureSnapshot
	fix           atomic.Pointer[gps.Tracker]
	overflow      atomic.Pointer[func() map[string]uint64]
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.file.Store("")
	s.dir.Store("")
	s.radios.Store([]RadioInfo(nil))
	s.report.Store(CaptureSnapshot{})
	return s
}

func (s *Status) SetStatic(dir string, file string, radios []RadioInfo) {
	if dir != "" {
		s.dir.Store(dir)
	}
	if file != "" {
		s.file.Store(file)
	}
	if radios != nil {
		s.radios.Store(append([]RadioInfo(nil), radios...))
	}
}

func (s *Status) SetGPS(fix *gps.Tracker) { s.fix.Store(fix) }

// SetOverflow registers a reader for per-port receive overflow counts.
func (s *Status) SetOverflow(fn func() map[string]uint64) { s.overflow.Store(&fn) }

// CaptureSnapshot is the counter view of the last display tick.
type CaptureSnapshot struct {
	FramesTotal   uint64            `json:"frames_total"`
	BytesTotal    uint64            `json:"bytes_total"`
	Records       uint64            `json:"records"`
	FrameRate     uint64            `json:"frame_rate"`
	Kbps          uint64            `json:"kbps"`
	WindowFrames  uint64            `json:"window_frames"`
	WindowBytes   uint64            `json:"window_bytes"`
	WindowSec     float64           `json:"window_sec"`
	Dropped       map[string]uint64 `json:"dropped"`
	NoiseBytes    uint64            `json:"noise_bytes"`
	NMEASentences uint64            `json:"nmea_sentences"`
	NMEADropped   uint64            `json:"nmea_dropped"`
	SinkErrors    uint64            `json:"sink_errors"`
	Status        string            `json:"status,omitempty"`
}

// Update records a display tick. Its signature matches
// capture.Options.OnDisplay.
func (s *Status) Update(rep capture.Report) {
	c := rep.Counters
	dropped := map[string]uint64{}
	for _, r := range []stats.DropReason{stats.DropTimeout, stats.DropChecksum, stats.DropTooLarge, stats.DropSink} {
		dropped[r.String()] = c.Dropped[r]
	}
	s.report.Store(CaptureSnapshot{
		FramesTotal:   c.TotalFrames,
		BytesTotal:    c.TotalBytes,
		Records:       c.Records,
		FrameRate:     rep.Rate,
		Kbps:          display.Kbps(rep.BitRate),
		WindowFrames:  rep.Window.Frames,
		WindowBytes:   rep.Window.Bytes,
		WindowSec:     rep.Interval.Seconds(),
		Dropped:       dropped,
		NoiseBytes:    c.NoiseBytes,
		NMEASentences: c.GPSSentences,
		NMEADropped:   c.GPSDropped,
		SinkErrors:    c.SinkErrors,
		Status:        rep.Status,
	})
	atomic.StoreInt64(&s.lastTickNano, time.Now().UTC().UnixNano())
}

// LastTick is the wall time of the last Update, or zero.
func (s *Status) LastTick() time.Time {
	n := atomic.LoadInt64(&s.lastTickNano)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

type StatusSnapshot struct {
	Service     string            `json:"service"`
	NowUTC      string            `json:"now_utc"`
	UptimeSec   int64             `json:"uptime_sec"`
	File        string            `json:"file,omitempty"`
	Radios      []RadioInfo       `json:"radios"`
	Capture     CaptureSnapshot   `json:"capture"`
	Overflow    map[string]uint64 `json:"serial_overflow,omitempty"`
	GPS         *gps.Snapshot     `json:"gps,omitempty"`
	Disk        *DiskSnapshot     `json:"disk,omitempty"`
	LastTickUTC string            `json:"last_tick_utc,omitempty"`
}

// DiskSnapshot is the free space of the capture directory's filesystem.
type DiskSnapshot struct {
	Path       string `json:"path"`
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
	AvailBytes uint64 `json:"avail_bytes"`
	LastError  string `json:"last_error,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "blecap",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		File:      s.file.Load().(string),
		Radios:    s.radios.Load().([]RadioInfo),
		Capture:   s.report.Load().(CaptureSnapshot),
	}
	if fn := s.overflow.Load(); fn != nil && *fn != nil {
		snap.Overflow = (*fn)()
	}
	if fix := s.fix.Load(); fix != nil {
		g := fix.Snapshot()
		snap.GPS = &g
	}
	if dir := s.dir.Load().(string); dir != "" {
		snap.Disk = snapshotDisk(dir)
	}
	if t := s.LastTick(); !t.IsZero() {
		snap.LastTickUTC = t.Format(time.RFC3339Nano)
	}
	return snap
}
