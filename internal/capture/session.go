// Package capture runs the control loop: it polls every radio stream in a
// fixed round-robin order, logs each decoded frame and GPS sentence, and
// keeps the periodic timestamp, flush and display housekeeping.
//
// A Session is single-goroutine. Streams, the scratch frame buffer, the
// counters and the record writer are touched only from Step.
package capture

import (
	"errors"
	"fmt"
	"log"
	"time"

	"blecap/internal/binlog"
	"blecap/internal/display"
	"blecap/internal/framing"
	"blecap/internal/gps"
	"blecap/internal/stats"
	"blecap/internal/stream"
)

// Radio is one sniffer stream.
type Radio struct {
	Name string
	Tag  binlog.Tag
	Src  stream.Source
}

// SentenceSource is the GPS collaborator.
type SentenceSource interface {
	HasNewSentence() bool
	TakeSentence() []byte
}

type Config struct {
	TimestampInterval time.Duration
	FlushInterval     time.Duration
	DisplayInterval   time.Duration
	ByteTimeout       time.Duration
	BufferSize        int
	// IdleSleep is slept by Run after a Step that found no input at all.
	// Zero only yields the processor.
	IdleSleep time.Duration
}

func DefaultConfig() Config {
	return Config{
		TimestampInterval: 250 * time.Millisecond,
		FlushInterval:     10 * time.Second,
		DisplayInterval:   time.Second,
		ByteTimeout:       framing.DefaultByteTimeout,
		BufferSize:        framing.MaxFrameSize,
		IdleSleep:         500 * time.Microsecond,
	}
}

// Report is handed to Options.OnDisplay at every display tick.
type Report struct {
	At       time.Duration
	Window   stats.Window
	Interval time.Duration
	Rate     uint64
	BitRate  uint64
	Counters stats.Counters
	Status   string
}

type Options struct {
	Radios []Radio
	// GPS may be nil when no receiver is attached.
	GPS  SentenceSource
	Sink binlog.Sink

	Clock    stream.Clock
	Display  display.Display
	Counters *stats.Counters
	// Fix, when set, follows every logged sentence.
	Fix *gps.Tracker
	// WallClock stamps fixes for the tracker.
	WallClock func() time.Time
	// Status, when set, supplies the display status line. Otherwise the
	// GPS fix summary is shown.
	Status    func() string
	OnDisplay func(Report)
}

var (
	ErrNoSink        = errors.New("capture: log sink is required")
	ErrTooManyRadios = errors.New("capture: at most three radios")
)

type Session struct {
	cfg Config

	radios []Radio
	gps    SentenceSource
	w      *binlog.Writer
	buf    *framing.Buffer
	c      *stats.Counters
	disp   display.Display
	clk    stream.Clock
	fix    *gps.Tracker
	wall   func() time.Time
	status func() string
	onDisp func(Report)

	lastTimestamp time.Duration
	lastFlush     time.Duration
	lastDisplay   time.Duration

	sinkErrs    uint64
	lastSinkErr error
}

func New(cfg Config, opts Options) (*Session, error) {
	if opts.Sink == nil {
		return nil, ErrNoSink
	}
	if len(opts.Radios) > 3 {
		return nil, ErrTooManyRadios
	}
	for i, r := range opts.Radios {
		if r.Src == nil {
			return nil, fmt.Errorf("capture: radio %d (%s) has no stream", i, r.Name)
		}
		if !r.Tag.IsRadio() {
			return nil, fmt.Errorf("capture: radio %d (%s): %w", i, r.Name, binlog.ErrNotRadioTag)
		}
	}
	def := DefaultConfig()
	if cfg.TimestampInterval <= 0 {
		cfg.TimestampInterval = def.TimestampInterval
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.DisplayInterval <= 0 {
		cfg.DisplayInterval = def.DisplayInterval
	}
	if cfg.ByteTimeout <= 0 {
		cfg.ByteTimeout = def.ByteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.IdleSleep < 0 {
		cfg.IdleSleep = 0
	}

	s := &Session{
		cfg:    cfg,
		radios: append([]Radio(nil), opts.Radios...),
		gps:    opts.GPS,
		w:      binlog.NewWriter(opts.Sink),
		buf:    framing.NewBuffer(cfg.BufferSize),
		c:      opts.Counters,
		disp:   opts.Display,
		clk:    opts.Clock,
		fix:    opts.Fix,
		wall:   opts.WallClock,
		status: opts.Status,
		onDisp: opts.OnDisplay,
	}
	if s.c == nil {
		s.c = &stats.Counters{}
	}
	if s.disp == nil {
		s.disp = display.Nop{}
	}
	if s.clk == nil {
		s.clk = stream.NewMonotonicClock()
	}
	if s.wall == nil {
		s.wall = time.Now
	}
	now := s.clk.Now()
	s.lastTimestamp = now
	s.lastFlush = now
	s.lastDisplay = now
	return s, nil
}

// Counters exposes the session counters. Callers on other goroutines must
// use Options.OnDisplay instead.
func (s *Session) Counters() *stats.Counters { return s.c }

// Step runs one control loop iteration and reports whether any stream had
// input.
func (s *Session) Step() bool {
	now := s.clk.Now()
	if now-s.lastTimestamp > s.cfg.TimestampInterval {
		s.lastTimestamp = now
		n, err := s.w.WriteTimestamp(now)
		s.written(binlog.TagSystemTimestamp, n, err)
	}
	if now-s.lastFlush > s.cfg.FlushInterval {
		s.lastFlush = now
		s.flush()
	}
	if now-s.lastDisplay > s.cfg.DisplayInterval {
		s.refreshDisplay(now)
	}

	busy := false
	for i := range s.radios {
		if s.poll(&s.radios[i]) {
			busy = true
		}
	}
	if s.pollGPS() {
		busy = true
	}
	return busy
}

// poll discards bytes up to the next Start marker and decodes at most one
// frame. Only the bytes buffered on entry are examined.
func (s *Session) poll(r *Radio) bool {
	avail := r.Src.Buffered()
	if avail <= 0 {
		return false
	}
	noise := 0
	defer func() { s.c.AddNoise(r.Name, noise) }()

	for i := 0; i < avail; i++ {
		c, err := r.Src.ReadByte()
		if err != nil {
			return true
		}
		if c != framing.Start {
			noise++
			continue
		}
		at := s.clk.Now()
		n, err := framing.Decode(r.Src, s.clk, s.cfg.ByteTimeout, s.buf)
		if err != nil {
			s.c.AddDrop(r.Name, dropReason(err))
			return true
		}
		size, err := s.w.WriteRadioFrame(r.Tag, at, s.buf.Bytes()[:n])
		if err != nil {
			s.c.AddDrop(r.Name, stats.DropSink)
			s.sinkError(err)
			return true
		}
		s.c.AddFrame(r.Name)
		s.c.AddRecord(r.Tag.String(), size)
		if m := s.c.Metrics; m != nil {
			m.ObserveDecode(s.clk.Now() - at)
		}
		return true
	}
	return true
}

func dropReason(err error) stats.DropReason {
	switch {
	case errors.Is(err, framing.ErrChecksum):
		return stats.DropChecksum
	case errors.Is(err, framing.ErrFrameTooLarge):
		return stats.DropTooLarge
	default:
		return stats.DropTimeout
	}
}

func (s *Session) pollGPS() bool {
	if s.gps == nil || !s.gps.HasNewSentence() {
		return false
	}
	line := s.gps.TakeSentence()
	if len(line) > binlog.MaxSentenceLen {
		s.c.AddSentenceDropped()
		return true
	}
	n, err := s.w.WriteNMEA(s.clk.Now(), line)
	s.written(binlog.TagNMEASentence, n, err)
	if err == nil {
		s.c.AddSentence()
		if s.fix != nil {
			s.fix.Observe(s.wall().UTC(), line)
		}
	}
	return true
}

func (s *Session) written(tag binlog.Tag, n int, err error) {
	if err != nil {
		s.sinkError(err)
		return
	}
	s.c.AddRecord(tag.String(), n)
}

func (s *Session) sinkError(err error) {
	s.c.AddSinkError()
	s.sinkErrs++
	s.lastSinkErr = err
}

func (s *Session) flush() error {
	log.Printf("capture %s", s.c.Line())
	if s.sinkErrs > 0 {
		log.Printf("capture sink errors=%d last=%v", s.sinkErrs, s.lastSinkErr)
		s.sinkErrs = 0
	}
	if err := s.w.Flush(); err != nil {
		log.Printf("capture flush error: %v", err)
		return err
	}
	return nil
}

func (s *Session) refreshDisplay(now time.Duration) {
	interval := now - s.lastDisplay
	s.lastDisplay = now

	w := s.c.ResetWindow()
	rate := w.FrameRate(interval)
	bitRate := w.BitRate(interval)
	status := s.statusLine()

	s.disp.ShowCounts(s.c.TotalFrames, rate, bitRate)
	s.disp.ShowStatus(status)
	if s.onDisp != nil {
		s.onDisp(Report{
			At:       now,
			Window:   w,
			Interval: interval,
			Rate:     rate,
			BitRate:  bitRate,
			Counters: *s.c,
			Status:   status,
		})
	}
}

func (s *Session) statusLine() string {
	if s.status != nil {
		return s.status()
	}
	if s.fix != nil {
		return s.fix.Snapshot().Status()
	}
	return "Capturing"
}
