// Package stats keeps the capture counters: a total frame count that only
// grows, and a window of frames and bytes that is reset at every display
// refresh to derive rates.
package stats

import (
	"fmt"
	"time"
)

// DropReason says why a started frame never reached the log.
type DropReason int

const (
	DropTimeout DropReason = iota
	DropChecksum
	DropTooLarge
	DropSink
	numDropReasons
)

var dropReasonNames = [numDropReasons]string{
	DropTimeout:  "timeout",
	DropChecksum: "checksum",
	DropTooLarge: "too_large",
	DropSink:     "sink",
}

func (r DropReason) String() string {
	if r < 0 || r >= numDropReasons {
		return fmt.Sprintf("DropReason(%d)", int(r))
	}
	return dropReasonNames[r]
}

// Window is the part of the counters that resets.
type Window struct {
	Frames uint64
	Bytes  uint64
}

// FrameRate is frames per second over a window of length d.
func (w Window) FrameRate(d time.Duration) uint64 {
	if d <= 0 {
		return w.Frames
	}
	return uint64(float64(w.Frames) / d.Seconds())
}

// BitRate is log bits per second over a window of length d.
func (w Window) BitRate(d time.Duration) uint64 {
	if d <= 0 {
		return w.Bytes * 8
	}
	return uint64(float64(w.Bytes*8) / d.Seconds())
}

// Counters is owned by the capture loop and is not safe for concurrent use.
// Metrics, when set, mirrors every increment.
type Counters struct {
	TotalFrames  uint64
	TotalBytes   uint64
	Records      uint64
	Dropped      [numDropReasons]uint64
	NoiseBytes   uint64
	GPSSentences uint64
	GPSDropped   uint64
	SinkErrors   uint64

	window Window

	Metrics *Metrics
}

// AddFrame counts one logged radio frame.
func (c *Counters) AddFrame(radio string) {
	c.TotalFrames++
	c.window.Frames++
	c.Metrics.frame(radio)
}

// AddRecord counts one record of n serialized bytes written to the log.
func (c *Counters) AddRecord(kind string, n int) {
	if n <= 0 {
		return
	}
	c.Records++
	c.TotalBytes += uint64(n)
	c.window.Bytes += uint64(n)
	c.Metrics.record(kind, n)
}

func (c *Counters) AddDrop(radio string, r DropReason) {
	if r < 0 || r >= numDropReasons {
		return
	}
	c.Dropped[r]++
	c.Metrics.drop(radio, r)
}

func (c *Counters) AddNoise(radio string, n int) {
	if n <= 0 {
		return
	}
	c.NoiseBytes += uint64(n)
	c.Metrics.noise(radio, n)
}

func (c *Counters) AddSentence() {
	c.GPSSentences++
	c.Metrics.sentence(false)
}

func (c *Counters) AddSentenceDropped() {
	c.GPSDropped++
	c.Metrics.sentence(true)
}

// AddSinkError counts a record the sink refused.
func (c *Counters) AddSinkError() {
	c.SinkErrors++
	c.Metrics.sinkError()
}

// DroppedTotal sums drops over every reason.
func (c *Counters) DroppedTotal() uint64 {
	var n uint64
	for _, v := range c.Dropped {
		n += v
	}
	return n
}

func (c *Counters) Window() Window { return c.window }

// ResetWindow returns the window accumulated since the last reset and
// zeroes it.
func (c *Counters) ResetWindow() Window {
	w := c.window
	c.window = Window{}
	return w
}

// Line is the operator console summary.
func (c *Counters) Line() string {
	return fmt.Sprintf("%d packets bytes=%d dropped=%d (timeout=%d checksum=%d too_large=%d sink=%d) noise=%d nmea=%d nmea_dropped=%d sink_errors=%d",
		c.TotalFrames, c.TotalBytes, c.DroppedTotal(),
		c.Dropped[DropTimeout], c.Dropped[DropChecksum], c.Dropped[DropTooLarge], c.Dropped[DropSink],
		c.NoiseBytes, c.GPSSentences, c.GPSDropped, c.SinkErrors)
}
