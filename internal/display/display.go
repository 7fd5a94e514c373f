// Package display renders the capture counters for the operator. The
// capture loop calls it at most once per display interval and a display
// must never block it.
package display

import (
	"fmt"
	"log"
)

// Display is the display collaborator. rate is frames per second and
// bitRate is log bits per second, both over the last display window.
type Display interface {
	ShowCounts(total, rate, bitRate uint64)
	ShowStatus(line string)
}

// Kbps is the rounded-down kilobit figure shown on the panel.
func Kbps(bitRate uint64) uint64 { return bitRate >> 10 }

// CountsLine formats counts the way every text display shows them.
func CountsLine(total, rate, bitRate uint64) string {
	return fmt.Sprintf("%d packets %d packets/s %d kbps", total, rate, Kbps(bitRate))
}

// Console writes to a logger. It dedupes status lines so a status that is
// reasserted every tick is logged once.
type Console struct {
	Logger *log.Logger

	lastStatus string
}

func (c *Console) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c *Console) ShowCounts(total, rate, bitRate uint64) {
	c.logger().Printf("display %s", CountsLine(total, rate, bitRate))
}

func (c *Console) ShowStatus(line string) {
	if line == c.lastStatus {
		return
	}
	c.lastStatus = line
	c.logger().Printf("status %s", line)
}

// Multi fans every call out to each display in order.
type Multi []Display

func (m Multi) ShowCounts(total, rate, bitRate uint64) {
	for _, d := range m {
		if d != nil {
			d.ShowCounts(total, rate, bitRate)
		}
	}
}

func (m Multi) ShowStatus(line string) {
	for _, d := range m {
		if d != nil {
			d.ShowStatus(line)
		}
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) ShowCounts(uint64, uint64, uint64) {}
func (Nop) ShowStatus(string)                 {}
