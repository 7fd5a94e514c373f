package binlog

import (
	"errors"
	"fmt"
	"time"
)

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Elapsed returns the time from a to b, tolerating one wrap of the 32-bit
// millisecond counter.
func Elapsed(a, b Record) time.Duration {
	ms := b.Millis - a.Millis
	us := int64(b.Micros) - int64(a.Micros)
	return time.Duration(ms)*time.Millisecond + time.Duration(us)*time.Microsecond
}

// Play hands records to cb in log order, sleeping between them for the gap
// between their stamps.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(records []Record, speedMultiplier float64, sleeper Sleeper, cb func(Record) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for i, r := range records {
		if i > 0 {
			wait := Elapsed(records[i-1], r)
			if wait > 0 {
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}
		}
		if err := cb(r); err != nil {
			return err
		}
	}
	return nil
}
