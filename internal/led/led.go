// Package led drives the status LED: lit while the logger brings up its
// storage and radios, dark once capture is running, blinking on a fatal
// setup error.
package led

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type line interface {
	SetValue(v int) error
	Close() error
}

var openLineFn = openLine

// LED is safe for concurrent use. A nil *LED is a valid no-op LED.
type LED struct {
	mu sync.Mutex
	l  line
	on bool
}

// Open requests offset on chip as an output, initially lit.
func Open(chip string, offset int) (*LED, error) {
	if offset < 0 {
		return nil, fmt.Errorf("led: invalid gpio line %d", offset)
	}
	l, err := openLineFn(chip, offset)
	if err != nil {
		return nil, err
	}
	return &LED{l: l, on: true}, nil
}

func (d *LED) Set(on bool) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.l == nil {
		return fmt.Errorf("led: closed")
	}
	v := 0
	if on {
		v = 1
	}
	if err := d.l.SetValue(v); err != nil {
		return err
	}
	d.on = on
	return nil
}

func (d *LED) On() error  { return d.Set(true) }
func (d *LED) Off() error { return d.Set(false) }

func (d *LED) IsOn() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// Blink toggles the LED every period until ctx is done, then leaves it lit.
func (d *LED) Blink(ctx context.Context, period time.Duration) error {
	if d == nil {
		<-ctx.Done()
		return nil
	}
	if period <= 0 {
		return fmt.Errorf("led: blink period must be > 0")
	}
	t := time.NewTicker(period)
	defer t.Stop()
	on := d.IsOn()
	for {
		select {
		case <-ctx.Done():
			return d.On()
		case <-t.C:
			on = !on
			if err := d.Set(on); err != nil {
				return err
			}
		}
	}
}

// Close turns the LED off and releases the line.
func (d *LED) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.l == nil {
		return nil
	}
	_ = d.l.SetValue(0)
	err := d.l.Close()
	d.l = nil
	d.on = false
	return err
}
