package capture

import (
	"context"
	"runtime"
	"time"
)

// Run calls Step until ctx is done, then flushes the sink once.
func (s *Session) Run(ctx context.Context) error {
	var idle *time.Timer
	defer func() {
		if idle != nil {
			idle.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return s.flush()
		default:
		}
		if s.Step() {
			runtime.Gosched()
			continue
		}
		if s.cfg.IdleSleep <= 0 {
			runtime.Gosched()
			continue
		}
		if idle == nil {
			idle = time.NewTimer(s.cfg.IdleSleep)
		} else {
			idle.Reset(s.cfg.IdleSleep)
		}
		select {
		case <-ctx.Done():
			return s.flush()
		case <-idle.C:
		}
	}
}
