package trigger

import (
	"context"
	"sync"
	"time"
)

// DefaultFPS matches the rate the render loop ran at before triggers were configurable.
const DefaultFPS = 30

// Timer fires Update at a fixed rate. The time spent in the handlers is
// subtracted from the next sleep, so slow frames don't drift the schedule.
type Timer struct {
	base

	mu       sync.RWMutex
	interval time.Duration
	data     CustomData
}

// NewTimer returns a stopped trigger firing every interval. A non-positive
// interval falls back to DefaultFPS. data is handed to every invocation.
func NewTimer(interval time.Duration, data CustomData) *Timer {
	if interval <= 0 {
		interval = time.Second / DefaultFPS
	}
	t := &Timer{interval: interval, data: data}
	t.base.self = t
	t.base.name = "timer"
	return t
}

// NewTimerFPS is NewTimer with the interval given as frames per second.
func NewTimerFPS(fps int, data CustomData) *Timer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return NewTimer(time.Second/time.Duration(fps), data)
}

// Interval returns the target period between two updates.
func (t *Timer) Interval() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interval
}

// SetInterval changes the period; it takes effect after the current sleep.
func (t *Timer) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.interval = d
	t.mu.Unlock()
}

func (t *Timer) Start() { t.start(t.loop) }
func (t *Timer) Stop()  { t.stop() }

func (t *Timer) loop(ctx context.Context) {
	t.fireStarting(t.data.Clone())
	for ctx.Err() == nil {
		took := t.fireUpdate(t.data.Clone())
		if !sleep(ctx, t.Interval()-took) {
			return
		}
	}
}
