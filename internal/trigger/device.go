package trigger

import (
	"context"
	"sync"
	"time"
)

// Device is driven by the hardware side: it fires when TriggerHasData is
// signalled, never more often than its update frequency allows. When a
// heartbeat is configured and the trigger has been idle for longer than it,
// an update carrying Heartbeat=true is fired so devices that blank after a
// timeout get their last frame resent.
type Device struct {
	base

	signal chan struct{}

	mu        sync.RWMutex
	frequency time.Duration
	heartbeat time.Duration
}

// NewDevice returns a stopped trigger. frequency is the minimum period
// between two data driven updates (0 disables rate limiting) and heartbeat
// the idle period after which a heartbeat fires (0 disables it).
func NewDevice(frequency, heartbeat time.Duration) *Device {
	d := &Device{
		signal:    make(chan struct{}, 1),
		frequency: frequency,
		heartbeat: heartbeat,
	}
	d.base.self = d
	d.base.name = "device"
	return d
}

func (d *Device) Start() { d.start(d.loop) }
func (d *Device) Stop()  { d.stop() }

// TriggerHasData tells the trigger new data is waiting to be pushed.
func (d *Device) TriggerHasData() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

func (d *Device) SetFrequency(f time.Duration) {
	d.mu.Lock()
	d.frequency = f
	d.mu.Unlock()
}

func (d *Device) SetHeartbeat(h time.Duration) {
	d.mu.Lock()
	d.heartbeat = h
	d.mu.Unlock()
}

func (d *Device) settings() (time.Duration, time.Duration) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frequency, d.heartbeat
}

func (d *Device) loop(ctx context.Context) {
	d.fireStarting(nil)

	var last time.Time
	for {
		frequency, heartbeat := d.settings()

		// No heartbeat before the first real update.
		var (
			beat  <-chan time.Time
			timer *time.Timer
		)
		if heartbeat > 0 && !last.IsZero() {
			timer = time.NewTimer(time.Until(last.Add(heartbeat)))
			beat = timer.C
		}

		ok := d.wait(ctx, beat, frequency, &last)
		if timer != nil {
			timer.Stop()
		}
		if !ok {
			return
		}
	}
}

// wait blocks for the next event and handles it. It reports false once ctx is done.
func (d *Device) wait(ctx context.Context, beat <-chan time.Time, frequency time.Duration, last *time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-d.signal:
		if ctx.Err() != nil {
			return false
		}
		took := d.fireUpdate(nil)
		*last = time.Now()
		if frequency > 0 {
			return sleep(ctx, frequency-took)
		}
	case <-beat:
		if ctx.Err() != nil {
			return false
		}
		d.fireUpdate(CustomData{Heartbeat: true})
		*last = time.Now()
	}
	return true
}
