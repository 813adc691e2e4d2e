// Package trigger provides the scheduling sources that decide when a surface
// produces a frame. Each running trigger owns one goroutine; the frame itself
// is produced synchronously by the trigger's Update handlers.
package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis/internal/notify"
)

// Keys understood by the surface. Unknown keys are ignored by consumers.
const (
	FlushLeds     = "flushLeds"
	Render        = "render"
	UpdateDevices = "updateDevices"
	Heartbeat     = "heartbeat"
)

// CustomData is the opaque per-invocation bag a trigger hands to its handlers.
type CustomData map[string]any

// Bool returns the boolean stored under key, or def when absent or not a bool.
func (d CustomData) Bool(key string, def bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy so handlers can't mutate a trigger's template.
func (d CustomData) Clone() CustomData {
	if d == nil {
		return nil
	}
	out := make(CustomData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Args is passed to Starting and Update handlers.
type Args struct {
	Trigger UpdateTrigger
	Data    CustomData
}

// FrameArgs describes one produced frame. Surfaces emit it before and after rendering.
type FrameArgs struct {
	DeltaTime time.Duration
	Trigger   UpdateTrigger // nil when the frame was requested directly
	Data      CustomData
}

// UpdateTrigger announces when a new frame should be produced.
type UpdateTrigger interface {
	// Start launches the background loop. Calling Start on a running trigger is a no-op.
	Start()
	// Stop cancels the loop and blocks until it has exited. No Update
	// notification fires after Stop returns. Stop must not be called from
	// one of the trigger's own handlers.
	Stop()
	Running() bool
	OnStarting(func(Args)) *notify.Subscription
	OnUpdate(func(Args)) *notify.Subscription
	// LastUpdateTime is how long the last Update notification took.
	LastUpdateTime() time.Duration
}

// base carries the lifecycle shared by every trigger.
type base struct {
	self UpdateTrigger
	name string

	starting notify.Event[Args]
	update   notify.Event[Args]
	last     atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (b *base) OnStarting(fn func(Args)) *notify.Subscription { return b.starting.Subscribe(fn) }
func (b *base) OnUpdate(fn func(Args)) *notify.Subscription   { return b.update.Subscribe(fn) }

func (b *base) LastUpdateTime() time.Duration { return time.Duration(b.last.Load()) }

func (b *base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *base) fireStarting(data CustomData) {
	b.starting.Emit(Args{Trigger: b.self, Data: data})
}

// fireUpdate emits Update and records how long the handlers took.
func (b *base) fireUpdate(data CustomData) time.Duration {
	start := time.Now()
	b.update.Emit(Args{Trigger: b.self, Data: data})
	d := time.Since(start)
	b.last.Store(int64(d))
	return d
}

func (b *base) start(loop func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.cancel, b.done = cancel, done

	log.Debug().Str("trigger", b.name).Msg("trigger starting")
	go b.run(ctx, cancel, done, loop)
}

func (b *base) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, loop func(ctx context.Context)) {
	defer close(done)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// A failing loop is torn down, never restarted.
		log.Error().Str("trigger", b.name).Interface("panic", r).Msg("trigger loop crashed; stopping")
		cancel()
		b.mu.Lock()
		if b.done == done {
			b.cancel, b.done = nil, nil
		}
		b.mu.Unlock()
	}()
	loop(ctx)
}

func (b *base) stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Debug().Str("trigger", b.name).Msg("trigger stopped")
}

// sleep waits for d or until ctx is cancelled. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
