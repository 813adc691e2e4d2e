package effect

import (
	"sync"
	"time"
)

// Base carries the enabled and done flags of an effect. The zero value is
// enabled and not done.
type Base struct {
	mu       sync.RWMutex
	disabled bool
	done     bool
}

func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.disabled
}

func (b *Base) SetEnabled(v bool) {
	b.mu.Lock()
	b.disabled = !v
	b.mu.Unlock()
}

func (b *Base) Done() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.done
}

// Finish marks the effect done; its target drops it after the current step.
func (b *Base) Finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
}

// Func adapts a step function into an Effect. The step returns true once
// the effect is finished.
type Func[T any] struct {
	Base
	step     func(dt time.Duration) bool
	attach   func(T)
	detach   func(T)
	elapsed  time.Duration
	attached bool
}

// NewFunc wraps step. attach and detach may be nil.
func NewFunc[T any](step func(dt time.Duration) bool, attach, detach func(T)) *Func[T] {
	return &Func[T]{step: step, attach: attach, detach: detach}
}

func (f *Func[T]) Update(dt time.Duration) {
	f.elapsed += dt
	if f.step(dt) {
		f.Finish()
	}
}

// Elapsed is the sum of all deltas this effect was stepped with.
func (f *Func[T]) Elapsed() time.Duration { return f.elapsed }

func (f *Func[T]) OnAttach(target T) {
	f.attached = true
	if f.attach != nil {
		f.attach(target)
	}
}

func (f *Func[T]) OnDetach(target T) {
	f.attached = false
	if f.detach != nil {
		f.detach(target)
	}
}

// Attached reports whether the effect is currently attached to a target.
func (f *Func[T]) Attached() bool { return f.attached }
