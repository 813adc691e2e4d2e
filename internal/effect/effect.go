// Package effect implements time-stepped animations attached to brushes and
// LED groups.
//
// The elapsed-time state of an attached effect lives in the Target, not in
// the effect: every effect is stepped with the time since its own previous
// step, starting at zero.
package effect

import (
	"sync"
	"time"
)

// Effect is an animation attached to a target of type T. An effect instance
// belongs to at most one target at a time; detach it before attaching it
// elsewhere.
type Effect[T any] interface {
	Enabled() bool
	// Done reports the effect has finished; it is detached after the step
	// that made it true and never stepped again.
	Done() bool
	Update(dt time.Duration)
	OnAttach(target T)
	OnDetach(target T)
}

type timed[T any] struct {
	effect Effect[T]
	last   time.Time
}

// Target holds the effects attached to owner.
type Target[T any] struct {
	owner T
	now   func() time.Time

	mu      sync.Mutex
	entries []*timed[T]
}

// NewTarget returns an empty target whose hooks receive owner.
func NewTarget[T any](owner T) *Target[T] {
	return &Target[T]{owner: owner, now: time.Now}
}

// owners maps every attached effect to its target.
var owners sync.Map

// AddEffect attaches e. It reports false if e is already attached to this
// or any other target.
func (t *Target[T]) AddEffect(e Effect[T]) bool {
	if _, taken := owners.LoadOrStore(e, t); taken {
		return false
	}
	t.mu.Lock()
	t.entries = append(t.entries, &timed[T]{effect: e})
	t.mu.Unlock()

	e.OnAttach(t.owner)
	return true
}

// RemoveEffect detaches e; false if it wasn't attached.
func (t *Target[T]) RemoveEffect(e Effect[T]) bool {
	if !t.drop(e) {
		return false
	}
	e.OnDetach(t.owner)
	return true
}

// RemoveAllEffects detaches every effect attached at the time of the call.
func (t *Target[T]) RemoveAllEffects() {
	for _, e := range t.Effects() {
		t.RemoveEffect(e)
	}
}

func (t *Target[T]) HasEffect(e Effect[T]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOf(e) >= 0
}

// Effects returns the attached effects in attach order.
func (t *Target[T]) Effects() []Effect[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Effect[T], len(t.entries))
	for i, en := range t.entries {
		out[i] = en.effect
	}
	return out
}

// UpdateEffects steps every enabled effect once, newest first, and detaches
// the ones that report Done afterwards.
func (t *Target[T]) UpdateEffects() {
	t.mu.Lock()
	entries := make([]*timed[T], len(t.entries))
	copy(entries, t.entries)
	t.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		en := entries[i]
		if !en.effect.Enabled() {
			continue
		}

		en.effect.Update(t.delta(en))

		if en.effect.Done() {
			t.RemoveEffect(en.effect)
		}
	}
}

func (t *Target[T]) delta(en *timed[T]) time.Duration {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	var dt time.Duration
	if !en.last.IsZero() {
		dt = now.Sub(en.last)
	}
	en.last = now
	return dt
}

func (t *Target[T]) drop(e Effect[T]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(e)
	if i < 0 {
		return false
	}
	t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
	owners.CompareAndDelete(e, t)
	return true
}

func (t *Target[T]) indexOf(e Effect[T]) int {
	for i, en := range t.entries {
		if en.effect == e {
			return i
		}
	}
	return -1
}
