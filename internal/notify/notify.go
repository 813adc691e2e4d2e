// Package notify implements the observer registration used for surface and
// trigger notifications.
//
// Handlers run synchronously on the emitting goroutine, in subscription
// order. A panicking handler is recovered and logged so one observer cannot
// break the frame or kill a trigger loop.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is a list of handlers for values of type T. The zero value is ready to use.
type Event[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []entry[T]
}

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Subscription is returned by Subscribe; Cancel removes the handler.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel unregisters the handler. It is safe to call more than once and on nil.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe registers fn and returns its subscription.
func (e *Event[T]) Subscribe(fn func(T)) *Subscription {
	e.mu.Lock()
	e.next++
	id := e.next
	e.subs = append(e.subs, entry[T]{id: id, fn: fn})
	e.mu.Unlock()

	return &Subscription{cancel: func() { e.remove(id) }}
}

func (e *Event[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Emit calls every handler registered at the time of the call with v.
// Handlers may subscribe or cancel from inside the callback.
// It returns the number of handlers that panicked.
func (e *Event[T]) Emit(v T) (failed int) {
	e.mu.RLock()
	subs := make([]entry[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		if !call(s.fn, v) {
			failed++
		}
	}
	return failed
}

func call[T any](fn func(T), v T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("notification handler panicked")
			ok = false
		}
	}()
	fn(v)
	return true
}
