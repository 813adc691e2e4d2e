// Package decor lets brushes, groups and gradients host ordered, switchable
// behaviour modifiers.
//
// A Decoratable keeps its decorators sorted by Order, highest first; that is
// the order callers apply them in. Attach and detach hooks always run outside
// the list lock so a decorator may add or remove decorators from its hooks.
package decor

import (
	"sort"
	"sync"
)

// Decorator is anything that can be attached to a Decoratable.
type Decorator interface {
	Enabled() bool
	// Order decides precedence: higher orders are applied first.
	Order() int
	OnAttached(host any)
	OnDetached(host any)
}

// Decoratable is an ordered decorator list owned by host.
type Decoratable[D Decorator] struct {
	host any

	mu   sync.Mutex
	list []D
}

// New returns an empty list whose hooks receive host.
func New[D Decorator](host any) *Decoratable[D] {
	return &Decoratable[D]{host: host}
}

// AddDecorator attaches d. Adding the same instance twice is rejected.
func (s *Decoratable[D]) AddDecorator(d D) bool {
	s.mu.Lock()
	if s.indexOf(d) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.list = append(s.list, d)
	sort.SliceStable(s.list, func(i, j int) bool { return s.list[i].Order() > s.list[j].Order() })
	s.mu.Unlock()

	d.OnAttached(s.host)
	return true
}

// RemoveDecorator detaches d; it reports false if d wasn't attached.
func (s *Decoratable[D]) RemoveDecorator(d D) bool {
	s.mu.Lock()
	i := s.indexOf(d)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.list = append(s.list[:i:i], s.list[i+1:]...)
	s.mu.Unlock()

	d.OnDetached(s.host)
	return true
}

// RemoveAllDecorators detaches every decorator attached at the time of the call.
func (s *Decoratable[D]) RemoveAllDecorators() {
	for _, d := range s.Decorators() {
		s.RemoveDecorator(d)
	}
}

// Decorators returns a snapshot, highest order first. Reorder after changing
// a decorator's order.
func (s *Decoratable[D]) Decorators() []D {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]D, len(s.list))
	copy(out, s.list)
	return out
}

// Reorder re-sorts the list, for decorators whose order changed after attach.
func (s *Decoratable[D]) Reorder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.list, func(i, j int) bool { return s.list[i].Order() > s.list[j].Order() })
}

func (s *Decoratable[D]) indexOf(d D) int {
	for i, x := range s.list {
		if Decorator(x) == Decorator(d) {
			return i
		}
	}
	return -1
}
