package decor

import (
	"sync"
	"time"

	"github.com/coreman2200/arcaluminis/internal/notify"
	"github.com/coreman2200/arcaluminis/internal/trigger"
)

// Base implements the bookkeeping half of Decorator: the enabled flag, the
// order and the set of hosts it is attached to. The zero value is an enabled
// decorator with order 0; embed it.
type Base struct {
	mu       sync.RWMutex
	disabled bool
	order    int
	hosts    []any
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

func (b *Base) Order() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.order
}

// SetOrder changes precedence. Hosts need Reorder to pick it up.
func (b *Base) SetOrder(o int) {
	b.mu.Lock()
	b.order = o
	b.mu.Unlock()
}

func (b *Base) OnAttached(host any) { b.attach(host) }
func (b *Base) OnDetached(host any) { b.detach(host) }

// Hosts returns the objects currently decorated by b.
func (b *Base) Hosts() []any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]any, len(b.hosts))
	copy(out, b.hosts)
	return out
}

// attach records host and returns the host count afterwards.
func (b *Base) attach(host any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hosts = append(b.hosts, host)
	return len(b.hosts)
}

// detach forgets one attachment to host and returns the host count
// afterwards, or -1 if host was not attached.
func (b *Base) detach(host any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.hosts {
		if h == host {
			b.hosts = append(b.hosts[:i:i], b.hosts[i+1:]...)
			return len(b.hosts)
		}
	}
	return -1
}

// FrameSource announces frames; surfaces implement it.
type FrameSource interface {
	OnUpdating(func(trigger.FrameArgs)) *notify.Subscription
}

// UpdateAware is a Base that gets a per-frame callback while it is attached
// to at least one host. It subscribes to the frame source on the first
// attach and unsubscribes when the last host detaches, so a decorator shared
// by many hosts is stepped once per frame.
type UpdateAware struct {
	Base

	source           FrameSource
	updateIfDisabled bool
	update           func(dt time.Duration)

	subMu sync.Mutex
	sub   *notify.Subscription
}

// Init wires the frame source; call it from the embedding type's constructor
// before the decorator is attached. update runs once per frame with the
// frame's delta and is skipped while disabled unless updateIfDisabled.
func (u *UpdateAware) Init(src FrameSource, updateIfDisabled bool, update func(dt time.Duration)) {
	u.subMu.Lock()
	defer u.subMu.Unlock()
	u.source = src
	u.updateIfDisabled = updateIfDisabled
	u.update = update
}

func (u *UpdateAware) OnAttached(host any) {
	u.subMu.Lock()
	defer u.subMu.Unlock()
	if u.attach(host) == 1 && u.source != nil {
		u.sub = u.source.OnUpdating(u.onFrame)
	}
}

func (u *UpdateAware) OnDetached(host any) {
	u.subMu.Lock()
	defer u.subMu.Unlock()
	if u.detach(host) == 0 {
		u.sub.Cancel()
		u.sub = nil
	}
}

// Subscribed reports whether the decorator is currently receiving frames.
func (u *UpdateAware) Subscribed() bool {
	u.subMu.Lock()
	defer u.subMu.Unlock()
	return u.sub != nil
}

func (u *UpdateAware) onFrame(a trigger.FrameArgs) {
	if u.update == nil || (!u.Enabled() && !u.updateIfDisabled) {
		return
	}
	u.update(a.DeltaTime)
}
