// Package surface composes led groups across devices into frames.
//
// A Surface keeps a virtual model of every led of every attached device. One
// call to Update renders all groups onto their leds (painter's algorithm,
// ascending z-index) and then pushes the changes to the devices. Frames are
// requested by update triggers or directly by the caller.
package surface

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/notify"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/trigger"
)

var surfaces sync.Map // uuid.UUID -> *Surface

// Lookup returns the open surface with id.
func Lookup(id uuid.UUID) (*Surface, bool) {
	s, ok := surfaces.Load(id)
	if !ok {
		return nil, false
	}
	return s.(*Surface), true
}

type placed struct {
	dev led.Device
	pos geom.Point
}

type registration struct {
	t   trigger.UpdateTrigger
	sub *notify.Subscription
}

// Surface is the root of the engine.
type Surface struct {
	id    uuid.UUID
	whole *wholeGroup

	// renderMu is held for a whole group pass.
	renderMu sync.Mutex

	mu         sync.RWMutex
	devices    []placed
	groups     []Group
	seq        uint64
	triggers   []registration
	lastUpdate time.Time
	closed     bool

	updating  notify.Event[trigger.FrameArgs]
	updated   notify.Event[trigger.FrameArgs]
	exception notify.Event[error]
}

// New returns an empty surface and registers it for Lookup until Close.
func New() *Surface {
	s := &Surface{id: uuid.New()}
	s.whole = newWholeGroup(s)
	surfaces.Store(s.id, s)
	return s
}

// ID identifies the surface for Lookup.
func (s *Surface) ID() uuid.UUID { return s.id }

// OnUpdating is called at the start of every frame, before rendering.
func (s *Surface) OnUpdating(fn func(trigger.FrameArgs)) *notify.Subscription {
	return s.updating.Subscribe(fn)
}

// OnUpdated is called after the devices were updated.
func (s *Surface) OnUpdated(fn func(trigger.FrameArgs)) *notify.Subscription {
	return s.updated.Subscribe(fn)
}

// OnException receives *GroupError and *DeviceError values.
func (s *Surface) OnException(fn func(error)) *notify.Subscription {
	return s.exception.Subscribe(fn)
}

// Background is the implicit group covering the whole surface. It renders
// below every attached group and has no brush unless SetBackground is called.
func (s *Surface) Background() Group { return s.whole }

// SetBackground paints the whole surface with b underneath all groups; nil
// removes it.
func (s *Surface) SetBackground(b brush.Brush) { s.whole.SetBrush(b) }

// AttachDevice places d with its origin at pos. A device, or a device ID,
// can only be attached once.
func (s *Surface) AttachDevice(d led.Device, pos geom.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceIndex(d.ID()) >= 0 {
		return false
	}
	s.devices = append(s.devices, placed{dev: d, pos: pos})
	log.Debug().Str("device", d.ID()).Int("leds", len(d.Leds())).Msg("device attached")
	return true
}

// DetachDevice removes d; false if d isn't attached here.
func (s *Surface) DetachDevice(d led.Device) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.deviceIndex(d.ID())
	if i < 0 || s.devices[i].dev != d {
		return false
	}
	s.devices = append(s.devices[:i:i], s.devices[i+1:]...)
	return true
}

// PositionDevice moves an attached device.
func (s *Surface) PositionDevice(d led.Device, pos geom.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.deviceIndex(d.ID())
	if i < 0 {
		return false
	}
	s.devices[i].pos = pos
	return true
}

// Devices returns the attached devices in attach order.
func (s *Surface) Devices() []led.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]led.Device, len(s.devices))
	for i, p := range s.devices {
		out[i] = p.dev
	}
	return out
}

// DevicePosition returns where d is placed.
func (s *Surface) DevicePosition(d led.Device) (geom.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.deviceIndex(d.ID()); i >= 0 {
		return s.devices[i].pos, true
	}
	return geom.Point{}, false
}

// Boundary is the union of all device bounds in surface coordinates.
func (s *Surface) Boundary() geom.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rects := make([]geom.Rectangle, len(s.devices))
	for i, p := range s.devices {
		rects[i] = p.dev.Bounds().Translate(p.pos)
	}
	return geom.Bounds(rects...)
}

// Leds returns every led, device by device in attach order.
func (s *Surface) Leds() []*led.Led {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*led.Led
	for _, p := range s.devices {
		out = append(out, p.dev.Leds()...)
	}
	return out
}

// LedsIn returns the leds with at least minOverlap of their area inside r,
// given in surface coordinates.
func (s *Surface) LedsIn(r geom.Rectangle, minOverlap float64) []*led.Led {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*led.Led
	for _, p := range s.devices {
		out = append(out, p.dev.LedsIn(r.Translate(geom.Pt(-p.pos.X, -p.pos.Y)), minOverlap)...)
	}
	return out
}

// AbsoluteRectangle returns the surface rectangle of l, false if its device
// is not attached here.
func (s *Surface) AbsoluteRectangle(l *led.Led) (geom.Rectangle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.deviceIndex(l.DeviceID())
	if i < 0 {
		return geom.Rectangle{}, false
	}
	return l.Rectangle().Translate(s.devices[i].pos), true
}

// Attach adds g to the surface. It fails if g already belongs to a surface.
// It waits for a render pass in progress to finish.
func (s *Surface) Attach(g Group) bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !g.base().bind(s.id, s.seq+1) {
		return false
	}
	s.seq++
	s.groups = append(s.groups, g)
	return true
}

// Detach removes g; false if g isn't attached here. Like Attach it waits
// for a render pass in progress, so g is never painted once Detach returned.
func (s *Surface) Detach(g Group) bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if !g.base().unbind(s.id) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.groups {
		if x == g {
			s.groups = append(s.groups[:i:i], s.groups[i+1:]...)
			break
		}
	}
	return true
}

// Groups returns the attached groups in render order.
func (s *Surface) Groups() []Group {
	s.mu.RLock()
	out := append([]Group(nil), s.groups...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		zi, si := out[i].base().order()
		zj, sj := out[j].base().order()
		if zi != zj {
			return zi < zj
		}
		return si < sj
	})
	return out
}

// Update produces one frame: render every group, then update every device,
// flushing all leds if flushAll is set.
func (s *Surface) Update(flushAll bool) {
	s.update(nil, trigger.CustomData{trigger.FlushLeds: flushAll})
}

func (s *Surface) update(t trigger.UpdateTrigger, data trigger.CustomData) {
	flush := data.Bool(trigger.FlushLeds, false) || data.Bool(trigger.Heartbeat, false)
	args := trigger.FrameArgs{DeltaTime: s.tick(), Trigger: t, Data: data}

	s.updating.Emit(args)

	var errs []error
	if data.Bool(trigger.Render, true) {
		errs = s.render()
	}
	if data.Bool(trigger.UpdateDevices, true) {
		errs = append(errs, s.updateDevices(flush)...)
	}
	for _, err := range errs {
		s.exception.Emit(err)
	}

	s.updated.Emit(args)
}

// tick returns the time since the previous frame, zero for the first.
func (s *Surface) tick() time.Duration {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var dt time.Duration
	if !s.lastUpdate.IsZero() {
		dt = now.Sub(s.lastUpdate)
	}
	s.lastUpdate = now
	return dt
}

func (s *Surface) render() []error {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	boundary := s.Boundary()
	groups := append([]Group{s.whole}, s.Groups()...)

	var errs []error
	for _, g := range groups {
		if g != Group(s.whole) && !g.base().boundTo(s.id) {
			continue
		}
		if err := s.renderGroup(g, boundary); err != nil {
			log.Warn().Err(err).Msg("group render failed")
			errs = append(errs, err)
		}
	}
	return errs
}

// renderGroup paints one group. Colors are only written once the brush and
// every decorator succeeded, so a failing group leaves its leds untouched.
func (s *Surface) renderGroup(g Group, boundary geom.Rectangle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &GroupError{Group: g.Name(), Err: recovered(r)}
		}
	}()

	g.UpdateEffects()

	b := g.Brush()
	if b == nil || !b.Enabled() {
		return nil
	}

	leds := g.Leds()
	targets := make([]brush.RenderTarget, 0, len(leds))
	rects := make([]geom.Rectangle, 0, len(leds))
	for _, l := range leds {
		if r, ok := s.AbsoluteRectangle(l); ok {
			targets = append(targets, brush.RenderTarget{Led: l, Rectangle: r})
			rects = append(rects, r)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	rect := boundary
	if b.CalculationMode() == brush.Relative {
		bbox := geom.Bounds(rects...)
		offset := geom.Pt(-bbox.Location.X, -bbox.Location.Y)
		for i := range targets {
			targets[i].Rectangle = targets[i].Rectangle.Translate(offset)
		}
		rect = bbox.Translate(offset)
	}

	colors := b.Render(rect, targets)
	for _, d := range g.Decorators() {
		if !d.Enabled() {
			continue
		}
		for i, t := range targets {
			colors[i] = d.ManipulateColor(rect, t, colors[i])
		}
	}

	commit(targets, colors)
	return nil
}

func commit(targets []brush.RenderTarget, colors []render.Color) {
	for i, t := range targets {
		if i < len(colors) {
			t.Led.SetColor(colors[i])
		}
	}
}

func (s *Surface) updateDevices(flush bool) []error {
	var errs []error
	for _, d := range s.Devices() {
		if err := updateDevice(d, flush); err != nil {
			log.Warn().Err(err).Str("device", d.ID()).Msg("device update failed")
			errs = append(errs, &DeviceError{Device: d.ID(), Err: err})
		}
	}
	return errs
}

func updateDevice(d led.Device, flush bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return d.Update(flush)
}

// RegisterUpdateTrigger makes t drive this surface. The trigger is not
// started.
func (s *Surface) RegisterUpdateTrigger(t trigger.UpdateTrigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for _, r := range s.triggers {
		if r.t == t {
			return false
		}
	}
	sub := t.OnUpdate(func(a trigger.Args) { s.update(a.Trigger, a.Data) })
	s.triggers = append(s.triggers, registration{t: t, sub: sub})
	return true
}

// UnregisterUpdateTrigger stops t from driving the surface; the trigger
// keeps running.
func (s *Surface) UnregisterUpdateTrigger(t trigger.UpdateTrigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.triggers {
		if r.t == t {
			r.sub.Cancel()
			s.triggers = append(s.triggers[:i:i], s.triggers[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateTriggers returns the registered triggers.
func (s *Surface) UpdateTriggers() []trigger.UpdateTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trigger.UpdateTrigger, len(s.triggers))
	for i, r := range s.triggers {
		out[i] = r.t
	}
	return out
}

// Close stops and unregisters every trigger, detaches every group and closes
// the devices that implement io.Closer. It returns the combined close errors.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	regs := s.triggers
	s.triggers = nil
	s.mu.Unlock()

	for _, r := range regs {
		r.sub.Cancel()
		r.t.Stop()
	}
	for _, g := range s.Groups() {
		s.Detach(g)
	}

	var err error
	for _, d := range s.Devices() {
		if c, ok := d.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	surfaces.Delete(s.id)
	return err
}

func (s *Surface) deviceIndex(id string) int {
	for i, p := range s.devices {
		if p.dev.ID() == id {
			return i
		}
	}
	return -1
}
