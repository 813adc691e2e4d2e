package brush

import (
	"sync"
	"time"

	"github.com/coreman2200/arcaluminis/internal/decor"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// FlashTiming shapes one flash: fade in over Attack, hold for Sustain, fade
// out over Release, stay dark for Interval.
type FlashTiming struct {
	Attack, Sustain, Release, Interval time.Duration
	// Repetitions is the number of flashes; 0 flashes forever.
	Repetitions int
}

func (t FlashTiming) period() time.Duration {
	return t.Attack + t.Sustain + t.Release + t.Interval
}

// value is the envelope at pos within one period.
func (t FlashTiming) value(pos time.Duration) float64 {
	switch {
	case pos < t.Attack:
		return float64(pos) / float64(t.Attack)
	case pos < t.Attack+t.Sustain:
		return 1
	case pos < t.Attack+t.Sustain+t.Release:
		return 1 - float64(pos-t.Attack-t.Sustain)/float64(t.Release)
	}
	return 0
}

// Flash multiplies the alpha of every color by a repeating envelope. It is
// stepped by the surface frames and removes itself from its brushes once the
// repetitions are used up.
type Flash struct {
	decor.UpdateAware

	timing FlashTiming

	mu      sync.Mutex
	elapsed time.Duration
	value   float64
	done    bool
}

// NewFlash returns a flash stepped by src.
func NewFlash(src decor.FrameSource, timing FlashTiming) *Flash {
	f := &Flash{timing: timing}
	f.Init(src, false, f.step)
	return f
}

// Value is the current envelope value in [0,1].
func (f *Flash) Value() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Flash) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *Flash) step(dt time.Duration) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.elapsed += dt
	period := f.timing.period()
	if period <= 0 {
		f.value = 1
		f.mu.Unlock()
		return
	}
	cycle := int(f.elapsed / period)
	if f.timing.Repetitions > 0 && cycle >= f.timing.Repetitions {
		f.value = 0
		f.done = true
		f.mu.Unlock()
		f.detachAll()
		return
	}
	f.value = f.timing.value(f.elapsed % period)
	f.mu.Unlock()
}

func (f *Flash) detachAll() {
	for _, h := range f.Hosts() {
		if b, ok := h.(Brush); ok {
			b.RemoveDecorator(f)
		}
	}
}

func (f *Flash) ManipulateColor(_ geom.Rectangle, _ RenderTarget, c render.Color) render.Color {
	return c.MultiplyA(f.Value())
}

// ToneMap runs every color through a filmic tone map.
type ToneMap struct {
	decor.Base
	Map render.ToneMap
}

func NewToneMap(m render.ToneMap) *ToneMap { return &ToneMap{Map: m} }

func (t *ToneMap) ManipulateColor(_ geom.Rectangle, _ RenderTarget, c render.Color) render.Color {
	return t.Map.Color(c)
}

// WhiteCap limits the channel sum of every color, so no single led draws
// full white current.
type WhiteCap struct {
	decor.Base
	Cap float64
}

func NewWhiteCap(cap float64) *WhiteCap { return &WhiteCap{Cap: cap} }

func (w *WhiteCap) ManipulateColor(_ geom.Rectangle, _ RenderTarget, c render.Color) render.Color {
	return render.Limiter{WhiteCap: w.Cap}.WhiteCapColor(c)
}

// MoveGradient scrolls the gradients it decorates by Speed offsets per
// second, once per frame however many gradients share it.
type MoveGradient struct {
	decor.UpdateAware

	mu    sync.Mutex
	speed float64
}

func NewMoveGradient(src decor.FrameSource, speed float64) *MoveGradient {
	m := &MoveGradient{speed: speed}
	m.Init(src, false, m.step)
	return m
}

func (m *MoveGradient) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *MoveGradient) SetSpeed(v float64) {
	m.mu.Lock()
	m.speed = v
	m.mu.Unlock()
}

func (m *MoveGradient) step(dt time.Duration) {
	d := m.Speed() * dt.Seconds()
	if d == 0 {
		return
	}
	for _, h := range m.Hosts() {
		if g, ok := h.(render.Gradient); ok {
			g.Move(d)
		}
	}
}
