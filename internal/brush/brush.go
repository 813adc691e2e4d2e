// Package brush produces colors for render targets. Every brush runs the same
// pipeline per frame: step its effects, compute a color per target, pass it
// through the enabled decorators (highest order first), then apply brightness
// and opacity.
package brush

import (
	"sync"

	"github.com/coreman2200/arcaluminis/internal/decor"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// CalculationMode selects the coordinate space a brush renders in.
type CalculationMode int

const (
	// Relative renders against the group's own bounding box moved to the origin.
	Relative CalculationMode = iota
	// Absolute renders against the whole-surface boundary.
	Absolute
)

func (m CalculationMode) String() string {
	if m == Absolute {
		return "absolute"
	}
	return "relative"
}

// ParseMode maps "absolute" to Absolute and anything else to Relative.
func ParseMode(s string) CalculationMode {
	if s == "absolute" {
		return Absolute
	}
	return Relative
}

// RenderTarget is a led together with the rectangle it occupies in the
// brush's coordinate space.
type RenderTarget struct {
	Led       *led.Led
	Rectangle geom.Rectangle
}

// Point is the sampling point of the target, its center.
func (t RenderTarget) Point() geom.Point { return t.Rectangle.Center() }

// Rendered pairs a target with the color produced for it.
type Rendered struct {
	Target RenderTarget
	Color  render.Color
}

// Decorator rewrites single colors after the brush produced them.
type Decorator interface {
	decor.Decorator
	ManipulateColor(rect geom.Rectangle, target RenderTarget, c render.Color) render.Color
}

// Brush is a color-producing strategy.
type Brush interface {
	Enabled() bool
	SetEnabled(bool)
	CalculationMode() CalculationMode
	SetCalculationMode(CalculationMode)
	Brightness() float64
	SetBrightness(float64)
	Opacity() float64
	SetOpacity(float64)

	// Render returns one color per target, in order.
	Render(rect geom.Rectangle, targets []RenderTarget) []render.Color
	// RenderedTargets returns what the last Render produced.
	RenderedTargets() []Rendered

	AddDecorator(Decorator) bool
	RemoveDecorator(Decorator) bool
	RemoveAllDecorators()
	Decorators() []Decorator

	AddEffect(effect.Effect[Brush]) bool
	RemoveEffect(effect.Effect[Brush]) bool
	RemoveAllEffects()
	HasEffect(effect.Effect[Brush]) bool
}

// Source computes the undecorated colors of a frame.
type Source func(rect geom.Rectangle, targets []RenderTarget) []render.Color

// PerTarget lifts a per-target color function into a Source.
func PerTarget(fn func(rect geom.Rectangle, t RenderTarget) render.Color) Source {
	return func(rect geom.Rectangle, targets []RenderTarget) []render.Color {
		out := make([]render.Color, len(targets))
		for i, t := range targets {
			out[i] = fn(rect, t)
		}
		return out
	}
}

// Base implements Brush around a Source. Concrete brushes embed *Base and
// create it with NewBase so hooks receive the concrete brush.
type Base struct {
	*decor.Decoratable[Decorator]
	*effect.Target[Brush]

	source Source

	mu         sync.RWMutex
	disabled   bool
	mode       CalculationMode
	brightness float64
	opacity    float64
	rendered   []Rendered
}

// NewBase returns an enabled, Relative brush core for self.
func NewBase(self Brush, src Source) *Base {
	return &Base{
		Decoratable: decor.New[Decorator](self),
		Target:      effect.NewTarget(self),
		source:      src,
		brightness:  1,
		opacity:     1,
	}
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

func (b *Base) CalculationMode() CalculationMode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}

func (b *Base) SetCalculationMode(m CalculationMode) {
	b.mu.Lock()
	b.mode = m
	b.mu.Unlock()
}

// Brightness scales the HSV value of every color; 1 leaves colors alone.
func (b *Base) Brightness() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.brightness
}

func (b *Base) SetBrightness(v float64) {
	b.mu.Lock()
	b.brightness = clamp(v)
	b.mu.Unlock()
}

// Opacity scales the alpha of every color.
func (b *Base) Opacity() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opacity
}

func (b *Base) SetOpacity(v float64) {
	b.mu.Lock()
	b.opacity = clamp(v)
	b.mu.Unlock()
}

func (b *Base) Render(rect geom.Rectangle, targets []RenderTarget) []render.Color {
	b.UpdateEffects()

	out := b.source(rect, targets)

	var active []Decorator
	for _, d := range b.Decorators() {
		if d.Enabled() {
			active = append(active, d)
		}
	}
	brightness, opacity := b.Brightness(), b.Opacity()

	rendered := make([]Rendered, len(targets))
	for i, t := range targets {
		c := out[i]
		for _, d := range active {
			c = d.ManipulateColor(rect, t, c)
		}
		if brightness != 1 {
			c = c.MultiplyValue(brightness)
		}
		if opacity != 1 {
			c = c.MultiplyA(opacity)
		}
		out[i] = c
		rendered[i] = Rendered{Target: t, Color: c}
	}

	b.mu.Lock()
	b.rendered = rendered
	b.mu.Unlock()
	return out
}

func (b *Base) RenderedTargets() []Rendered {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Rendered(nil), b.rendered...)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
