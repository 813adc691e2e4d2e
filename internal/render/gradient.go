package render

import (
	"math"
	"sort"
	"sync"

	"github.com/coreman2200/arcaluminis/internal/decor"
)

// GradientStop is a color at a normalized offset.
type GradientStop struct {
	Offset float64
	Color  Color
}

// Gradient maps a normalized offset to a color.
type Gradient interface {
	ColorAt(offset float64) Color
	// Move shifts the gradient along its axis by offset.
	Move(offset float64)
}

// LinearGradient interpolates between stops. Stops may be given in any
// order; they are sorted on first use after a change. With Wrap set the
// gradient is periodic: the last stop blends back into the first.
//
// Gradient decorators such as brush.MoveGradient attach through the embedded
// Decoratable.
type LinearGradient struct {
	*decor.Decoratable[decor.Decorator]

	mu       sync.Mutex
	stops    []GradientStop
	unsorted bool
	wrap     bool
}

// NewLinearGradient returns a non-wrapping gradient over stops.
func NewLinearGradient(stops ...GradientStop) *LinearGradient {
	g := &LinearGradient{stops: append([]GradientStop(nil), stops...), unsorted: true}
	g.Decoratable = decor.New[decor.Decorator](g)
	return g
}

// NewWrappingGradient returns a gradient with wrapping enabled.
func NewWrappingGradient(stops ...GradientStop) *LinearGradient {
	g := NewLinearGradient(stops...)
	g.wrap = true
	return g
}

func (g *LinearGradient) Wrap() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wrap
}

func (g *LinearGradient) SetWrap(v bool) {
	g.mu.Lock()
	g.wrap = v
	g.mu.Unlock()
}

// AddStop inserts a stop.
func (g *LinearGradient) AddStop(offset float64, c Color) {
	g.mu.Lock()
	g.stops = append(g.stops, GradientStop{Offset: offset, Color: c})
	g.unsorted = true
	g.mu.Unlock()
}

// Stops returns the stops sorted by offset.
func (g *LinearGradient) Stops() []GradientStop {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sort()
	return append([]GradientStop(nil), g.stops...)
}

// ColorAt returns the color at offset. Without wrapping, offsets outside the
// stop range get the nearest stop's color.
func (g *LinearGradient) ColorAt(offset float64) Color {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch len(g.stops) {
	case 0:
		return Transparent
	case 1:
		return g.stops[0].Color
	}
	g.sort()

	var before, after GradientStop
	if g.wrap {
		before, after = g.wrapBounds(offset)
	} else {
		before, after = g.clampBounds(offset)
	}
	return interpolate(before, after, offset)
}

// Move shifts every stop by offset, keeping offsets in [0,1] by wrapping.
func (g *LinearGradient) Move(offset float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.stops {
		o := g.stops[i].Offset + offset
		if o > 1 || o < 0 {
			o -= math.Floor(o)
		}
		g.stops[i].Offset = o
	}
	g.unsorted = true
}

func (g *LinearGradient) sort() {
	if !g.unsorted {
		return
	}
	sort.SliceStable(g.stops, func(i, j int) bool { return g.stops[i].Offset < g.stops[j].Offset })
	g.unsorted = false
}

// clampBounds picks the last stop at or below offset and the first at or
// above it, falling back to the end stops.
func (g *LinearGradient) clampBounds(offset float64) (before, after GradientStop) {
	first, last := g.stops[0], g.stops[len(g.stops)-1]
	if offset <= first.Offset {
		return first, first
	}
	if offset >= last.Offset {
		return last, last
	}
	i := sort.Search(len(g.stops), func(i int) bool { return g.stops[i].Offset >= offset })
	if g.stops[i].Offset == offset {
		return g.stops[i], g.stops[i]
	}
	return g.stops[i-1], g.stops[i]
}

// wrapBounds is clampBounds for a periodic gradient: when offset lies outside
// the stop range a stop is synthesized from the opposite end, shifted by one
// period.
func (g *LinearGradient) wrapBounds(offset float64) (before, after GradientStop) {
	first, last := g.stops[0], g.stops[len(g.stops)-1]
	before = GradientStop{Offset: last.Offset - 1, Color: last.Color}
	after = GradientStop{Offset: first.Offset + 1, Color: first.Color}
	for _, s := range g.stops {
		if s.Offset <= offset {
			before = s
		}
	}
	for i := len(g.stops) - 1; i >= 0; i-- {
		if g.stops[i].Offset >= offset {
			after = g.stops[i]
		}
	}
	return before, after
}

func interpolate(before, after GradientStop, offset float64) Color {
	span := after.Offset - before.Offset
	if span == 0 {
		return before.Color
	}
	return Lerp(before.Color, after.Color, (offset-before.Offset)/span)
}

// RainbowGradient sweeps the hue circle from StartHue to EndHue, in degrees,
// at full saturation and value.
type RainbowGradient struct {
	*decor.Decoratable[decor.Decorator]

	mu         sync.Mutex
	start, end float64
}

// NewRainbowGradient returns a rainbow from startHue to endHue.
func NewRainbowGradient(startHue, endHue float64) *RainbowGradient {
	g := &RainbowGradient{start: startHue, end: endHue}
	g.Decoratable = decor.New[decor.Decorator](g)
	return g
}

// Hues returns the current start and end hue.
func (g *RainbowGradient) Hues() (start, end float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.start, g.end
}

func (g *RainbowGradient) ColorAt(offset float64) Color {
	g.mu.Lock()
	h := g.start + (g.end-g.start)*offset
	g.mu.Unlock()
	return HSV(h, 1, 1)
}

// Move rotates both hues; an offset of 1 is a full turn.
func (g *RainbowGradient) Move(offset float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	span := g.end - g.start
	g.start = math.Mod(g.start+offset*360, 360)
	g.end = g.start + span
}
