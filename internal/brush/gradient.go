package brush

import (
	"math"
	"sync"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// gradientBrush holds the gradient shared by the gradient brushes.
type gradientBrush struct {
	gmu      sync.RWMutex
	gradient render.Gradient
}

func (g *gradientBrush) Gradient() render.Gradient {
	g.gmu.RLock()
	defer g.gmu.RUnlock()
	return g.gradient
}

func (g *gradientBrush) SetGradient(gr render.Gradient) {
	g.gmu.Lock()
	g.gradient = gr
	g.gmu.Unlock()
}

func (g *gradientBrush) at(offset float64) render.Color {
	gr := g.Gradient()
	if gr == nil {
		return render.Transparent
	}
	return gr.ColorAt(offset)
}

// scale maps a point given in [0,1] rectangle units into rect.
func scale(rect geom.Rectangle, p geom.Point) geom.Point {
	return geom.Pt(rect.Location.X+p.X*rect.Size.Width, rect.Location.Y+p.Y*rect.Size.Height)
}

// Linear projects each target onto the line from Start to End, both in
// [0,1] rectangle units.
type Linear struct {
	*Base
	gradientBrush

	mu         sync.RWMutex
	start, end geom.Point
}

// NewLinear returns a left-to-right gradient brush.
func NewLinear(g render.Gradient) *Linear {
	l := &Linear{start: geom.Pt(0, 0.5), end: geom.Pt(1, 0.5)}
	l.gradient = g
	l.Base = NewBase(l, PerTarget(l.colorAt))
	return l
}

// SetPoints changes the gradient axis.
func (l *Linear) SetPoints(start, end geom.Point) {
	l.mu.Lock()
	l.start, l.end = start, end
	l.mu.Unlock()
}

func (l *Linear) Points() (start, end geom.Point) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.start, l.end
}

func (l *Linear) colorAt(rect geom.Rectangle, t RenderTarget) render.Color {
	s, e := l.Points()
	start, end := scale(rect, s), scale(rect, e)
	axis := end.Sub(start)
	lenSq := axis.X*axis.X + axis.Y*axis.Y
	if lenSq == 0 {
		return l.at(0)
	}
	v := t.Point().Sub(start)
	return l.at((v.X*axis.X + v.Y*axis.Y) / lenSq)
}

// Radial maps the distance from Center, in [0,1] rectangle units, divided
// by the distance to the farthest corner.
type Radial struct {
	*Base
	gradientBrush

	mu     sync.RWMutex
	center geom.Point
}

func NewRadial(g render.Gradient) *Radial {
	r := &Radial{center: geom.Pt(0.5, 0.5)}
	r.gradient = g
	r.Base = NewBase(r, PerTarget(r.colorAt))
	return r
}

func (r *Radial) SetCenter(c geom.Point) {
	r.mu.Lock()
	r.center = c
	r.mu.Unlock()
}

func (r *Radial) Center() geom.Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.center
}

func (r *Radial) colorAt(rect geom.Rectangle, t RenderTarget) render.Color {
	c := scale(rect, r.Center())
	var max float64
	for _, p := range rect.Corners() {
		max = math.Max(max, c.Distance(p))
	}
	if max == 0 {
		return r.at(0)
	}
	return r.at(c.Distance(t.Point()) / max)
}

// Conical maps the angle around Center, measured from Origin radians and
// wrapped to [0,1).
type Conical struct {
	*Base
	gradientBrush

	mu     sync.RWMutex
	center geom.Point
	origin float64
}

func NewConical(g render.Gradient) *Conical {
	c := &Conical{center: geom.Pt(0.5, 0.5)}
	c.gradient = g
	c.Base = NewBase(c, PerTarget(c.colorAt))
	return c
}

func (c *Conical) SetCenter(p geom.Point) {
	c.mu.Lock()
	c.center = p
	c.mu.Unlock()
}

// SetOrigin sets the angle, in radians, that maps to offset 0.
func (c *Conical) SetOrigin(rad float64) {
	c.mu.Lock()
	c.origin = rad
	c.mu.Unlock()
}

func (c *Conical) colorAt(rect geom.Rectangle, t RenderTarget) render.Color {
	c.mu.RLock()
	center, origin := c.center, c.origin
	c.mu.RUnlock()

	d := t.Point().Sub(scale(rect, center))
	angle := math.Mod(math.Atan2(d.Y, d.X)-origin, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return c.at(angle / (2 * math.Pi))
}
