package brush

import (
	"sync"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// Crossfade mixes two brushes: alpha 0 shows From only, 1 shows To only.
// Both brushes are rendered every frame so their effects keep running.
type Crossfade struct {
	*Base

	mu       sync.RWMutex
	from, to Brush
	alpha    float64
}

func NewCrossfade(from, to Brush) *Crossfade {
	c := &Crossfade{from: from, to: to}
	c.Base = NewBase(c, c.mix)
	return c
}

func (c *Crossfade) Alpha() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alpha
}

func (c *Crossfade) SetAlpha(a float64) {
	c.mu.Lock()
	c.alpha = clamp(a)
	c.mu.Unlock()
}

func (c *Crossfade) Brushes() (from, to Brush) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.from, c.to
}

func (c *Crossfade) mix(rect geom.Rectangle, targets []RenderTarget) []render.Color {
	from, to := c.Brushes()
	out := make([]render.Color, len(targets))
	fromC, toC := c.side(from, rect, targets), c.side(to, rect, targets)
	render.Mix(out, fromC, toC, c.Alpha())
	return out
}

// side renders b, or transparent when b is missing or disabled.
func (c *Crossfade) side(b Brush, rect geom.Rectangle, targets []RenderTarget) []render.Color {
	if b != nil && b.Enabled() {
		return b.Render(rect, targets)
	}
	return make([]render.Color, len(targets))
}
