package app

import (
	"sync"
	"time"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/decor"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// FadeIn ramps the alpha of its hosts from 0 to 1 over a duration, then
// removes itself. Used to soft-start the installation.
type FadeIn struct {
	decor.UpdateAware
	d time.Duration

	mu      sync.Mutex
	elapsed time.Duration
}

func NewFadeIn(src decor.FrameSource, d time.Duration) *FadeIn {
	f := &FadeIn{d: d}
	f.Init(src, true, f.step)
	return f
}

// Value is the current alpha factor.
func (f *FadeIn) Value() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.d <= 0 || f.elapsed >= f.d {
		return 1
	}
	return float64(f.elapsed) / float64(f.d)
}

func (f *FadeIn) step(dt time.Duration) {
	f.mu.Lock()
	f.elapsed += dt
	done := f.elapsed >= f.d
	f.mu.Unlock()
	if !done {
		return
	}
	for _, h := range f.Hosts() {
		if d, ok := h.(interface{ RemoveDecorator(brush.Decorator) bool }); ok {
			d.RemoveDecorator(f)
		}
	}
}

func (f *FadeIn) ManipulateColor(_ geom.Rectangle, _ brush.RenderTarget, c render.Color) render.Color {
	return c.MultiplyA(f.Value())
}
