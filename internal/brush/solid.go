package brush

import (
	"sync"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// Solid paints every target the same color.
type Solid struct {
	*Base

	mu    sync.RWMutex
	color render.Color
}

func NewSolid(c render.Color) *Solid {
	s := &Solid{color: c}
	s.Base = NewBase(s, PerTarget(func(geom.Rectangle, RenderTarget) render.Color { return s.Color() }))
	return s
}

func (s *Solid) Color() render.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

func (s *Solid) SetColor(c render.Color) {
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
}

// Func paints each target with a caller supplied function.
type Func struct {
	*Base
}

func NewFunc(fn func(rect geom.Rectangle, t RenderTarget) render.Color) *Func {
	f := &Func{}
	f.Base = NewBase(f, PerTarget(fn))
	return f
}
