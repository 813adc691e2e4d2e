// Package calib provides wiring checks for a led installation: effects that
// light the leds of a group in a fixed order so a person can verify the
// layout, the chain order and the color order of every device.
package calib

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/surface"
)

type Kind string

const (
	// IndexSweep lights one led at a time in group order.
	IndexSweep Kind = "index_sweep"
	// RGBChannels lights every led red, then green, then blue.
	RGBChannels Kind = "rgb_channels"
	// Rows lights one row at a time, top to bottom.
	Rows Kind = "rows"
)

// Kinds lists the sweeps in a stable order.
func Kinds() []Kind { return []Kind{IndexSweep, RGBChannels, Rows} }

// DefaultInterval is the time each step stays lit.
const DefaultInterval = 250 * time.Millisecond

// Plan configures a Sweep. Zero Interval means DefaultInterval and a zero
// Color means white.
type Plan struct {
	Kind     Kind
	Interval time.Duration
	Color    render.Color
}

// Sweep is a group effect running one calibration plan. While attached it
// replaces the group's brush; it finishes after the last step and the
// previous brush comes back when it is detached.
type Sweep struct {
	effect.Base
	plan  Plan
	brush *brush.Func

	mu    sync.Mutex
	step  int
	steps int
	acc   time.Duration
	index map[*led.Led]int // step that lights each led
	prev  brush.Brush
}

// NewSweep validates plan and returns its effect.
func NewSweep(plan Plan) (*Sweep, error) {
	switch plan.Kind {
	case IndexSweep, RGBChannels, Rows:
	default:
		return nil, fmt.Errorf("calib: unknown sweep %q", plan.Kind)
	}
	if plan.Interval <= 0 {
		plan.Interval = DefaultInterval
	}
	if plan.Color == (render.Color{}) {
		plan.Color = render.White
	}
	s := &Sweep{plan: plan}
	s.brush = brush.NewFunc(s.colorOf)
	return s, nil
}

// Step returns the current step and the number of steps.
func (s *Sweep) Step() (step, steps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step, s.steps
}

func (s *Sweep) OnAttach(g surface.Group) {
	leds := g.Leds()

	s.mu.Lock()
	s.step, s.acc = 0, 0
	s.prev = g.Brush()
	switch s.plan.Kind {
	case IndexSweep:
		s.index = make(map[*led.Led]int, len(leds))
		for i, l := range leds {
			s.index[l] = i
		}
		s.steps = len(leds)
	case RGBChannels:
		s.index = nil
		s.steps = 3
	case Rows:
		s.index, s.steps = rows(g.Surface(), leds)
	}
	if s.steps == 0 {
		s.Finish()
	}
	s.mu.Unlock()

	g.SetBrush(s.brush)
}

func (s *Sweep) OnDetach(g surface.Group) {
	s.mu.Lock()
	prev := s.prev
	s.prev = nil
	s.mu.Unlock()
	g.SetBrush(prev)
}

func (s *Sweep) Update(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc += dt
	for s.acc >= s.plan.Interval {
		s.acc -= s.plan.Interval
		s.step++
	}
	if s.step >= s.steps {
		s.Finish()
	}
}

func (s *Sweep) colorOf(_ geom.Rectangle, t brush.RenderTarget) render.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step >= s.steps {
		return render.Black
	}
	if s.plan.Kind == RGBChannels {
		return [...]render.Color{render.Red, render.Green, render.Blue}[s.step]
	}
	if i, ok := s.index[t.Led]; ok && i == s.step {
		return s.plan.Color
	}
	return render.Black
}

// rows groups leds by the vertical center of their surface rectangle.
func rows(s *surface.Surface, leds []*led.Led) (map[*led.Led]int, int) {
	ys := make(map[*led.Led]float64, len(leds))
	var distinct []float64
	for _, l := range leds {
		r := l.Rectangle()
		if s != nil {
			if abs, ok := s.AbsoluteRectangle(l); ok {
				r = abs
			}
		}
		y := math.Round(r.Center().Y*1e3) / 1e3
		ys[l] = y
		i := sort.SearchFloat64s(distinct, y)
		if i == len(distinct) || distinct[i] != y {
			distinct = append(distinct, 0)
			copy(distinct[i+1:], distinct[i:])
			distinct[i] = y
		}
	}
	index := make(map[*led.Led]int, len(leds))
	for l, y := range ys {
		index[l] = sort.SearchFloat64s(distinct, y)
	}
	return index, len(distinct)
}
