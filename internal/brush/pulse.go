package brush

import (
	"math"
	"sync"
	"time"

	"github.com/coreman2200/arcaluminis/internal/effect"
)

// Pulse oscillates a brush's opacity between Min and the opacity it had when
// attached. With a Duration it finishes after that long and restores the
// opacity.
type Pulse struct {
	effect.Base

	Period   time.Duration
	Duration time.Duration
	Min      float64

	mu      sync.Mutex
	brush   Brush
	base    float64
	elapsed time.Duration
}

func NewPulse(period, duration time.Duration) *Pulse {
	return &Pulse{Period: period, Duration: duration}
}

func (p *Pulse) OnAttach(b Brush) {
	p.mu.Lock()
	p.brush, p.base, p.elapsed = b, b.Opacity(), 0
	p.mu.Unlock()
}

func (p *Pulse) OnDetach(b Brush) {
	p.mu.Lock()
	base := p.base
	p.brush = nil
	p.mu.Unlock()
	b.SetOpacity(base)
}

func (p *Pulse) Update(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.brush == nil {
		return
	}
	p.elapsed += dt
	if p.Duration > 0 && p.elapsed >= p.Duration {
		p.brush.SetOpacity(p.base)
		p.Finish()
		return
	}
	if p.Period <= 0 {
		return
	}
	// cosine starting at full opacity
	phase := 2 * math.Pi * float64(p.elapsed) / float64(p.Period)
	w := 0.5 + 0.5*math.Cos(phase)
	p.brush.SetOpacity(p.Min + (p.base-p.Min)*w)
}
