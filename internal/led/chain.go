package led

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// Chain is a device made of leds on a single data line: the order leds are
// added in is the order they are written to the Driver.
type Chain struct {
	id string

	mu      sync.Mutex
	leds    []*Led
	byID    map[string]*Led
	drv     Driver
	order   ColorOrder
	limiter *render.Limiter
	frame   []render.Color
	out     []byte
	closed  bool
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithColorOrder sets the wire channel order; RGB by default.
func WithColorOrder(o ColorOrder) ChainOption {
	return func(c *Chain) { c.order = o }
}

// WithLimiter runs every frame through l before it is written.
func WithLimiter(l render.Limiter) ChainOption {
	return func(c *Chain) { c.limiter = &l }
}

// NewChain returns an empty chain writing to drv.
func NewChain(id string, drv Driver, opts ...ChainOption) *Chain {
	c := &Chain{id: id, byID: map[string]*Led{}, drv: drv, order: RGB}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Chain) ID() string { return c.id }

// AddLed appends a led covering r.
func (c *Chain) AddLed(id string, r geom.Rectangle) (*Led, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; ok {
		return nil, fmt.Errorf("%s: %w: %s", c.id, ErrDuplicateLed, id)
	}
	l := newLed(c.id, id, len(c.leds), r)
	c.leds = append(c.leds, l)
	c.byID[id] = l
	return l, nil
}

// RemoveLed drops the led; the following leds move up one slot.
func (c *Chain) RemoveLed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.byID[id]
	if !ok {
		return false
	}
	delete(c.byID, id)
	c.leds = append(c.leds[:l.index:l.index], c.leds[l.index+1:]...)
	for i := l.index; i < len(c.leds); i++ {
		c.leds[i].index = i
	}
	return true
}

func (c *Chain) Leds() []*Led {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Led(nil), c.leds...)
}

func (c *Chain) Led(id string) *Led {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byID[id]
}

func (c *Chain) LedAt(p geom.Point) *Led {
	for _, l := range c.Leds() {
		if l.rect.Contains(p) {
			return l
		}
	}
	return nil
}

func (c *Chain) LedsIn(r geom.Rectangle, minOverlap float64) []*Led {
	var out []*Led
	for _, l := range c.Leds() {
		if l.rect.Overlap(r) >= minOverlap && !l.rect.Intersect(r).Empty() {
			out = append(out, l)
		}
	}
	return out
}

func (c *Chain) Bounds() geom.Rectangle {
	leds := c.Leds()
	rects := make([]geom.Rectangle, len(leds))
	for i, l := range leds {
		rects[i] = l.rect
	}
	return geom.Bounds(rects...)
}

// SetLimiter replaces the power limiter; nil disables it.
func (c *Chain) SetLimiter(l *render.Limiter) {
	c.mu.Lock()
	c.limiter = l
	c.mu.Unlock()
}

// Update writes the whole chain when any led is dirty or flushAll is set,
// then marks every led clean.
func (c *Chain) Update(flushAll bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	dirty := flushAll
	for _, l := range c.leds {
		if l.Dirty() {
			dirty = true
			break
		}
	}
	if !dirty || len(c.leds) == 0 {
		return nil
	}

	if cap(c.frame) < len(c.leds) {
		c.frame = make([]render.Color, len(c.leds))
		c.out = make([]byte, 3*len(c.leds))
	}
	c.frame, c.out = c.frame[:len(c.leds)], c.out[:3*len(c.leds)]
	for i, l := range c.leds {
		col := l.Color()
		c.frame[i] = col.Scale(col.A).WithA(1)
	}
	if c.limiter != nil {
		if s := c.limiter.Apply(c.frame); s < 1 {
			log.Debug().Str("device", c.id).Float64("scale", s).Msg("power limited")
		}
	}
	for i, col := range c.frame {
		r, g, b := col.Bytes()
		c.order.Encode(c.out[3*i:], r, g, b)
	}

	if err := c.drv.Write(c.out); err != nil {
		return fmt.Errorf("%s: write: %w", c.id, err)
	}
	for _, l := range c.leds {
		l.MarkClean()
	}
	return nil
}

// Close closes the driver. Further updates fail with ErrClosed.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.drv.Close()
}
