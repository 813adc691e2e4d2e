package surface

import (
	"sync"

	"github.com/google/uuid"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/decor"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
)

// Group is a set of leds painted by one brush. Groups render in ascending
// ZIndex; a later group overwrites the leds it shares with earlier ones.
//
// Group decorators are brush decorators applied to the group's colors
// after its brush.
type Group interface {
	Name() string
	Brush() brush.Brush
	SetBrush(brush.Brush)
	ZIndex() int
	SetZIndex(int)
	// Leds returns a snapshot of the members.
	Leds() []*led.Led
	// Surface is the surface the group is attached to, or nil.
	Surface() *Surface

	AddDecorator(brush.Decorator) bool
	RemoveDecorator(brush.Decorator) bool
	RemoveAllDecorators()
	Decorators() []brush.Decorator

	AddEffect(effect.Effect[Group]) bool
	RemoveEffect(effect.Effect[Group]) bool
	RemoveAllEffects()
	HasEffect(effect.Effect[Group]) bool
	UpdateEffects()

	base() *GroupBase
}

// GroupBase carries what every group has. Embed it and create it with
// NewGroupBase.
type GroupBase struct {
	*decor.Decoratable[brush.Decorator]
	*effect.Target[Group]

	name string

	mu      sync.RWMutex
	brush   brush.Brush
	z       int
	surface uuid.UUID
	seq     uint64
}

// NewGroupBase returns an unattached base without brush whose effect and
// decorator hooks receive self.
func NewGroupBase(self Group, name string) *GroupBase {
	return &GroupBase{
		Decoratable: decor.New[brush.Decorator](self),
		Target:      effect.NewTarget(self),
		name:        name,
	}
}

func (g *GroupBase) base() *GroupBase { return g }

func (g *GroupBase) Name() string { return g.name }

func (g *GroupBase) Brush() brush.Brush {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.brush
}

func (g *GroupBase) SetBrush(b brush.Brush) {
	g.mu.Lock()
	g.brush = b
	g.mu.Unlock()
}

func (g *GroupBase) ZIndex() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.z
}

func (g *GroupBase) SetZIndex(z int) {
	g.mu.Lock()
	g.z = z
	g.mu.Unlock()
}

func (g *GroupBase) Surface() *Surface {
	g.mu.RLock()
	id := g.surface
	g.mu.RUnlock()
	if id == uuid.Nil {
		return nil
	}
	s, _ := Lookup(id)
	return s
}

// bind claims the group for surface id; it fails if another surface has it.
func (g *GroupBase) bind(id uuid.UUID, seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.surface != uuid.Nil {
		return false
	}
	g.surface, g.seq = id, seq
	return true
}

func (g *GroupBase) unbind(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.surface != id {
		return false
	}
	g.surface = uuid.Nil
	return true
}

func (g *GroupBase) boundTo(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.surface == id
}

func (g *GroupBase) order() (z int, seq uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.z, g.seq
}

// ListGroup is a group with an explicit member list.
type ListGroup struct {
	*GroupBase

	mu   sync.RWMutex
	leds []*led.Led
}

// NewListGroup returns a group over leds; duplicates are dropped.
func NewListGroup(name string, leds ...*led.Led) *ListGroup {
	g := &ListGroup{}
	g.GroupBase = NewGroupBase(g, name)
	g.AddLeds(leds...)
	return g
}

// AddLeds appends leds that are not members yet.
func (g *ListGroup) AddLeds(leds ...*led.Led) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range leds {
		if l != nil && g.indexOf(l) < 0 {
			g.leds = append(g.leds, l)
		}
	}
}

func (g *ListGroup) RemoveLeds(leds ...*led.Led) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range leds {
		if i := g.indexOf(l); i >= 0 {
			g.leds = append(g.leds[:i:i], g.leds[i+1:]...)
		}
	}
}

func (g *ListGroup) ContainsLed(l *led.Led) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.indexOf(l) >= 0
}

// MergeLeds adds every member of other.
func (g *ListGroup) MergeLeds(other Group) {
	g.AddLeds(other.Leds()...)
}

func (g *ListGroup) Leds() []*led.Led {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*led.Led(nil), g.leds...)
}

func (g *ListGroup) indexOf(l *led.Led) int {
	for i, x := range g.leds {
		if x == l {
			return i
		}
	}
	return -1
}

// RectangleGroup holds the leds of its surface lying in a rectangle. It is
// resolved on every call, so it follows devices being attached and moved.
type RectangleGroup struct {
	*GroupBase

	mu         sync.RWMutex
	rect       geom.Rectangle
	minOverlap float64
}

// NewRectangleGroup selects the leds with at least minOverlap of their area
// inside r. A minOverlap of 0 selects any led touching r.
func NewRectangleGroup(name string, r geom.Rectangle, minOverlap float64) *RectangleGroup {
	g := &RectangleGroup{rect: r, minOverlap: minOverlap}
	g.GroupBase = NewGroupBase(g, name)
	return g
}

func (g *RectangleGroup) Rectangle() geom.Rectangle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rect
}

func (g *RectangleGroup) SetRectangle(r geom.Rectangle) {
	g.mu.Lock()
	g.rect = r
	g.mu.Unlock()
}

func (g *RectangleGroup) Leds() []*led.Led {
	s := g.Surface()
	if s == nil {
		return nil
	}
	g.mu.RLock()
	r, min := g.rect, g.minOverlap
	g.mu.RUnlock()
	return s.LedsIn(r, min)
}

// wholeGroup is the implicit group covering every led of a surface. It has
// no brush until SetBackground is called.
type wholeGroup struct {
	*GroupBase
	s *Surface
}

func newWholeGroup(s *Surface) *wholeGroup {
	g := &wholeGroup{s: s}
	g.GroupBase = NewGroupBase(g, "surface")
	return g
}

func (g *wholeGroup) Leds() []*led.Led   { return g.s.Leds() }
func (g *wholeGroup) Surface() *Surface { return g.s }
