package led

import (
	"errors"

	"github.com/coreman2200/arcaluminis/internal/geom"
)

var (
	ErrDuplicateLed = errors.New("led id already in use")
	ErrClosed       = errors.New("device closed")
)

// Device owns a fixed set of leds and pushes their colors to hardware.
// All geometry is device-local.
type Device interface {
	ID() string
	Leds() []*Led
	Led(id string) *Led
	// LedAt returns the led whose rectangle contains p, or nil.
	LedAt(p geom.Point) *Led
	// LedsIn returns the leds covering at least minOverlap of their own area
	// inside r.
	LedsIn(r geom.Rectangle, minOverlap float64) []*Led
	// Bounds is the union of every led rectangle.
	Bounds() geom.Rectangle
	// Update pushes dirty leds, or every led when flushAll is set.
	Update(flushAll bool) error
}

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}
