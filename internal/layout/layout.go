// Package layout places the leds of a panel installation. Panels of
// Dim.X by Dim.Y leds are wired one after another; Dim.Z panels are laid
// out left to right on the surface, separated by the panel gap.
package layout

import (
	"errors"
	"fmt"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
)

var ErrEmpty = errors.New("layout: no leds")

type Dim struct{ X, Y, Z int }

// Serpentine describes how the data line snakes through the panels.
type Serpentine struct {
	XFlipEveryRow   bool
	YFlipEveryPanel bool
}

type Layout struct {
	Dim        Dim
	Order      Serpentine
	PanelGapMM float64
	PitchMM    float64
}

// Index maps x,y,z -> linear LED index (0..N-1)
func (l Layout) Index(x, y, z int) int {
	yy := y
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	if l.Order.YFlipEveryPanel && (z%2 == 1) {
		yy = l.Dim.Y - 1 - y
	}
	perPanel := l.Dim.X * l.Dim.Y
	return z*perPanel + yy*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y * l.Dim.Z
}

func (l Layout) pitch() float64 {
	if l.PitchMM <= 0 {
		return 1
	}
	return l.PitchMM
}

// Rect is the rectangle of the led at x,y on panel z, in millimeters.
func (l Layout) Rect(x, y, z int) geom.Rectangle {
	p := l.pitch()
	panel := float64(l.Dim.X)*p + l.PanelGapMM
	return geom.Rect(float64(z)*panel+float64(x)*p, float64(y)*p, p, p)
}

// ID is the led id used for x,y on panel z.
func ID(x, y, z int) string { return fmt.Sprintf("%d,%d,%d", x, y, z) }

// Build adds the leds of the layout to c in wiring order.
func (l Layout) Build(c *led.Chain) error {
	n := l.Count()
	if n <= 0 {
		return ErrEmpty
	}
	type cell struct{ x, y, z int }
	order := make([]cell, n)
	for z := 0; z < l.Dim.Z; z++ {
		for y := 0; y < l.Dim.Y; y++ {
			for x := 0; x < l.Dim.X; x++ {
				order[l.Index(x, y, z)] = cell{x, y, z}
			}
		}
	}
	for _, p := range order {
		if _, err := c.AddLed(ID(p.x, p.y, p.z), l.Rect(p.x, p.y, p.z)); err != nil {
			return err
		}
	}
	return nil
}
