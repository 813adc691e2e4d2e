// Package led models addressable lights and the devices that own them.
package led

import (
	"sync"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

// Led is a single addressable light. Leds are created by their device and
// positioned in device-local coordinates.
type Led struct {
	id       string
	deviceID string
	index    int
	rect     geom.Rectangle

	mu    sync.Mutex
	color render.Color
	dirty bool

	// CustomData is free for device providers; the engine never reads it.
	CustomData any
}

func newLed(deviceID, id string, index int, r geom.Rectangle) *Led {
	return &Led{id: id, deviceID: deviceID, index: index, rect: r, color: render.Black}
}

func (l *Led) ID() string       { return l.id }
func (l *Led) DeviceID() string { return l.deviceID }

// Index is the led's position in its device's output stream.
func (l *Led) Index() int { return l.index }

// Rectangle is the device-local area covered by the led.
func (l *Led) Rectangle() geom.Rectangle { return l.rect }

func (l *Led) Color() render.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

// SetColor stores c and marks the led dirty if it changed. It reports
// whether the color changed.
func (l *Led) SetColor(c render.Color) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color == c {
		return false
	}
	l.color = c
	l.dirty = true
	return true
}

// Dirty reports a color change not yet pushed to hardware.
func (l *Led) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// MarkClean is called by the owning device after a hardware write.
func (l *Led) MarkClean() {
	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
}

func (l *Led) String() string { return l.deviceID + "/" + l.id }
