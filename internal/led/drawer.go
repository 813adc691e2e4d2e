package led

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// RefreshRate is the NRZ bit rate base the SPI clock is derived from.
const RefreshRate physic.Frequency = 800

// Drawer feeds frames to any periph display.Drawer as a one-row image, one
// pixel per led.
type Drawer struct {
	mu     sync.Mutex
	d      display.Drawer
	closer io.Closer
	img    *image.NRGBA
}

// NewDrawer wraps d. closer, if not nil, is closed after d is halted.
func NewDrawer(d display.Drawer, closer io.Closer) *Drawer {
	return &Drawer{d: d, closer: closer}
}

func (w *Drawer) String() string { return fmt.Sprint(w.d) }

func (w *Drawer) Write(rgb []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(rgb) / 3
	if w.img == nil || w.img.Rect.Dx() != n {
		w.img = image.NewNRGBA(image.Rect(0, 0, n, 1))
	}
	for x := 0; x < n; x++ {
		w.img.SetNRGBA(x, 0, color.NRGBA{R: rgb[3*x], G: rgb[3*x+1], B: rgb[3*x+2], A: 255})
	}
	return w.d.Draw(w.d.Bounds(), w.img, image.Point{})
}

func (w *Drawer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.d.Halt()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewNRZ opens the SPI port (empty for the first one) and drives numPixels
// WS281x leds on it.
func NewNRZ(port string, numPixels int) (*Drawer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", port, err)
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: numPixels,
		Channels:  3,
		Freq:      ((RefreshRate * 3) + 100) * physic.KiloHertz,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	if err := d.Halt(); err != nil {
		log.Warn().Err(err).Msg("nrzled initial halt")
	}
	return NewDrawer(d, p), nil
}

// NewConsole prints frames as colored blocks on the terminal.
func NewConsole(numPixels int) *Drawer {
	return NewDrawer(screen.New(numPixels), nil)
}

// Open returns the driver named kind: "spi" for NRZ over SPI, "console",
// or "sim". A failing "spi" falls back to the console, the way bench setups
// without a SPI port are run.
func Open(kind, port string, numPixels int) (Driver, error) {
	switch kind {
	case "", "sim":
		return NewSim(1), nil
	case "console":
		return NewConsole(numPixels), nil
	case "spi":
		d, err := NewNRZ(port, numPixels)
		if err != nil {
			log.Warn().Err(err).Msg("no SPI port, printing at the console")
			return NewConsole(numPixels), nil
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver %q", kind)
}
