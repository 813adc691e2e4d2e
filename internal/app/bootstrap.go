// Package app assembles a running installation from its configuration:
// devices and layouts, groups and brushes, the frame trigger and the
// preview server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/calib"
	"github.com/coreman2200/arcaluminis/internal/config"
	"github.com/coreman2200/arcaluminis/internal/decor"
	diag "github.com/coreman2200/arcaluminis/internal/diagnostics"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/layout"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/sequence"
	"github.com/coreman2200/arcaluminis/internal/surface"
	"github.com/coreman2200/arcaluminis/internal/trigger"
	"github.com/coreman2200/arcaluminis/internal/ws"
)

type Core struct {
	Config      *config.Config
	Surface     *surface.Surface
	Registry    *brush.Registry
	Diagnostics *diag.Recorder
	Devices     []*led.Chain
	Groups      []surface.Group
	Trigger     trigger.UpdateTrigger
	Preview     *ws.Server

	calib *surface.ListGroup
}

// InitCore builds everything cfg describes. Nothing runs until Run.
func InitCore(cfg *config.Config) (_ *Core, err error) {
	codec, err := ws.CodecByName(cfg.Preview.Codec)
	if err != nil {
		return nil, err
	}

	c := &Core{
		Config:      cfg,
		Surface:     surface.New(),
		Registry:    brush.Builtins(),
		Diagnostics: diag.NewRecorder(0),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
		}
	}()
	c.Diagnostics.Watch(c.Surface)

	for _, d := range cfg.Devices {
		chain, err := openDevice(d, cfg.Power)
		if err != nil {
			return nil, err
		}
		c.Devices = append(c.Devices, chain)
		c.Surface.AttachDevice(chain, geom.Pt(d.Position.X, d.Position.Y))
	}

	if cfg.Background != nil {
		b, err := c.newBrush(*cfg.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		c.Surface.SetBackground(b)
	}

	for _, gc := range cfg.Groups {
		g, err := c.newGroup(gc)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", gc.Name, err)
		}
		c.Surface.Attach(g)
		c.Groups = append(c.Groups, g)
	}
	if soft := cfg.Power.SoftStart(); soft > 0 {
		fade := NewFadeIn(c.Surface, soft)
		c.Surface.Background().AddDecorator(fade)
		for _, g := range c.Groups {
			g.AddDecorator(fade)
		}
	}

	var opts []ws.Option
	switch cfg.Trigger {
	case "manual":
		m := trigger.NewManual()
		c.Trigger = m
		opts = append(opts, ws.WithManual(m))
	case "device":
		c.Trigger = trigger.NewDevice(time.Second/time.Duration(cfg.FPS), cfg.Heartbeat)
	default:
		c.Trigger = trigger.NewTimerFPS(cfg.FPS, nil)
	}
	c.Surface.RegisterUpdateTrigger(c.Trigger)

	opts = append(opts, ws.WithCodec(codec), ws.WithDiagnostics(c.Diagnostics))
	c.Preview = ws.New(c.Surface, opts...)
	return c, nil
}

func openDevice(d config.Device, power config.PowerCfg) (*led.Chain, error) {
	l := layout.Layout{
		Dim:        layout.Dim{X: d.Dim.X, Y: d.Dim.Y, Z: d.Dim.Z},
		Order:      layout.Serpentine{XFlipEveryRow: d.XFlipEveryRow, YFlipEveryPanel: d.YFlipEveryPanel},
		PanelGapMM: d.PanelGapMM,
		PitchMM:    d.PitchMM,
	}
	order, err := led.ParseColorOrder(d.ColorOrder)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", d.ID, err)
	}
	drv, err := led.Open(d.Driver, d.Port, l.Count())
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", d.ID, err)
	}
	chain := led.NewChain(d.ID, drv, led.WithColorOrder(order), led.WithLimiter(render.Limiter{
		WhiteCap:         power.WhiteCap * 3,
		ChannelMilliamps: render.DefaultChannelMilliamps,
		BudgetMilliamps:  power.LimitAmps * 1000,
	}))
	if err := l.Build(chain); err != nil {
		return nil, multierr.Append(fmt.Errorf("device %q: %w", d.ID, err), chain.Close())
	}
	log.Info().Str("device", d.ID).Str("driver", d.Driver).Int("leds", l.Count()).Msg("device ready")
	return chain, nil
}

func (c *Core) newBrush(b config.Brush) (brush.Brush, error) {
	br, err := c.Registry.New(b.Name, b.Preset)
	if err != nil {
		return nil, err
	}
	br.SetCalculationMode(brush.ParseMode(b.Mode))
	if b.Brightness > 0 {
		br.SetBrightness(b.Brightness)
	}
	if b.Opacity > 0 {
		br.SetOpacity(b.Opacity)
	}
	if b.MoveSpeed != 0 {
		gb, ok := br.(interface{ Gradient() render.Gradient })
		if !ok {
			return nil, fmt.Errorf("brush %q has no gradient to move", b.Name)
		}
		g, ok := gb.Gradient().(interface{ AddDecorator(decor.Decorator) bool })
		if !ok {
			return nil, fmt.Errorf("gradient of brush %q can't be decorated", b.Name)
		}
		g.AddDecorator(brush.NewMoveGradient(c.Surface, b.MoveSpeed))
	}
	return br, nil
}

func (c *Core) newGroup(gc config.Group) (surface.Group, error) {
	var g surface.Group
	if gc.Rect != nil {
		g = surface.NewRectangleGroup(gc.Name, geom.Rect(gc.Rect.X, gc.Rect.Y, gc.Rect.W, gc.Rect.H), gc.MinOverlap)
	} else {
		lg := surface.NewListGroup(gc.Name)
		for _, id := range gc.Leds {
			l := c.findLed(id)
			if l == nil {
				return nil, fmt.Errorf("unknown led %q", id)
			}
			lg.AddLeds(l)
		}
		g = lg
	}
	g.SetZIndex(gc.Z)

	if gc.Program != "" {
		prog, err := sequence.LoadProgram(gc.Program)
		if err != nil {
			return nil, err
		}
		show, err := sequence.NewShow(c.Registry, prog)
		if err != nil {
			return nil, err
		}
		g.AddEffect(show)
		return g, nil
	}
	b, err := c.newBrush(gc.Brush)
	if err != nil {
		return nil, err
	}
	g.SetBrush(b)
	return g, nil
}

// findLed looks id up on every device; "device/id" selects one device.
func (c *Core) findLed(id string) *led.Led {
	for _, d := range c.Devices {
		if l := d.Led(id); l != nil {
			return l
		}
		if n := len(d.ID()); len(id) > n && id[:n] == d.ID() && id[n] == '/' {
			if l := d.Led(id[n+1:]); l != nil {
				return l
			}
		}
	}
	return nil
}

// Calibrate runs a calibration sweep over every led, in wiring order, on a
// group above the configured ones. The group has no brush of its own, so the
// scene shows again once the sweep is done.
func (c *Core) Calibrate(kind calib.Kind, interval time.Duration) (*calib.Sweep, error) {
	sw, err := calib.NewSweep(calib.Plan{Kind: kind, Interval: interval})
	if err != nil {
		return nil, err
	}
	if c.calib == nil {
		z := 0
		for _, g := range c.Groups {
			if g.ZIndex() >= z {
				z = g.ZIndex() + 1
			}
		}
		c.calib = surface.NewListGroup("calibration", c.Surface.Leds()...)
		c.calib.SetZIndex(z)
		c.Surface.Attach(c.calib)
	}
	c.calib.RemoveAllEffects()
	c.calib.AddEffect(sw)
	log.Info().Str("kind", string(kind)).Msg("calibration started")
	return sw, nil
}

// Run starts the trigger and, if an address is configured, the preview
// server. It blocks until ctx is done or the server fails.
func (c *Core) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	c.Trigger.Start()
	eg.Go(func() error {
		<-ctx.Done()
		c.Trigger.Stop()
		return nil
	})

	if addr := c.Config.Preview.Addr; addr != "" {
		srv := &http.Server{
			Addr:         addr,
			Handler:      withCORS(c.Preview.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		eg.Go(func() error {
			log.Info().Str("addr", addr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}
	return eg.Wait()
}

// Close tears down the preview server and the surface, closing every device.
func (c *Core) Close() error {
	if c.Preview != nil {
		c.Preview.Close()
	}
	c.Diagnostics.Close()
	return c.Surface.Close()
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
