package brush

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis/internal/decor"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/notify"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/trigger"
)

func row(n int) []RenderTarget {
	out := make([]RenderTarget, n)
	for i := range out {
		out[i] = RenderTarget{Rectangle: geom.Rect(float64(i), 0, 1, 1)}
	}
	return out
}

func blackToWhite() *render.LinearGradient {
	return render.NewLinearGradient(
		render.GradientStop{Offset: 0, Color: render.Black},
		render.GradientStop{Offset: 1, Color: render.White},
	)
}

func reds(cs []render.Color) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.R
	}
	return out
}

func TestSolid(t *testing.T) {
	s := NewSolid(render.Red)
	out := s.Render(geom.Rect(0, 0, 3, 1), row(3))
	assert.Equal(t, []render.Color{render.Red, render.Red, render.Red}, out)

	rendered := s.RenderedTargets()
	require.Len(t, rendered, 3)
	assert.Equal(t, geom.Rect(2, 0, 1, 1), rendered[2].Target.Rectangle)
	assert.Equal(t, render.Red, rendered[2].Color)
}

func TestLinearProjectsOntoAxis(t *testing.T) {
	l := NewLinear(blackToWhite())
	out := l.Render(geom.Rect(0, 0, 4, 1), row(4))
	assert.InDeltaSlice(t, []float64{0.125, 0.375, 0.625, 0.875}, reds(out), 1e-9)

	l.SetPoints(geom.Pt(1, 0.5), geom.Pt(0, 0.5))
	out = l.Render(geom.Rect(0, 0, 4, 1), row(4))
	assert.InDeltaSlice(t, []float64{0.875, 0.625, 0.375, 0.125}, reds(out), 1e-9)
}

func TestLinearFollowsRectangleLocation(t *testing.T) {
	l := NewLinear(blackToWhite())
	targets := row(2)
	for i := range targets {
		targets[i].Rectangle = targets[i].Rectangle.Translate(geom.Pt(10, 0))
	}
	out := l.Render(geom.Rect(10, 0, 2, 1), targets)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, reds(out), 1e-9)
}

func TestRadial(t *testing.T) {
	r := NewRadial(blackToWhite())
	targets := []RenderTarget{
		{Rectangle: geom.Rect(0.5, 0.5, 1, 1)},
		{Rectangle: geom.Rect(1, 1, 1, 1)},
	}
	out := r.Render(geom.Rect(0, 0, 2, 2), targets)
	assert.InDeltaSlice(t, []float64{0, 0.5}, reds(out), 1e-9)
}

func TestConical(t *testing.T) {
	c := NewConical(blackToWhite())
	targets := []RenderTarget{
		{Rectangle: geom.Rect(1.5, 0.5, 1, 1)}, // right of center
		{Rectangle: geom.Rect(0.5, 1.5, 1, 1)}, // below
		{Rectangle: geom.Rect(1.5, -0.5, 1, 1)},
	}
	out := c.Render(geom.Rect(0, 0, 2, 2), targets)
	assert.InDelta(t, 0, out[0].R, 1e-9)
	assert.InDelta(t, 0.25, out[1].R, 1e-9)
	assert.Greater(t, out[2].R, 0.8, "angles wrap into [0,1)")
}

type fnDecorator struct {
	decor.Base
	fn func(render.Color) render.Color
}

func (d *fnDecorator) ManipulateColor(_ geom.Rectangle, _ RenderTarget, c render.Color) render.Color {
	return d.fn(c)
}

func TestDecoratorsRunHighestOrderFirst(t *testing.T) {
	s := NewSolid(render.White)
	var seen render.Color
	high := &fnDecorator{fn: func(render.Color) render.Color { return render.Red }}
	high.SetOrder(10)
	low := &fnDecorator{fn: func(c render.Color) render.Color { seen = c; return render.Blue }}
	low.SetOrder(1)
	off := &fnDecorator{fn: func(render.Color) render.Color { return render.Green }}
	off.SetEnabled(false)

	require.True(t, s.AddDecorator(low))
	require.True(t, s.AddDecorator(off))
	require.True(t, s.AddDecorator(high))

	out := s.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.Equal(t, render.Red, seen)
	assert.Equal(t, render.Blue, out[0])
}

func TestRemovingADecoratorMidFrameKeepsTheFrameConsistent(t *testing.T) {
	s := NewSolid(render.White)
	runs := map[string]int{}
	count := func(name string) func(render.Color) render.Color {
		return func(c render.Color) render.Color { runs[name]++; return c }
	}
	mid := &fnDecorator{fn: count("mid")}
	mid.SetOrder(5)
	low := &fnDecorator{fn: count("low")}
	low.SetOrder(1)
	high := &fnDecorator{}
	high.SetOrder(10)
	high.fn = func(c render.Color) render.Color {
		if runs["high"] == 0 {
			s.RemoveDecorator(mid)
		}
		runs["high"]++
		return c
	}
	s.AddDecorator(low)
	s.AddDecorator(mid)
	s.AddDecorator(high)

	s.Render(geom.Rect(0, 0, 3, 1), row(3))
	assert.Equal(t, map[string]int{"high": 3, "mid": 3, "low": 3}, runs)
	assert.Equal(t, []Decorator{high, low}, s.Decorators())

	s.Render(geom.Rect(0, 0, 3, 1), row(3))
	assert.Equal(t, map[string]int{"high": 6, "mid": 3, "low": 6}, runs)
}

func TestBrightnessAndOpacity(t *testing.T) {
	s := NewSolid(render.White)
	s.SetBrightness(0.5)
	s.SetOpacity(0.25)
	out := s.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.True(t, out[0].Equal(render.Color{A: 0.25, R: 0.5, G: 0.5, B: 0.5}), "got %v", out[0])

	s.SetOpacity(3)
	assert.Equal(t, 1.0, s.Opacity())
}

func TestEffectsRunBeforeColors(t *testing.T) {
	s := NewSolid(render.Red)
	e := effect.NewFunc[Brush](func(time.Duration) bool { s.SetColor(render.Green); return true }, nil, nil)
	require.True(t, s.AddEffect(e))

	out := s.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.Equal(t, render.Green, out[0])
	assert.False(t, s.HasEffect(e), "finished effects are dropped")
}

func TestCrossfade(t *testing.T) {
	red, blue := NewSolid(render.Red), NewSolid(render.Blue)
	x := NewCrossfade(red, blue)
	x.SetAlpha(0.5)
	out := x.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.True(t, out[0].Equal(render.RGB(0.5, 0, 0.5)), "got %v", out[0])

	blue.SetEnabled(false)
	out = x.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.InDelta(t, 0.5, out[0].A, 1e-9, "a disabled side fades to transparent")
}

type frames struct{ ev notify.Event[trigger.FrameArgs] }

func (f *frames) OnUpdating(fn func(trigger.FrameArgs)) *notify.Subscription {
	return f.ev.Subscribe(fn)
}

func (f *frames) step(d time.Duration) { f.ev.Emit(trigger.FrameArgs{DeltaTime: d}) }

func TestFlashEnvelopeAndSelfRemoval(t *testing.T) {
	src := &frames{}
	ms := time.Millisecond
	f := NewFlash(src, FlashTiming{Attack: 100 * ms, Sustain: 100 * ms, Release: 100 * ms, Interval: 100 * ms, Repetitions: 1})
	s := NewSolid(render.White)
	require.True(t, s.AddDecorator(f))
	assert.Equal(t, 1, src.ev.Len())

	var values []float64
	for _, d := range []time.Duration{50 * ms, 100 * ms, 100 * ms, 100 * ms} {
		src.step(d)
		values = append(values, f.Value())
	}
	assert.InDeltaSlice(t, []float64{0.5, 1, 0.5, 0}, values, 1e-9)

	out := s.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.Zero(t, out[0].A)

	src.step(100 * ms)
	assert.True(t, f.Done())
	assert.Empty(t, s.Decorators())
	assert.Zero(t, src.ev.Len(), "unsubscribed with its last host")
}

func TestMoveGradient(t *testing.T) {
	src := &frames{}
	g := render.NewLinearGradient(
		render.GradientStop{Offset: 0, Color: render.Black},
		render.GradientStop{Offset: 0.5, Color: render.White},
	)
	m := NewMoveGradient(src, 0.2)
	require.True(t, g.AddDecorator(m))

	src.step(500 * time.Millisecond)
	stops := g.Stops()
	assert.InDelta(t, 0.1, stops[0].Offset, 1e-9)
	assert.InDelta(t, 0.6, stops[1].Offset, 1e-9)

	m.SetEnabled(false)
	src.step(500 * time.Millisecond)
	assert.InDelta(t, 0.1, g.Stops()[0].Offset, 1e-9)
}

func TestPulse(t *testing.T) {
	s := NewSolid(render.White)
	p := NewPulse(time.Second, 2*time.Second)
	p.OnAttach(s)

	p.Update(500 * time.Millisecond)
	assert.InDelta(t, 0, s.Opacity(), 1e-9)
	p.Update(500 * time.Millisecond)
	assert.InDelta(t, 1, s.Opacity(), 1e-9)

	p.Update(time.Second)
	assert.True(t, p.Done())
	assert.Equal(t, 1.0, s.Opacity())
}

func TestToneMapAndWhiteCapDecorators(t *testing.T) {
	s := NewSolid(render.White)
	s.AddDecorator(NewWhiteCap(1.5))
	out := s.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.InDelta(t, 1.5, out[0].R+out[0].G+out[0].B, 1e-9)

	tm := NewSolid(render.RGB(0.2, 0.2, 0.2))
	tm.AddDecorator(NewToneMap(render.ToneMap{Gamma: 1}))
	out = tm.Render(geom.Rect(0, 0, 1, 1), row(1))
	assert.Equal(t, render.ToneMap{Gamma: 1}.Color(render.RGB(0.2, 0.2, 0.2)), out[0])
}

func TestRegistry(t *testing.T) {
	r := Builtins()
	assert.Equal(t, []string{"ocean", "rainbow", "solid"}, r.List())

	b, err := r.New("solid", "Blue")
	require.NoError(t, err)
	assert.Equal(t, render.Blue, b.Render(geom.Rect(0, 0, 1, 1), row(1))[0])

	b, err = r.New("solid", "")
	require.NoError(t, err)
	assert.Equal(t, render.Red, b.(*Solid).Color(), "empty preset picks the first")

	_, err = r.New("laser", "")
	assert.ErrorIs(t, err, ErrUnknownBrush)
	_, err = r.New("ocean", "Tsunami")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	for _, name := range r.List() {
		for _, p := range r.Presets(name) {
			b, err := r.New(name, p)
			require.NoError(t, err, "%s/%s", name, p)
			assert.Len(t, b.Render(geom.Rect(0, 0, 4, 4), row(4)), 4)
		}
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, Absolute, ParseMode("absolute"))
	assert.Equal(t, Relative, ParseMode("whatever"))
	assert.Equal(t, "absolute", Absolute.String())
}
