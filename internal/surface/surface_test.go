package surface

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/effect"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/trigger"
)

// newStrip returns a horizontal chain of n 10x10 leds.
func newStrip(t *testing.T, id string, n int) (*led.Chain, *led.Sim) {
	t.Helper()
	sim := led.NewSim(0)
	c := led.NewChain(id, sim)
	for i := 0; i < n; i++ {
		_, err := c.AddLed(fmt.Sprintf("%s-%d", id, i), geom.Rect(float64(i)*10, 0, 10, 10))
		require.NoError(t, err)
	}
	return c, sim
}

func newSurface(t *testing.T) *Surface {
	t.Helper()
	s := New()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func colors(leds []*led.Led) []render.Color {
	out := make([]render.Color, len(leds))
	for i, l := range leds {
		out[i] = l.Color()
	}
	return out
}

func grayRamp() *brush.Linear {
	return brush.NewLinear(render.NewLinearGradient(
		render.GradientStop{Offset: 0, Color: render.Black},
		render.GradientStop{Offset: 1, Color: render.White},
	))
}

func TestGroupAttachesToOneSurfaceOnly(t *testing.T) {
	a, b := newSurface(t), newSurface(t)
	g := NewListGroup("g")

	assert.True(t, a.Attach(g))
	assert.False(t, a.Attach(g))
	assert.False(t, b.Attach(g))
	assert.Same(t, a, g.Surface())

	assert.False(t, b.Detach(g))
	assert.True(t, a.Detach(g))
	assert.False(t, a.Detach(g), "second detach is a no-op")
	assert.Nil(t, g.Surface())

	assert.True(t, b.Attach(g))
	assert.Same(t, b, g.Surface())
}

func TestDevices(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 3)
	other, _ := newStrip(t, "a", 1)

	assert.True(t, s.AttachDevice(c, geom.Pt(5, 5)))
	assert.False(t, s.AttachDevice(other, geom.Pt(0, 0)), "device ids are unique")
	assert.Equal(t, geom.Rect(5, 5, 30, 10), s.Boundary())
	assert.Len(t, s.Leds(), 3)

	r, ok := s.AbsoluteRectangle(c.Led("a-1"))
	require.True(t, ok)
	assert.Equal(t, geom.Rect(15, 5, 10, 10), r)

	assert.True(t, s.PositionDevice(c, geom.Pt(0, 0)))
	assert.Equal(t, geom.Rect(0, 0, 30, 10), s.Boundary())
	assert.Len(t, s.LedsIn(geom.Rect(0, 0, 15, 10), 0.5), 2)

	assert.False(t, s.DetachDevice(other))
	assert.True(t, s.DetachDevice(c))
	assert.Empty(t, s.Leds())
	assert.True(t, s.Boundary().Empty())
}

func TestHigherZIndexWins(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 2)
	s.AttachDevice(c, geom.Point{})
	shared := c.Led("a-1")

	low := NewListGroup("low", c.Leds()...)
	low.SetBrush(brush.NewSolid(render.Red))
	low.SetZIndex(5)
	high := NewListGroup("high", shared)
	high.SetBrush(brush.NewSolid(render.Blue))
	high.SetZIndex(10)

	s.Attach(high)
	s.Attach(low)
	s.Update(false)
	assert.Equal(t, []render.Color{render.Red, render.Blue}, colors(c.Leds()))

	tie := NewListGroup("tie", shared)
	tie.SetBrush(brush.NewSolid(render.Green))
	tie.SetZIndex(10)
	s.Attach(tie)
	s.Update(false)
	assert.Equal(t, render.Green, shared.Color(), "equal z-index renders in attach order")
}

func TestDetachWaitsForTheRenderPass(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 2)
	s.AttachDevice(c, geom.Point{})

	entered, release := make(chan struct{}), make(chan struct{})
	first := true
	slow := NewListGroup("slow", c.Led("a-0"))
	slow.SetBrush(brush.NewFunc(func(geom.Rectangle, brush.RenderTarget) render.Color {
		if first {
			first = false
			close(entered)
			<-release
		}
		return render.Green
	}))
	var painted int32
	late := NewListGroup("late", c.Led("a-1"))
	late.SetBrush(brush.NewFunc(func(geom.Rectangle, brush.RenderTarget) render.Color {
		atomic.AddInt32(&painted, 1)
		return render.Red
	}))
	late.SetZIndex(1)
	s.Attach(slow)
	s.Attach(late)

	frame := make(chan struct{})
	go func() {
		s.Update(false)
		close(frame)
	}()
	<-entered

	detached := make(chan bool, 1)
	go func() { detached <- s.Detach(late) }()
	select {
	case <-detached:
		t.Fatal("Detach returned while a render pass was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-frame
	assert.True(t, <-detached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&painted), "late was attached for the whole first pass")
	assert.Nil(t, late.Surface())

	s.Update(false)
	assert.Equal(t, int32(1), atomic.LoadInt32(&painted), "a detached group is not rendered")
}

func TestRelativeModeIsTranslationInvariant(t *testing.T) {
	render4 := func(pos geom.Point) []render.Color {
		s := newSurface(t)
		c, _ := newStrip(t, "strip", 4)
		far, _ := newStrip(t, "far", 1)
		s.AttachDevice(c, pos)
		s.AttachDevice(far, geom.Pt(500, 500))
		g := NewListGroup("g", c.Leds()...)
		g.SetBrush(grayRamp())
		s.Attach(g)
		s.Update(false)
		return colors(c.Leds())
	}

	origin := render4(geom.Point{})
	assert.Equal(t, origin, render4(geom.Pt(120, 40)))
	reds := []float64{origin[0].R, origin[1].R, origin[2].R, origin[3].R}
	assert.InDeltaSlice(t, []float64{0.125, 0.375, 0.625, 0.875}, reds, 1e-9)
}

func TestAbsoluteModeSpansTheSurface(t *testing.T) {
	s := newSurface(t)
	left, _ := newStrip(t, "left", 2)
	right, _ := newStrip(t, "right", 2)
	s.AttachDevice(left, geom.Point{})
	s.AttachDevice(right, geom.Pt(20, 0))

	b := grayRamp()
	b.SetCalculationMode(brush.Absolute)
	gl, gr := NewListGroup("l", left.Leds()...), NewListGroup("r", right.Leds()...)
	gl.SetBrush(b)
	gr.SetBrush(b)
	s.Attach(gl)
	s.Attach(gr)
	s.Update(false)

	all := append(colors(left.Leds()), colors(right.Leds())...)
	got := make([]float64, len(all))
	for i, c := range all {
		got[i] = c.R
	}
	assert.InDeltaSlice(t, []float64{0.125, 0.375, 0.625, 0.875}, got, 1e-9)
}

func TestFailingGroupDoesNotStopTheFrame(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 2)
	s.AttachDevice(c, geom.Point{})

	var errs []error
	s.OnException(func(err error) { errs = append(errs, err) })

	bad := NewListGroup("bad", c.Led("a-0"))
	bad.SetBrush(brush.NewFunc(func(geom.Rectangle, brush.RenderTarget) render.Color { panic("boom") }))
	bad.SetZIndex(1)
	good := NewListGroup("good", c.Led("a-1"))
	good.SetBrush(brush.NewSolid(render.Green))
	good.SetZIndex(2)
	s.Attach(bad)
	s.Attach(good)

	s.Update(false)

	require.Len(t, errs, 1)
	var ge *GroupError
	require.ErrorAs(t, errs[0], &ge)
	assert.Equal(t, "bad", ge.Group)
	assert.ErrorIs(t, errs[0], ErrPanic)
	assert.Equal(t, render.Black, c.Led("a-0").Color(), "failed group left its leds alone")
	assert.Equal(t, render.Green, c.Led("a-1").Color())
}

type brokenDevice struct {
	*led.Chain
	closeErr error
}

func (b *brokenDevice) Update(bool) error { return errors.New("unplugged") }
func (b *brokenDevice) Close() error      { return b.closeErr }

func TestDeviceErrorsAreReported(t *testing.T) {
	s := newSurface(t)
	c, sim := newStrip(t, "ok", 1)
	broken, _ := newStrip(t, "broken", 1)
	s.AttachDevice(&brokenDevice{Chain: broken}, geom.Pt(0, 10))
	s.AttachDevice(c, geom.Point{})
	s.SetBackground(brush.NewSolid(render.White))

	var errs []error
	s.OnException(func(err error) { errs = append(errs, err) })
	s.Update(false)

	require.Len(t, errs, 1)
	var de *DeviceError
	require.ErrorAs(t, errs[0], &de)
	assert.Equal(t, "broken", de.Device)
	assert.Len(t, sim.Frames(), 1, "later devices still update")
}

func TestFrameNotifications(t *testing.T) {
	s := newSurface(t)
	var deltas []time.Duration
	var order []string
	s.OnUpdating(func(a trigger.FrameArgs) {
		deltas = append(deltas, a.DeltaTime)
		order = append(order, "updating")
	})
	s.OnUpdating(func(trigger.FrameArgs) { panic("bad observer") })
	s.OnUpdated(func(trigger.FrameArgs) { order = append(order, "updated") })

	s.Update(false)
	time.Sleep(5 * time.Millisecond)
	s.Update(false)

	require.Len(t, deltas, 2)
	assert.Zero(t, deltas[0])
	assert.GreaterOrEqual(t, deltas[1], 5*time.Millisecond)
	assert.Equal(t, []string{"updating", "updated", "updating", "updated"}, order)
}

func TestCustomDataControlsTheFrame(t *testing.T) {
	s := newSurface(t)
	c, sim := newStrip(t, "a", 1)
	s.AttachDevice(c, geom.Point{})
	bg := brush.NewSolid(render.Red)
	s.SetBackground(bg)

	s.update(nil, trigger.CustomData{trigger.UpdateDevices: false})
	assert.Equal(t, render.Red, c.Led("a-0").Color())
	assert.Empty(t, sim.Frames())

	bg.SetColor(render.Blue)
	s.update(nil, trigger.CustomData{trigger.Render: false})
	assert.Equal(t, render.Red, c.Led("a-0").Color(), "render skipped")
	assert.Len(t, sim.Frames(), 1)

	s.update(nil, trigger.CustomData{trigger.Render: false})
	assert.Len(t, sim.Frames(), 1, "nothing dirty")
	s.update(nil, trigger.CustomData{trigger.Render: false, trigger.Heartbeat: true})
	assert.Len(t, sim.Frames(), 2, "heartbeat flushes")
}

func TestRenderingIsDeterministic(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 4)
	s.AttachDevice(c, geom.Point{})
	g := NewListGroup("g", c.Leds()...)
	g.SetBrush(brush.NewRadial(render.NewRainbowGradient(0, 300)))
	s.Attach(g)

	s.Update(false)
	first := colors(c.Leds())
	s.Update(false)
	assert.Equal(t, first, colors(c.Leds()))
}

func TestRectangleGroupFollowsDevices(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 4)
	s.AttachDevice(c, geom.Point{})

	g := NewRectangleGroup("left", geom.Rect(0, 0, 20, 10), 0.5)
	assert.Empty(t, g.Leds(), "unattached groups resolve nothing")
	s.Attach(g)
	assert.Len(t, g.Leds(), 2)

	s.PositionDevice(c, geom.Pt(10, 0))
	leds := g.Leds()
	require.Len(t, leds, 1)
	assert.Equal(t, "a-0", leds[0].ID())
}

func TestListGroupMembers(t *testing.T) {
	c, _ := newStrip(t, "a", 3)
	g := NewListGroup("g", c.Led("a-0"), c.Led("a-0"))
	assert.Len(t, g.Leds(), 1)

	g.MergeLeds(NewListGroup("other", c.Leds()...))
	assert.Len(t, g.Leds(), 3)

	g.RemoveLeds(c.Led("a-1"))
	assert.False(t, g.ContainsLed(c.Led("a-1")))
	assert.True(t, g.ContainsLed(c.Led("a-2")))
}

func TestGroupEffectsAndDecorators(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 1)
	s.AttachDevice(c, geom.Point{})
	g := NewListGroup("g", c.Leds()...)
	s.Attach(g)

	steps := 0
	g.AddEffect(effect.NewFunc[Group](func(time.Duration) bool {
		steps++
		g.SetBrush(brush.NewSolid(render.White))
		return false
	}, nil, nil))
	g.AddDecorator(brush.NewWhiteCap(1.5))

	s.Update(false)
	assert.Equal(t, 1, steps)
	col := c.Led("a-0").Color()
	assert.InDelta(t, 1.5, col.R+col.G+col.B, 1e-9)
}

func TestBackgroundRendersBelowGroups(t *testing.T) {
	s := newSurface(t)
	c, _ := newStrip(t, "a", 2)
	s.AttachDevice(c, geom.Point{})
	s.SetBackground(brush.NewSolid(render.Blue))
	g := NewListGroup("g", c.Led("a-0"))
	g.SetBrush(brush.NewSolid(render.Red))
	g.SetZIndex(-100)
	s.Attach(g)

	s.Update(false)
	assert.Equal(t, []render.Color{render.Red, render.Blue}, colors(c.Leds()))
	assert.Len(t, s.Background().Leds(), 2)
}

func TestManualTriggerDrivesFrames(t *testing.T) {
	s := newSurface(t)
	c, sim := newStrip(t, "a", 1)
	s.AttachDevice(c, geom.Point{})
	s.SetBackground(brush.NewSolid(render.Green))

	frames := make(chan trigger.FrameArgs, 4)
	s.OnUpdated(func(a trigger.FrameArgs) { frames <- a })

	m := trigger.NewManual()
	require.True(t, s.RegisterUpdateTrigger(m))
	require.False(t, s.RegisterUpdateTrigger(m))
	m.Start()

	m.TriggerUpdate(trigger.CustomData{trigger.FlushLeds: true})
	select {
	case a := <-frames:
		assert.Same(t, m, a.Trigger)
		assert.True(t, a.Data.Bool(trigger.FlushLeds, false))
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
	}
	assert.Len(t, sim.Frames(), 1)

	require.True(t, s.UnregisterUpdateTrigger(m))
	assert.True(t, m.Running(), "unregistering does not stop the trigger")
	m.Stop()
}

func TestCloseTearsDown(t *testing.T) {
	s := New()
	good, _ := newStrip(t, "good", 1)
	b1, _ := newStrip(t, "b1", 1)
	b2, _ := newStrip(t, "b2", 1)
	s.AttachDevice(good, geom.Point{})
	s.AttachDevice(&brokenDevice{Chain: b1, closeErr: errors.New("b1 stuck")}, geom.Pt(0, 10))
	s.AttachDevice(&brokenDevice{Chain: b2, closeErr: errors.New("b2 stuck")}, geom.Pt(0, 20))
	g := NewListGroup("g")
	s.Attach(g)
	tm := trigger.NewTimer(time.Millisecond, nil)
	s.RegisterUpdateTrigger(tm)
	tm.Start()

	_, ok := Lookup(s.ID())
	require.True(t, ok)

	err := s.Close()
	assert.EqualError(t, err, "b1 stuck; b2 stuck")
	assert.False(t, tm.Running())
	assert.Nil(t, g.Surface())
	assert.Empty(t, s.Groups())
	assert.False(t, s.Attach(g), "closed surfaces take no groups")
	_, ok = Lookup(s.ID())
	assert.False(t, ok)
	assert.NoError(t, s.Close())
}
