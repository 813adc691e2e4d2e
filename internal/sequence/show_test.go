package sequence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/led"
	"github.com/coreman2200/arcaluminis/internal/render"
	"github.com/coreman2200/arcaluminis/internal/surface"
)

func redToBlue(loop bool) Program {
	return Program{
		Version: Version,
		Loop:    loop,
		Clips: []Clip{
			{Name: "red", Brush: "solid", Preset: "Red", Duration: time.Second, XFade: 500 * time.Millisecond},
			{Name: "blue", Brush: "solid", Preset: "Blue", Duration: time.Second},
		},
	}
}

func TestShowSwapsBrushes(t *testing.T) {
	g := surface.NewListGroup("g")
	before := brush.NewSolid(render.White)
	g.SetBrush(before)

	show, err := NewShow(brush.Builtins(), redToBlue(false))
	require.NoError(t, err)
	require.True(t, g.AddEffect(show))

	red, ok := g.Brush().(*brush.Solid)
	require.True(t, ok)
	assert.Equal(t, render.Red, red.Color())

	show.Update(600 * time.Millisecond)
	fade, ok := g.Brush().(*brush.Crossfade)
	require.True(t, ok, "crossfade installed inside the window")
	assert.InDelta(t, 0.2, fade.Alpha(), 1e-9)
	from, to := fade.Brushes()
	assert.Same(t, red, from)

	show.Update(400 * time.Millisecond)
	assert.Same(t, to, g.Brush(), "armed brush becomes the active one")
	assert.Equal(t, 1, show.player.Clip())

	show.Update(time.Second)
	assert.True(t, show.Done())
	assert.Equal(t, Idle, show.State())

	require.True(t, g.RemoveEffect(show))
	assert.Same(t, before, g.Brush())
}

func TestShowRoutesParams(t *testing.T) {
	prog := Program{Clips: []Clip{{
		Brush:    "solid",
		Preset:   "Green",
		Duration: 2 * time.Second,
		Params: map[string]Envelope{
			"brightness": {Keys: []Keyframe{{T: 0, V: 0}, {T: time.Second, V: 1}}},
			"opacity":    {Keys: []Keyframe{{T: 0, V: 0.25}}},
		},
		Bools: map[string]Envelope{
			"enabled": {Keys: []Keyframe{{T: 0, V: 1}, {T: time.Second, V: 0}}},
		},
	}}}
	g := surface.NewListGroup("g")
	show, err := NewShow(brush.Builtins(), prog)
	require.NoError(t, err)
	g.AddEffect(show)

	show.Update(500 * time.Millisecond)
	b := g.Brush()
	assert.InDelta(t, 0.5, b.Brightness(), 1e-9)
	assert.InDelta(t, 0.25, b.Opacity(), 1e-9)
	assert.True(t, b.Enabled())

	show.Update(700 * time.Millisecond)
	assert.False(t, b.Enabled())
}

func TestShowPauseAndSeek(t *testing.T) {
	g := surface.NewListGroup("g")
	show, err := NewShow(brush.Builtins(), redToBlue(true))
	require.NoError(t, err)
	g.AddEffect(show)

	show.Pause()
	show.Update(time.Second)
	assert.Equal(t, Paused, show.State())
	assert.Zero(t, show.Position())

	show.Resume()
	show.Seek(1500 * time.Millisecond)
	solid, ok := g.Brush().(*brush.Solid)
	require.True(t, ok)
	assert.Equal(t, render.Blue, solid.Color())

	show.Update(time.Second)
	assert.False(t, show.Done(), "looping shows never finish")
	assert.Equal(t, 500*time.Millisecond, show.Position())
}

func TestNewShowValidatesClips(t *testing.T) {
	reg := brush.Builtins()

	_, err := NewShow(reg, Program{Clips: []Clip{{Brush: "nope", Duration: time.Second}}})
	assert.ErrorIs(t, err, brush.ErrUnknownBrush)

	_, err = NewShow(reg, Program{Clips: []Clip{{Brush: "solid", Preset: "Mauve", Duration: time.Second}}})
	assert.ErrorIs(t, err, brush.ErrUnknownPreset)

	_, err = NewShow(reg, Program{Clips: []Clip{{Brush: "solid"}}})
	assert.Error(t, err)

	_, err = NewShow(reg, Program{})
	assert.ErrorIs(t, err, ErrEmptyProgram)
}

func TestShowPaintsSurface(t *testing.T) {
	s := surface.New()
	t.Cleanup(func() { _ = s.Close() })
	c := led.NewChain("strip", led.NewSim(0))
	for i := 0; i < 3; i++ {
		_, err := c.AddLed(string(rune('a'+i)), geom.Rect(float64(i)*10, 0, 10, 10))
		require.NoError(t, err)
	}
	require.True(t, s.AttachDevice(c, geom.Point{}))

	g := surface.NewListGroup("g", c.Leds()...)
	require.True(t, s.Attach(g))
	show, err := NewShow(brush.Builtins(), redToBlue(true))
	require.NoError(t, err)
	g.AddEffect(show)

	s.Update(false)
	for _, l := range c.Leds() {
		assert.True(t, render.Red.Equal(l.Color()), "led %s is %s", l.ID(), l.Color())
	}
}

const programYAML = `
version: seq.v1
loop: true
clips:
  - name: dawn
    brush: ocean
    preset: CalmDawn
    duration: 30s
    xfade: 5s
    params:
      brightness:
        keys:
          - {t: 0s, v: 0.2, ease: smooth}
          - {t: 10s, v: 1}
  - name: night
    brush: ocean
    preset: NightStorm
    duration: 1m
`

func TestParseProgram(t *testing.T) {
	p, err := ParseProgram([]byte(programYAML))
	require.NoError(t, err)
	assert.True(t, p.Loop)
	require.Len(t, p.Clips, 2)
	assert.Equal(t, 30*time.Second, p.Clips[0].Duration)
	assert.Equal(t, 5*time.Second, p.Clips[0].XFade)
	assert.Equal(t, time.Minute, p.Clips[1].Duration)
	keys := p.Clips[0].Params["brightness"].Keys
	require.Len(t, keys, 2)
	assert.Equal(t, 10*time.Second, keys[1].T)
	assert.Equal(t, "smooth", keys[0].Ease)

	_, err = NewShow(brush.Builtins(), p)
	assert.NoError(t, err)
}

func TestParseProgramErrors(t *testing.T) {
	_, err := ParseProgram([]byte("version: seq.v9\nclips: [{brush: solid, duration: 1s}]"))
	assert.Error(t, err)

	_, err = ParseProgram([]byte("clips: []"))
	assert.ErrorIs(t, err, ErrEmptyProgram)

	_, err = ParseProgram([]byte("clips: {"))
	assert.Error(t, err)
}

func TestLoadProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.yaml")
	require.NoError(t, os.WriteFile(path, []byte(programYAML), 0o644))

	p, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, Version, p.Version)

	_, err = LoadProgram(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
