package brush

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coreman2200/arcaluminis/internal/geom"
	"github.com/coreman2200/arcaluminis/internal/render"
)

var (
	ErrUnknownBrush  = errors.New("unknown brush")
	ErrUnknownPreset = errors.New("unknown preset")
)

// Factory builds a fresh brush configured for preset.
type Factory func(preset string) Brush

type entry struct {
	presets []string
	factory Factory
}

// Registry creates brushes by name and preset.
type Registry struct {
	mu sync.RWMutex
	m  map[string]entry
}

func NewRegistry() *Registry { return &Registry{m: map[string]entry{}} }

// Register adds or replaces a brush kind. The first preset is the default.
func (r *Registry) Register(name string, presets []string, f Factory) {
	if f == nil {
		return
	}
	r.mu.Lock()
	r.m[name] = entry{presets: append([]string(nil), presets...), factory: f}
	r.mu.Unlock()
}

// New builds brush name with preset; an empty preset picks the default.
func (r *Registry) New(name, preset string) (Brush, error) {
	r.mu.RLock()
	e, ok := r.m[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBrush, name)
	}
	if preset == "" && len(e.presets) > 0 {
		preset = e.presets[0]
	}
	if len(e.presets) > 0 && !contains(e.presets, preset) {
		return nil, fmt.Errorf("%s: %w: %q", name, ErrUnknownPreset, preset)
	}
	return e.factory(preset), nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Presets(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.m[name].presets...)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Builtins returns a registry with the stock brushes:
//
//	solid    Red, Green, Blue, White, Black
//	rainbow  Horizontal, Vertical, Radial, Conical
//	ocean    CalmDawn, SunnyDay, Sunset, NightStorm
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("solid", []string{"Red", "Green", "Blue", "White", "Black"}, solidPreset)
	r.Register("rainbow", []string{"Horizontal", "Vertical", "Radial", "Conical"}, rainbowPreset)
	r.Register("ocean", []string{"CalmDawn", "SunnyDay", "Sunset", "NightStorm"}, oceanPreset)
	return r
}

func solidPreset(p string) Brush {
	switch p {
	case "Green":
		return NewSolid(render.Green)
	case "Blue":
		return NewSolid(render.Blue)
	case "White":
		return NewSolid(render.White)
	case "Black":
		return NewSolid(render.Black)
	}
	return NewSolid(render.Red)
}

func rainbowPreset(p string) Brush {
	g := render.NewRainbowGradient(0, 360)
	switch p {
	case "Vertical":
		l := NewLinear(g)
		l.SetPoints(geom.Pt(0.5, 0), geom.Pt(0.5, 1))
		return l
	case "Radial":
		return NewRadial(g)
	case "Conical":
		return NewConical(g)
	}
	return NewLinear(g)
}

// ocean palettes: water hue (turns), sky saturation, absorption, intensity.
var oceanPalettes = map[string][4]float64{
	"CalmDawn":   {0.58, 0.9, 0.20, 1.0},
	"SunnyDay":   {0.55, 1.0, 0.15, 1.1},
	"Sunset":     {0.53, 1.1, 0.18, 1.0},
	"NightStorm": {0.60, 0.7, 0.25, 0.6},
}

// oceanPreset paints sky at the top fading into deep water at the bottom.
func oceanPreset(p string) Brush {
	pal, ok := oceanPalettes[p]
	if !ok {
		pal = oceanPalettes["CalmDawn"]
	}
	hue, sky, absorb, intensity := pal[0]*360, pal[1], pal[2], pal[3]
	skyHue := hue
	if p == "Sunset" {
		skyHue = 25
	}
	g := render.NewLinearGradient(
		render.GradientStop{Offset: 0, Color: render.HSV(skyHue, 0.35*sky, 0.9*intensity)},
		render.GradientStop{Offset: 0.45, Color: render.HSV(hue, 0.7, 0.7*intensity)},
		render.GradientStop{Offset: 1, Color: render.HSV(hue, 1, (1-absorb)*0.2*intensity)},
	)
	l := NewLinear(g)
	l.SetPoints(geom.Pt(0.5, 0), geom.Pt(0.5, 1))
	return l
}
