// Package render holds the color math shared by brushes and devices:
// colors and blending, gradients, framebuffer mixing and the output
// post-processing (tone map, current limiter).
package render

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear ARGB color, every channel in [0,1].
type Color struct{ A, R, G, B float64 }

var (
	Transparent = Color{}
	Black       = Color{A: 1}
	White       = Color{A: 1, R: 1, G: 1, B: 1}
	Red         = Color{A: 1, R: 1}
	Green       = Color{A: 1, G: 1}
	Blue        = Color{A: 1, B: 1}
)

// RGB returns an opaque color.
func RGB(r, g, b float64) Color { return Color{A: 1, R: r, G: g, B: b} }

// RGB8 returns an opaque color from 8-bit channels.
func RGB8(r, g, b uint8) Color {
	return Color{A: 1, R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// HSV returns an opaque color from hue in degrees, saturation and value in [0,1].
func HSV(h, s, v float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsv(h, clamp01(s), clamp01(v))
	return Color{A: 1, R: c.R, G: c.G, B: c.B}
}

// HSV returns hue in degrees, saturation and value.
func (c Color) HSV() (h, s, v float64) {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Hsv()
}

// MultiplyValue scales the HSV value of c by f, keeping hue, saturation and alpha.
func (c Color) MultiplyValue(f float64) Color {
	h, s, v := c.HSV()
	out := HSV(h, s, v*f)
	out.A = c.A
	return out
}

// MultiplyA scales the alpha channel.
func (c Color) MultiplyA(f float64) Color {
	c.A = clamp01(c.A * f)
	return c
}

// WithA returns c with alpha a.
func (c Color) WithA(a float64) Color {
	c.A = clamp01(a)
	return c
}

// Scale multiplies the color channels, leaving alpha alone.
func (c Color) Scale(f float64) Color {
	c.R *= f
	c.G *= f
	c.B *= f
	return c
}

// Clamp limits every channel to [0,1].
func (c Color) Clamp() Color {
	return Color{A: clamp01(c.A), R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// Blend composites top over c using normal alpha blending.
func (c Color) Blend(top Color) Color {
	if top.A >= 1 {
		return top
	}
	if top.A <= 0 {
		return c
	}
	a := top.A + c.A*(1-top.A)
	if a <= 0 {
		return Transparent
	}
	mix := func(t, b float64) float64 { return (t*top.A + b*c.A*(1-top.A)) / a }
	return Color{A: a, R: mix(top.R, c.R), G: mix(top.G, c.G), B: mix(top.B, c.B)}
}

// Lerp interpolates every channel, alpha included, from a to b.
func Lerp(a, b Color, t float64) Color {
	return Color{
		A: a.A + (b.A-a.A)*t,
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
	}
}

// Bytes returns the color premultiplied by its alpha as 8-bit RGB, the form
// LED hardware expects.
func (c Color) Bytes() (r, g, b uint8) {
	a := clamp01(c.A)
	return to8(c.R * a), to8(c.G * a), to8(c.B * a)
}

// Hex is the #rrggbb form of the color, ignoring alpha.
func (c Color) Hex() string {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hex()
}

func (c Color) String() string {
	return fmt.Sprintf("%s@%.2f", c.Hex(), c.A)
}

// Equal reports whether every channel of c and o differs by at most 1/512,
// less than one 8-bit step.
func (c Color) Equal(o Color) bool {
	const eps = 1.0 / 512
	return math.Abs(c.A-o.A) <= eps && math.Abs(c.R-o.R) <= eps &&
		math.Abs(c.G-o.G) <= eps && math.Abs(c.B-o.B) <= eps
}

func to8(x float64) uint8 {
	return uint8(math.Round(clamp01(x) * 255))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
