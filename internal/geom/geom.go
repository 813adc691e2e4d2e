// Package geom holds the value types used to place LEDs and devices on a surface.
package geom

import "math"

// Point is a location in surface units.
type Point struct{ X, Y float64 }

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

type Size struct{ Width, Height float64 }

// Rectangle is an axis aligned box anchored at its top-left Location.
type Rectangle struct {
	Location Point
	Size     Size
}

// Rect builds a rectangle from its top-left corner and size.
func Rect(x, y, w, h float64) Rectangle {
	return Rectangle{Location: Point{x, y}, Size: Size{w, h}}
}

func (r Rectangle) Min() Point { return r.Location }
func (r Rectangle) Max() Point {
	return Point{r.Location.X + r.Size.Width, r.Location.Y + r.Size.Height}
}

// Center is the midpoint of the rectangle.
func (r Rectangle) Center() Point {
	return Point{r.Location.X + r.Size.Width/2, r.Location.Y + r.Size.Height/2}
}

func (r Rectangle) Area() float64 { return r.Size.Width * r.Size.Height }

func (r Rectangle) Empty() bool { return r.Size.Width <= 0 || r.Size.Height <= 0 }

// Translate moves the rectangle by the offset d.
func (r Rectangle) Translate(d Point) Rectangle {
	r.Location = r.Location.Add(d)
	return r
}

// WithLocation returns r moved so its top-left corner is p.
func (r Rectangle) WithLocation(p Point) Rectangle {
	r.Location = p
	return r
}

// Contains reports whether p lies inside r; the right and bottom edges are exclusive.
func (r Rectangle) Contains(p Point) bool {
	max := r.Max()
	return p.X >= r.Location.X && p.X < max.X && p.Y >= r.Location.Y && p.Y < max.Y
}

// Intersect returns the overlap of r and s, or the zero rectangle if they don't overlap.
func (r Rectangle) Intersect(s Rectangle) Rectangle {
	rmax, smax := r.Max(), s.Max()
	x0 := math.Max(r.Location.X, s.Location.X)
	y0 := math.Max(r.Location.Y, s.Location.Y)
	x1 := math.Min(rmax.X, smax.X)
	y1 := math.Min(rmax.Y, smax.Y)
	if x1 <= x0 || y1 <= y0 {
		return Rectangle{}
	}
	return Rect(x0, y0, x1-x0, y1-y0)
}

// Union returns the smallest rectangle containing both r and s.
// An empty operand is ignored.
func (r Rectangle) Union(s Rectangle) Rectangle {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	rmax, smax := r.Max(), s.Max()
	x0 := math.Min(r.Location.X, s.Location.X)
	y0 := math.Min(r.Location.Y, s.Location.Y)
	x1 := math.Max(rmax.X, smax.X)
	y1 := math.Max(rmax.Y, smax.Y)
	return Rect(x0, y0, x1-x0, y1-y0)
}

// Bounds returns the bounding rectangle of rs.
func Bounds(rs ...Rectangle) Rectangle {
	var b Rectangle
	for _, r := range rs {
		b = b.Union(r)
	}
	return b
}

// Overlap returns the fraction of r's area covered by s, in [0,1].
func (r Rectangle) Overlap(s Rectangle) float64 {
	a := r.Area()
	if a <= 0 {
		return 0
	}
	return r.Intersect(s).Area() / a
}

// Corners returns the four corners clockwise from the top-left.
func (r Rectangle) Corners() [4]Point {
	max := r.Max()
	return [4]Point{
		r.Location,
		{max.X, r.Location.Y},
		max,
		{r.Location.X, max.Y},
	}
}
