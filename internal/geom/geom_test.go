package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectangleUnion(t *testing.T) {
	a := Rect(0, 0, 10, 10)
	b := Rect(20, 5, 10, 10)

	assert.Equal(t, Rect(0, 0, 30, 15), a.Union(b))
	assert.Equal(t, a, a.Union(Rectangle{}), "empty operand is ignored")
	assert.Equal(t, Rect(0, 0, 30, 15), Bounds(a, b))
	assert.True(t, Bounds().Empty())
}

func TestRectangleIntersectAndOverlap(t *testing.T) {
	a := Rect(0, 0, 10, 10)

	assert.Equal(t, Rect(5, 5, 5, 5), a.Intersect(Rect(5, 5, 10, 10)))
	assert.True(t, a.Intersect(Rect(10, 0, 5, 5)).Empty(), "touching edges do not overlap")
	assert.InDelta(t, 0.25, a.Overlap(Rect(5, 5, 10, 10)), 1e-9)
	assert.InDelta(t, 1.0, a.Overlap(Rect(-1, -1, 20, 20)), 1e-9)
	assert.Zero(t, Rectangle{}.Overlap(a))
}

func TestRectangleContains(t *testing.T) {
	r := Rect(10, 10, 10, 10)

	assert.True(t, r.Contains(Pt(10, 10)))
	assert.True(t, r.Contains(r.Center()))
	assert.False(t, r.Contains(Pt(20, 15)))
	assert.False(t, r.Contains(Pt(9.99, 15)))
}

func TestRectangleTranslate(t *testing.T) {
	r := Rect(3, 4, 2, 2).Translate(Pt(-3, -4))

	assert.Equal(t, Pt(0, 0), r.Location)
	assert.Equal(t, Pt(1, 1), r.Center())
	assert.Equal(t, Pt(7, 7), r.WithLocation(Pt(6, 6)).Center())
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Pt(0, 0).Distance(Pt(3, 4)), 1e-9)
}
