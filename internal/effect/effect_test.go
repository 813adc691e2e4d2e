package effect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct{ name string }

func fakeClock(t *Target[*owner]) *time.Time {
	now := time.Unix(1000, 0)
	t.now = func() time.Time { return now }
	return &now
}

func TestFirstStepHasZeroDelta(t *testing.T) {
	target := NewTarget(&owner{"o"})
	now := fakeClock(target)
	var deltas []time.Duration
	e := NewFunc[*owner](func(dt time.Duration) bool {
		deltas = append(deltas, dt)
		return false
	}, nil, nil)

	target.AddEffect(e)
	target.UpdateEffects()
	*now = now.Add(40 * time.Millisecond)
	target.UpdateEffects()

	assert.Equal(t, []time.Duration{0, 40 * time.Millisecond}, deltas)
	assert.Equal(t, 40*time.Millisecond, e.Elapsed())
}

func TestDeltaIsPerEffect(t *testing.T) {
	target := NewTarget(&owner{"o"})
	now := fakeClock(target)
	var early, late []time.Duration
	a := NewFunc[*owner](func(dt time.Duration) bool { early = append(early, dt); return false }, nil, nil)
	b := NewFunc[*owner](func(dt time.Duration) bool { late = append(late, dt); return false }, nil, nil)

	target.AddEffect(a)
	target.UpdateEffects()
	*now = now.Add(time.Second)
	target.AddEffect(b)
	target.UpdateEffects()

	assert.Equal(t, []time.Duration{0, time.Second}, early)
	assert.Equal(t, []time.Duration{0}, late, "a late effect starts from zero")
}

func TestDoneEffectIsRemovedAndNeverSteppedAgain(t *testing.T) {
	o := &owner{"o"}
	target := NewTarget(o)
	steps := 0
	var detachedFrom *owner
	e := NewFunc(func(time.Duration) bool { steps++; return true }, nil, func(o *owner) { detachedFrom = o })

	require.True(t, target.AddEffect(e))
	assert.True(t, e.Attached())

	target.UpdateEffects()
	target.UpdateEffects()

	assert.Equal(t, 1, steps)
	assert.False(t, target.HasEffect(e))
	assert.Same(t, o, detachedFrom)
	assert.True(t, e.Done())
	assert.False(t, e.Attached())
}

func TestDisabledEffectIsSkipped(t *testing.T) {
	target := NewTarget(&owner{"o"})
	steps := 0
	e := NewFunc[*owner](func(time.Duration) bool { steps++; return false }, nil, nil)
	e.SetEnabled(false)

	target.AddEffect(e)
	target.UpdateEffects()
	assert.Zero(t, steps)

	e.SetEnabled(true)
	target.UpdateEffects()
	assert.Equal(t, 1, steps)
}

func TestRemovalKeepsOthersInOrder(t *testing.T) {
	target := NewTarget(&owner{"o"})
	var order []string
	mk := func(name string, done bool) *Func[*owner] {
		return NewFunc[*owner](func(time.Duration) bool {
			order = append(order, name)
			return done
		}, nil, nil)
	}
	a, b, c := mk("a", false), mk("b", true), mk("c", false)
	target.AddEffect(a)
	target.AddEffect(b)
	target.AddEffect(c)

	target.UpdateEffects()
	assert.Equal(t, []string{"c", "b", "a"}, order, "newest first")

	order = nil
	target.UpdateEffects()
	assert.Equal(t, []string{"c", "a"}, order)
	assert.Equal(t, []Effect[*owner]{a, c}, target.Effects())
}

func TestAddEffectRejectsDuplicates(t *testing.T) {
	target := NewTarget(&owner{"o"})
	attached := 0
	e := NewFunc(func(time.Duration) bool { return false }, func(*owner) { attached++ }, nil)

	assert.True(t, target.AddEffect(e))
	assert.False(t, target.AddEffect(e))
	assert.Equal(t, 1, attached)

	assert.True(t, target.RemoveEffect(e))
	assert.False(t, target.RemoveEffect(e))
}

func TestEffectMayRemoveItselfWhileStepping(t *testing.T) {
	target := NewTarget(&owner{"o"})
	var self *Func[*owner]
	self = NewFunc[*owner](func(time.Duration) bool {
		target.RemoveEffect(self)
		return false
	}, nil, nil)
	target.AddEffect(self)

	assert.NotPanics(t, target.UpdateEffects)
	assert.Empty(t, target.Effects())
}

func TestRemoveAllEffects(t *testing.T) {
	target := NewTarget(&owner{"o"})
	detached := 0
	for i := 0; i < 3; i++ {
		target.AddEffect(NewFunc(func(time.Duration) bool { return false }, nil, func(*owner) { detached++ }))
	}

	target.RemoveAllEffects()
	assert.Empty(t, target.Effects())
	assert.Equal(t, 3, detached)
}

func TestEffectBelongsToOneTarget(t *testing.T) {
	a, b := NewTarget(&owner{"a"}), NewTarget(&owner{"b"})
	var attachedTo []string
	e := NewFunc(func(time.Duration) bool { return false }, func(o *owner) { attachedTo = append(attachedTo, o.name) }, nil)

	require.True(t, a.AddEffect(e))
	assert.False(t, b.AddEffect(e), "attached elsewhere")
	assert.Empty(t, b.Effects())

	require.True(t, a.RemoveEffect(e))
	assert.True(t, b.AddEffect(e), "free again once detached")
	assert.Equal(t, []string{"a", "b"}, attachedTo)
}

func TestFinishedEffectCanMoveToAnotherTarget(t *testing.T) {
	a, b := NewTarget(&owner{"a"}), NewTarget(&owner{"b"})
	e := NewFunc[*owner](func(time.Duration) bool { return true }, nil, nil)

	a.AddEffect(e)
	a.UpdateEffects()
	assert.True(t, b.AddEffect(e))
}
