package sequence

import (
	"sort"
	"time"
)

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep (cubic-ish) for ease="cubic"
func smootherstep(x float64) float64 {
	// 6x^5 - 15x^4 + 10x^3
	return x * x * x * (x*(x*6-15) + 10)
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		// classic smoothstep 3x^2 - 2x^3
		return x * x * (3 - 2*x)
	case "cubic":
		return smootherstep(x)
	default:
		return x
	}
}

// Sort orders the keys by time; Eval expects sorted keys.
func (e Envelope) Sort() {
	sort.SliceStable(e.Keys, func(i, j int) bool { return e.Keys[i].T < e.Keys[j].T })
}

// Eval returns the value of the envelope at t into the clip.
// If there are no keys, returns 0; if one key, returns its value.
func (e Envelope) Eval(t time.Duration) float64 {
	n := len(e.Keys)
	if n == 0 {
		return 0
	}
	if t <= e.Keys[0].T {
		return e.Keys[0].V
	}
	if t >= e.Keys[n-1].T {
		return e.Keys[n-1].V
	}
	i := sort.Search(n, func(i int) bool { return e.Keys[i].T > t }) - 1
	a, b := e.Keys[i], e.Keys[i+1]
	den := b.T - a.T
	if den <= 0 {
		return b.V
	}
	u := easeApply(a.Ease, clamp01(float64(t-a.T)/float64(den)))
	return a.V + (b.V-a.V)*u
}

// BoolEval thresholds the envelope at 0.5 into a boolean.
func (e Envelope) BoolEval(t time.Duration) bool {
	return e.Eval(t) >= 0.5
}
