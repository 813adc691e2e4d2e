package render

import "math"

// ToneMap is a filmic (ACES) tone map with exposure in EV and output gamma.
// The zero value maps with exposure 0 and gamma 2.2.
type ToneMap struct {
	ExposureEV float64
	Gamma      float64
}

// Color tone maps a single color, alpha unchanged.
func (t ToneMap) Color(c Color) Color {
	exposure := math.Pow(2, t.ExposureEV)
	gamma := t.Gamma
	if gamma <= 0 {
		gamma = 2.2
	}
	ch := func(x float64) float64 {
		x = acesApprox(x * exposure)
		if gamma != 1 {
			x = math.Pow(x, 1/gamma)
		}
		return clamp01(x)
	}
	return Color{A: c.A, R: ch(c.R), G: ch(c.G), B: ch(c.B)}
}

// Apply tone maps buf in place.
func (t ToneMap) Apply(buf []Color) {
	for i := range buf {
		buf[i] = t.Color(buf[i])
	}
}

// Limiter applies a two-stage power limiter:
//  1. Per-LED white cap: scales (R,G,B) so R+G+B <= WhiteCap (0 or >= 3 means no cap).
//  2. Global current budget: estimates current and scales the whole frame so
//     it never exceeds BudgetMilliamps, compressing softly from Knee*budget up.
type Limiter struct {
	WhiteCap         float64
	ChannelMilliamps float64 // at full scale; WS2812 ≈ 20
	BudgetMilliamps  float64 // 0 disables the global stage
	Knee             float64 // fraction of budget where soft limiting begins; default 0.9
}

// DefaultChannelMilliamps is the per-channel full-scale current of a WS2812.
const DefaultChannelMilliamps = 20

// WhiteCapColor applies only the per-LED stage to c.
func (l Limiter) WhiteCapColor(c Color) Color {
	if l.WhiteCap <= 0 || l.WhiteCap >= 3 {
		return c
	}
	s := c.R + c.G + c.B
	if s > l.WhiteCap && s > 0 {
		return c.Scale(l.WhiteCap / s)
	}
	return c
}

// Current estimates the draw of buf in mA.
func (l Limiter) Current(buf []Color) float64 {
	chanmA := l.ChannelMilliamps
	if chanmA <= 0 {
		chanmA = DefaultChannelMilliamps
	}
	var total float64
	for _, c := range buf {
		total += (c.R + c.G + c.B) * chanmA
	}
	return total
}

// Apply limits buf in place and returns the global scale applied (1 when the
// frame was under the knee).
func (l Limiter) Apply(buf []Color) float64 {
	for i := range buf {
		buf[i] = l.WhiteCapColor(buf[i])
	}

	budget := l.BudgetMilliamps
	if budget <= 0 {
		return 1
	}
	knee := l.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}

	total := l.Current(buf)
	if total <= 0 {
		return 1
	}
	kneeCurrent := knee * budget
	if total <= kneeCurrent {
		return 1
	}
	// above the knee the excess is compressed exponentially towards budget
	room := budget - kneeCurrent
	limited := kneeCurrent + room*(1-math.Exp(-(total-kneeCurrent)/room))
	s := limited / total
	for i := range buf {
		buf[i] = buf[i].Scale(s)
	}
	return s
}

// Approximate ACES filmic curve (Narkowicz 2015).
func acesApprox(x float64) float64 {
	const (
		a = 2.51
		b = 0.03
		c = 2.43
		d = 0.59
		e = 0.14
	)
	return clamp01((x * (a*x + b)) / (x*(c*x+d) + e))
}
