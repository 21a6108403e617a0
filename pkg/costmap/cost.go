package costmap

import (
	"math"

	"miraseg/pkg/grid"
	"miraseg/pkg/stats"
)

// costModel is the per-edge cost function of the 2D variant. It is built
// once per solve and is pure: stepCost depends only on the two endpoint
// intensities, their coordinates, and the frozen statistics and weights.
type costModel struct {
	img  *grid.Image
	grad []float32

	tumor stats.Robust
	bg    *stats.Robust

	seedValue      float64
	bandLo, bandHi float64
	tol            float64
	barrier        float64
	crossSigma     float64
	looseHigh      float64
	highLeave      float64

	// Radial outer prior: centroid and half extents of the seed box.
	cx, cy, hx, hy float64

	wt Weights
	tn Tuning
}

func newCostModel(img *grid.Image, grad []float32, st SeedStats, box grid.Rect, wt Weights, tn Tuning) *costModel {
	m := &costModel{
		img:        img,
		grad:       grad,
		tumor:      st.Tumor,
		bg:         st.Background,
		seedValue:  st.SeedValue,
		bandLo:     st.BandLo,
		bandHi:     st.BandHi,
		tol:        (st.BandHi - st.BandLo) / 2,
		barrier:    st.Barrier,
		crossSigma: tn.CrossSigmaScale * st.Tumor.Sigma,
		looseHigh:  st.Tumor.Mu + tn.LooseHighZ*st.Tumor.Sigma,
		highLeave:  st.Tumor.Mu + tn.HighLeaveZ*st.Tumor.Sigma,
		wt:         wt,
		tn:         tn,
	}
	m.cx, m.cy = box.Center()
	m.hx, m.hy = box.HalfExtents()
	if m.tol <= 0 {
		m.tol = tn.MinBandTolerance
	}
	return m
}

// radialWeight is the spatial prior: 1 inside the seed box, decaying as
// exp(-k*t^2) outside, with t the excess L-inf distance from the centroid
// normalized by the half extents.
func (m *costModel) radialWeight(x, y int) float64 {
	dx := math.Abs(float64(x)-m.cx) / m.hx
	dy := math.Abs(float64(y)-m.cy) / m.hy
	d := dx
	if dy > d {
		d = dy
	}
	t := d - 1
	if t <= 0 {
		return 1
	}
	return math.Exp(-m.tn.RadialK * t * t)
}

// dirScale is the directional asymmetry shared by the edge and cross
// terms: stepping into brighter intensity is cheap, stepping down is full
// price, and stepping down out of an already-high pixel is dearer still.
func (m *costModel) dirScale(v0, v1 float64) float64 {
	if v1 >= v0 {
		return m.wt.UphillDiscount
	}
	s := 1.0
	if v0 >= m.highLeave {
		s += m.wt.LeaveHighExtra
	}
	return s
}

// stepCost returns the non-negative cost of the directed step from
// (x0,y0) to the neighboring (x1,y1).
func (m *costModel) stepCost(x0, y0, x1, y1 int) float64 {
	v0 := float64(m.img.At(x0, y0))
	v1 := float64(m.img.At(x1, y1))

	stepLen := 1.0
	if x0 != x1 && y0 != y1 {
		stepLen = math.Sqrt2
	}

	// 1-w: 0 inside the seed box, approaching 1 far outside. Intensity
	// terms scale by (1+out); the base term carries its own weight.
	out := 1 - m.radialWeight(x1, y1)

	cost := stepLen * m.wt.BaseStep * (1 + m.wt.RadialOuter*out)

	dir := m.dirScale(v0, v1)
	jump := math.Abs(v1 - v0)

	// Edge barrier: free below the adaptive barrier, quadratic ramp above.
	g := float64(m.grad[y1*m.img.W+x1])
	if jump > g {
		g = jump
	}
	if g > m.barrier {
		r := (g - m.barrier) / m.barrier
		cost += m.wt.Edge * r * r * dir * (1 + out)
	}

	// Cross-intensity: catches gradual or noisy boundaries the gradient
	// operator misses. One sigma of jump is free.
	if z := jump / m.crossSigma; z > 1 {
		cost += m.wt.Cross * (z - 1) * (z - 1) * dir * (1 + out)
	}

	// Absolute band: asymmetric, small on the bright side.
	if v1 > m.bandHi {
		r := (v1 - m.bandHi) / m.tol
		cost += m.wt.Band * m.wt.BrightSide * r * r * (1 + out)
	} else if v1 < m.bandLo {
		r := (m.bandLo - v1) / m.tol
		cost += m.wt.Band * r * r * (1 + out)
	}

	// Background likeness, gated off for clearly bright values.
	if m.bg != nil && v1 < m.looseHigh {
		if d := m.tumor.Z(v1) - m.bg.Z(v1) - m.tn.BGMargin; d > 0 {
			cost += m.wt.Background * d * (1 + out)
		}
	}

	// Prefer-high: low values stay expensive to enter even without an edge.
	if v1 < m.bandLo {
		cost += m.wt.PreferHigh * (m.bandLo - v1) / m.tol * (1 + out)

		// End-low-downhill: the same landing value costs extra when
		// reached by a downhill step.
		if v1 < v0 {
			cost += m.wt.EndLowDownhill * (m.bandLo - v1) / m.tol * (1 + out)
		}
	}

	return cost
}
