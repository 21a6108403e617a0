package regiongrow

import (
	"math"

	"miraseg/pkg/grid"
	"miraseg/pkg/stats"
)

// costModel3 is the per-edge cost function of the guided 3D variant. Pure:
// stepCost depends only on the endpoint intensities and coordinates plus
// the frozen statistics, prior and weights.
type costModel3 struct {
	vol *grid.Volume

	tumor stats.Robust
	bg    *stats.Robust

	bandC, tol float64 // acceptance band center and half width
	barrier    float64
	crossSigma float64
	looseHigh  float64
	highLeave  float64

	roi                    *grid.ROI
	cx, cy, cz, hx, hy, hz float64
	outScale               float64

	wt Weights
	tn Tuning
}

func newCostModel3(vol *grid.Volume, tumor stats.Robust, bg *stats.Robust, min, max float64, roi *grid.ROI, wt Weights, tn Tuning) *costModel3 {
	m := &costModel3{
		vol:        vol,
		tumor:      tumor,
		bg:         bg,
		bandC:      (min + max) / 2,
		tol:        (max - min) / 2,
		barrier:    tn.BarrierSigmas * tumor.Sigma,
		crossSigma: tn.CrossSigmaScale * tumor.Sigma,
		looseHigh:  tumor.Mu + tn.LooseHighZ*tumor.Sigma,
		highLeave:  tumor.Mu + tn.HighLeaveZ*tumor.Sigma,
		roi:        roi,
		wt:         wt,
		tn:         tn,
	}
	if m.tol <= 0 {
		m.tol = tn.FallbackSigma
	}
	if roi != nil {
		m.cx, m.cy, m.cz = roi.Box.Center()
		m.hx, m.hy, m.hz = roi.Box.HalfExtents()
		m.outScale = roi.OutsideToleranceScale
		if m.outScale < 0 {
			m.outScale = 0
		}
		if m.outScale > 1 {
			m.outScale = 1
		}
	}
	return m
}

// radialWeight is the ROI radial decay prior: 1 inside the box,
// exp(-k*t^2) outside with t the excess normalized L-inf distance from the
// box centroid. Without an ROI the prior is inert.
func (m *costModel3) radialWeight(x, y, z int) float64 {
	if m.roi == nil {
		return 1
	}
	dx := math.Abs(float64(x)-m.cx) / m.hx
	dy := math.Abs(float64(y)-m.cy) / m.hy
	dz := math.Abs(float64(z)-m.cz) / m.hz
	d := dx
	if dy > d {
		d = dy
	}
	if dz > d {
		d = dz
	}
	t := d - 1
	if t <= 0 {
		return 1
	}
	return math.Exp(-m.tn.RadialK * t * t)
}

// effTol is the band half width the cost terms see: full inside the ROI,
// smoothly narrowing toward OutsideToleranceScale*tol with the radial
// decay outside.
func (m *costModel3) effTol(w float64) float64 {
	if m.roi == nil {
		return m.tol
	}
	return m.tol * (m.outScale + (1-m.outScale)*w)
}

// includeGate reports whether a voxel's intensity qualifies for the result
// set. Outside the ROI box the tolerance scale applies directly, which
// keeps inclusion decidable right at the boundary; the cost terms use the
// smooth radial decay instead.
func (m *costModel3) includeGate(v float64, x, y, z int) bool {
	tol := m.tol
	if m.roi != nil && !m.roi.Box.Contains(x, y, z) {
		tol *= m.outScale
	}
	return v >= m.bandC-tol && v <= m.bandC+tol
}

func (m *costModel3) dirScale(v0, v1 float64) float64 {
	if v1 >= v0 {
		return m.wt.UphillDiscount
	}
	s := 1.0
	if v0 >= m.highLeave {
		s += m.wt.LeaveHighExtra
	}
	return s
}

// stepCost returns the non-negative cost of the directed step landing on
// (x1,y1,z1) with intensity v1, coming from intensity v0 over stepLen.
func (m *costModel3) stepCost(v0, v1 float64, x1, y1, z1 int, stepLen float64) float64 {
	w := m.radialWeight(x1, y1, z1)
	out := 1 - w

	cost := stepLen * (w*m.wt.BaseInside + out*m.wt.BaseOutside)

	dir := m.dirScale(v0, v1)
	jump := math.Abs(v1 - v0)

	// Jump barrier: the 3D variant has no precomputed gradient field, the
	// per-edge jump against 2.5 sigma of the tumor stats plays its role.
	if jump > m.barrier {
		r := (jump - m.barrier) / m.barrier
		cost += m.wt.Edge * r * r * dir * (1 + out)
	}

	if z := jump / m.crossSigma; z > 1 {
		cost += m.wt.Cross * (z - 1) * (z - 1) * dir * (1 + out)
	}

	et := m.effTol(w)
	lo, hi := m.bandC-et, m.bandC+et
	if v1 > hi {
		r := (v1 - hi) / et
		cost += m.wt.Band * m.wt.BrightSide * r * r * (1 + out)
	} else if v1 < lo {
		r := (lo - v1) / et
		cost += m.wt.Band * r * r * (1 + out)
	}

	if m.bg != nil && v1 < m.looseHigh {
		if d := m.tumor.Z(v1) - m.bg.Z(v1) - m.tn.BGMargin; d > 0 {
			cost += m.wt.Background * d * (1 + out)
		}
	}

	if v1 < lo {
		cost += m.wt.PreferHigh * (lo - v1) / et * (1 + out)
		if v1 < v0 {
			cost += m.wt.EndLowDownhill * (lo - v1) / et * (1 + out)
		}
	}

	return cost
}
