package costmap

import (
	"context"
	"math"
	"testing"

	"miraseg/pkg/grid"
	"miraseg/pkg/stats"
)

// brightImage builds a w-by-h image filled with a single intensity.
func brightImage(w, h int, v uint8) *grid.Image {
	img := grid.NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// walledImage builds a mid-intensity field split by a full-height bright
// wall at column wallX.
func walledImage(w, h, wallX int) *grid.Image {
	img := brightImage(w, h, 100)
	for y := 0; y < h; y++ {
		img.Pix[y*w+wallX] = 250
	}
	return img
}

// flatModel builds a cost model over img with fixed statistics and a seed
// box covering the whole grid, so the radial prior stays at 1 everywhere.
func flatModel(img *grid.Image) *costModel {
	st := SeedStats{
		SeedValue: 200,
		Tumor:     stats.Robust{Mu: 200, Sigma: 4},
		Barrier:   6,
		BandLo:    188,
		BandHi:    212,
	}
	box := grid.Rect{X0: 0, Y0: 0, X1: img.W - 1, Y1: img.H - 1}
	grad := make([]float32, img.W*img.H)
	return newCostModel(img, grad, st, box, DefaultWeights(), DefaultTuning())
}

// TestComputeBasics verifies the fundamental shape of a solve: zero distance
// at the seed, finite distances on the connected bright region, and a full
// quantile table.
func TestComputeBasics(t *testing.T) {
	img := brightImage(32, 32, 180)
	seed := grid.Point{X: 16, Y: 16}

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, seed, nil)
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	if len(res.Dist) != 32*32 {
		t.Fatalf("Expected %d distances, got %d", 32*32, len(res.Dist))
	}
	for _, s := range res.Seeds {
		if d := res.Dist[img.Idx(s.X, s.Y)]; d != 0 {
			t.Errorf("Expected zero distance at seed %v, got %f", s, d)
		}
	}
	if res.Stats.SeedValue != 180 {
		t.Errorf("Expected seed value 180, got %f", res.Stats.SeedValue)
	}
	if len(res.Seeds) == 0 || res.Seeds[0] != seed {
		t.Errorf("Expected the anchor first in the seed set, got %v", res.Seeds)
	}
	if len(res.QuantileLUT) != 256 {
		t.Fatalf("Expected a 256-entry LUT, got %d", len(res.QuantileLUT))
	}

	for i, d := range res.Dist {
		if math.IsInf(float64(d), 1) {
			t.Fatalf("Pixel %d unreached on a uniform unbounded solve", i)
		}
		if d < 0 {
			t.Fatalf("Pixel %d has negative distance %f", i, d)
		}
	}
}

// TestWallBarrier verifies that crossing a bright wall costs far more than
// approaching it: the first pixel past the wall must sit at least 12 units
// beyond the last pixel before it.
func TestWallBarrier(t *testing.T) {
	img := walledImage(80, 80, 40)
	seed := grid.Point{X: 20, Y: 40}

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, seed, nil)
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	before := float64(res.Dist[img.Idx(30, 40)])
	after := float64(res.Dist[img.Idx(52, 40)])

	if math.IsInf(before, 1) {
		t.Fatal("Near side of the wall should be reachable")
	}
	if math.IsInf(after, 1) {
		t.Fatal("Far side of the wall should still be reachable on an unbounded solve")
	}
	if after-before <= 12 {
		t.Errorf("Expected a wall penalty above 12, got %f (before=%f after=%f)",
			after-before, before, after)
	}
}

// TestDirectionalAsymmetry verifies that stepping down out of bright tissue
// costs substantially more than stepping up into it across the same edge.
func TestDirectionalAsymmetry(t *testing.T) {
	img := brightImage(8, 8, 200)
	img.Pix[img.Idx(2, 1)] = 100

	m := flatModel(img)

	down := m.stepCost(1, 1, 2, 1)
	up := m.stepCost(2, 1, 1, 1)

	if down-up <= 8 {
		t.Errorf("Expected downhill to exceed uphill by more than 8, got down=%f up=%f", down, up)
	}
	if down <= 2*up {
		t.Errorf("Expected downhill at least twice uphill, got down=%f up=%f", down, up)
	}
}

// TestSplitFieldAsymmetry verifies the asymmetry end to end: on a grid
// split bright/dark at x=40, a bright-seeded solve reaching into the dark
// side accumulates materially more cost than a dark-seeded solve reaching
// the same depth into the bright side.
func TestSplitFieldAsymmetry(t *testing.T) {
	img := brightImage(80, 80, 200)
	for y := 0; y < 80; y++ {
		for x := 40; x < 80; x++ {
			img.Pix[y*80+x] = 60
		}
	}

	s := NewSession()

	brightSeeded, err := s.ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 20, Y: 40}, nil)
	if err != nil {
		t.Fatalf("Bright-seeded solve failed: %v", err)
	}
	darkSeeded, err := s.ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 60, Y: 40}, nil)
	if err != nil {
		t.Fatalf("Dark-seeded solve failed: %v", err)
	}

	// Equal path lengths: 25 columns from each seed, 5 past the split.
	intoDark := float64(brightSeeded.Dist[img.Idx(45, 40)])
	intoBright := float64(darkSeeded.Dist[img.Idx(35, 40)])

	if math.IsInf(intoDark, 1) || math.IsInf(intoBright, 1) {
		t.Fatalf("Both sample pixels should be reachable, got %f and %f", intoDark, intoBright)
	}
	if intoDark-intoBright <= 8 {
		t.Errorf("Expected bright-to-dark to exceed dark-to-bright by more than 8, got %f vs %f",
			intoDark, intoBright)
	}
}

// TestDirScale verifies the three directional regimes: uphill discount,
// plain downhill, and downhill leaving a high-intensity pixel.
func TestDirScale(t *testing.T) {
	img := brightImage(4, 4, 200)
	m := flatModel(img)

	if s := m.dirScale(100, 200); s != 0.25 {
		t.Errorf("Expected uphill discount 0.25, got %f", s)
	}
	if s := m.dirScale(200, 100); s != 1 {
		t.Errorf("Expected plain downhill scale 1, got %f", s)
	}
	// highLeave is mu + 0.5*sigma = 202, so 210 qualifies.
	if s := m.dirScale(210, 100); s != 1.5 {
		t.Errorf("Expected leave-high scale 1.5, got %f", s)
	}
}

// TestRadialWeight verifies the spatial prior is 1 inside the seed box and
// decays monotonically outside it.
func TestRadialWeight(t *testing.T) {
	img := brightImage(64, 64, 200)
	st := SeedStats{
		SeedValue: 200,
		Tumor:     stats.Robust{Mu: 200, Sigma: 4},
		Barrier:   6,
		BandLo:    188,
		BandHi:    212,
	}
	box := grid.Rect{X0: 28, Y0: 28, X1: 36, Y1: 36}
	grad := make([]float32, 64*64)
	m := newCostModel(img, grad, st, box, DefaultWeights(), DefaultTuning())

	if w := m.radialWeight(32, 32); w != 1 {
		t.Errorf("Expected weight 1 at the centroid, got %f", w)
	}
	if w := m.radialWeight(36, 36); w != 1 {
		t.Errorf("Expected weight 1 at the box corner, got %f", w)
	}

	prev := 1.0
	for x := 37; x < 60; x += 4 {
		w := m.radialWeight(x, 32)
		if w >= prev {
			t.Errorf("Expected decay at x=%d, got %f after %f", x, w, prev)
		}
		if w <= 0 || w > 1 {
			t.Errorf("Weight at x=%d out of (0,1]: %f", x, w)
		}
		prev = w
	}
}

// TestQuantileLUTMonotone verifies the LUT is sorted and the slider mapping
// never shrinks as the slider grows, for both default and explicit gamma.
func TestQuantileLUTMonotone(t *testing.T) {
	img := brightImage(48, 48, 160)
	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 24, Y: 24}, nil)
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	for i := 1; i < len(res.QuantileLUT); i++ {
		if res.QuantileLUT[i] < res.QuantileLUT[i-1] {
			t.Fatalf("LUT entry %d (%f) below entry %d (%f)",
				i, res.QuantileLUT[i], i-1, res.QuantileLUT[i-1])
		}
	}

	for _, gamma := range []float64{0, 1, 1.6, 3} {
		prev := -1.0
		for s := 0.0; s <= 1.0; s += 0.01 {
			th := res.ThresholdFromSlider(s, gamma)
			if th < prev {
				t.Fatalf("Threshold shrank at slider %.2f (gamma %v): %f after %f", s, gamma, th, prev)
			}
			prev = th
		}
	}

	if got := res.ThresholdFromSlider(1, 0); float32(got) != res.QuantileLUT[255] {
		t.Errorf("Slider 1 should map to the top quantile, got %f want %f", got, res.QuantileLUT[255])
	}
	if got := res.ThresholdFromSlider(-5, 0); float32(got) != res.QuantileLUT[0] {
		t.Errorf("Sliders below 0 should clamp, got %f", got)
	}
}

// TestThresholdNesting verifies the masks induced by two slider positions
// nest: every pixel inside the smaller threshold is inside the larger one.
func TestThresholdNesting(t *testing.T) {
	img := walledImage(32, 32, 20)
	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 10, Y: 16}, nil)
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	lo := res.ThresholdFromSlider(0.3, 0)
	hi := res.ThresholdFromSlider(0.8, 0)
	if hi < lo {
		t.Fatalf("Thresholds out of order: %f then %f", lo, hi)
	}

	for i, d := range res.Dist {
		if float64(d) <= lo && float64(d) > hi {
			t.Fatalf("Pixel %d in the small mask but not the large one", i)
		}
	}
}

// TestSeedSamplingDeterministic verifies that a pinned stream reproduces the
// working seed set exactly, and that the implicit derivation is stable too.
func TestSeedSamplingDeterministic(t *testing.T) {
	img := brightImage(48, 48, 150)
	seed := grid.Point{X: 24, Y: 24}
	rngSeed := uint32(7)
	opts := &Options{SeedCount: 6, RNGSeed: &rngSeed}

	s := NewSession()
	a, err := s.ComputeCostDistanceMap(context.Background(), img, seed, opts)
	if err != nil {
		t.Fatalf("First solve failed: %v", err)
	}
	b, err := s.ComputeCostDistanceMap(context.Background(), img, seed, opts)
	if err != nil {
		t.Fatalf("Second solve failed: %v", err)
	}

	if len(a.Seeds) != len(b.Seeds) {
		t.Fatalf("Seed sets differ in size: %d vs %d", len(a.Seeds), len(b.Seeds))
	}
	for i := range a.Seeds {
		if a.Seeds[i] != b.Seeds[i] {
			t.Fatalf("Seed %d differs: %v vs %v", i, a.Seeds[i], b.Seeds[i])
		}
	}
	if len(a.Seeds) < 2 {
		t.Errorf("Expected extra seeds on a uniform image, got %d total", len(a.Seeds))
	}

	// Without a pinned stream the derivation hashes the anchor and box, so
	// repeat runs still agree.
	c, err := s.ComputeCostDistanceMap(context.Background(), img, seed, &Options{SeedCount: 6})
	if err != nil {
		t.Fatalf("Third solve failed: %v", err)
	}
	d, err := s.ComputeCostDistanceMap(context.Background(), img, seed, &Options{SeedCount: 6})
	if err != nil {
		t.Fatalf("Fourth solve failed: %v", err)
	}
	if len(c.Seeds) != len(d.Seeds) {
		t.Fatalf("Derived seed sets differ in size: %d vs %d", len(c.Seeds), len(d.Seeds))
	}
	for i := range c.Seeds {
		if c.Seeds[i] != d.Seeds[i] {
			t.Fatalf("Derived seed %d differs: %v vs %v", i, c.Seeds[i], d.Seeds[i])
		}
	}
}

// TestROIRestrictsDomain verifies pixels outside the solver ROI are never
// reached.
func TestROIRestrictsDomain(t *testing.T) {
	img := brightImage(32, 32, 180)
	roi := grid.Rect{X0: 8, Y0: 8, X1: 23, Y1: 23}

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 16, Y: 16},
		&Options{ROI: &roi})
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			d := res.Dist[img.Idx(x, y)]
			inside := roi.Contains(x, y)
			if inside && math.IsInf(float64(d), 1) {
				t.Errorf("Pixel (%d,%d) inside the ROI unreached", x, y)
			}
			if !inside && !math.IsInf(float64(d), 1) {
				t.Errorf("Pixel (%d,%d) outside the ROI reached with %f", x, y, d)
			}
		}
	}
}

// TestROIConfinesSampledSeeds verifies that extra sampled seeds respect the
// ROI even when the anchor sits near its edge, so no pixel outside the ROI
// ends up at finite distance.
func TestROIConfinesSampledSeeds(t *testing.T) {
	img := brightImage(32, 32, 180)
	roi := grid.Rect{X0: 8, Y0: 8, X1: 23, Y1: 23}

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 9, Y: 9},
		&Options{ROI: &roi, SeedCount: 8})
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	for _, s := range res.Seeds {
		if !roi.Contains(s.X, s.Y) {
			t.Errorf("Seed %v sampled outside the ROI", s)
		}
		if d := res.Dist[img.Idx(s.X, s.Y)]; d != 0 {
			t.Errorf("Expected zero distance at seed %v, got %f", s, d)
		}
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if roi.Contains(x, y) {
				continue
			}
			if d := res.Dist[img.Idx(x, y)]; !math.IsInf(float64(d), 1) {
				t.Errorf("Pixel (%d,%d) outside the ROI reached with %f", x, y, d)
			}
		}
	}
}

// TestSeedOutsideROI verifies an anchor outside the ROI is rejected.
func TestSeedOutsideROI(t *testing.T) {
	img := brightImage(32, 32, 180)
	roi := grid.Rect{X0: 8, Y0: 8, X1: 23, Y1: 23}

	_, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 2, Y: 2},
		&Options{ROI: &roi})
	if err == nil {
		t.Fatal("Expected an error for a seed outside the ROI")
	}
}

// TestMaxCostBudget verifies the solve stops expanding past the cost budget,
// leaving distant pixels at +Inf.
func TestMaxCostBudget(t *testing.T) {
	img := brightImage(64, 64, 200)
	tn := DefaultTuning()
	tn.MaxCost = 0.5

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 32, Y: 32},
		&Options{Tuning: &tn})
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	if d := res.Dist[img.Idx(32, 32)]; d != 0 {
		t.Errorf("Expected zero at the seed, got %f", d)
	}
	if d := res.Dist[img.Idx(33, 32)]; math.IsInf(float64(d), 1) {
		t.Error("Adjacent pixel should be inside the budget")
	}
	if d := res.Dist[img.Idx(0, 0)]; !math.IsInf(float64(d), 1) {
		t.Errorf("Far corner should be over budget, got %f", d)
	}
}

// TestCancellation verifies a canceled context surfaces as its error rather
// than a partial result.
func TestCancellation(t *testing.T) {
	img := brightImage(128, 128, 180)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSession().ComputeCostDistanceMap(ctx, img, grid.Point{X: 64, Y: 64},
		&Options{YieldEvery: 1})
	if err == nil {
		t.Fatal("Expected a cancellation error")
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Error("Expected no result on cancellation")
	}
}

// TestInputValidation verifies invalid input fails synchronously.
func TestInputValidation(t *testing.T) {
	s := NewSession()
	ctx := context.Background()

	if _, err := s.ComputeCostDistanceMap(ctx, nil, grid.Point{}, nil); err == nil {
		t.Error("Expected an error for a nil image")
	}

	bad := &grid.Image{Pix: make([]uint8, 10), W: 4, H: 4}
	if _, err := s.ComputeCostDistanceMap(ctx, bad, grid.Point{X: 1, Y: 1}, nil); err == nil {
		t.Error("Expected an error for a short pixel buffer")
	}

	img := brightImage(8, 8, 100)
	if _, err := s.ComputeCostDistanceMap(ctx, img, grid.Point{X: 8, Y: 0}, nil); err == nil {
		t.Error("Expected an error for an out-of-bounds seed")
	}
	if _, err := s.ComputeCostDistanceMap(ctx, img, grid.Point{X: -1, Y: 0}, nil); err == nil {
		t.Error("Expected an error for a negative seed")
	}
}

// TestStatsFallback verifies the documented fallback when the seed disk
// yields too few samples for a robust estimate.
func TestStatsFallback(t *testing.T) {
	img := brightImage(16, 16, 120)
	tn := DefaultTuning()
	tn.SeedDiskRadius = 1 // 5-pixel disk, below stats.MinSamples

	res, err := NewSession().ComputeCostDistanceMap(context.Background(), img, grid.Point{X: 8, Y: 8},
		&Options{Tuning: &tn})
	if err != nil {
		t.Fatalf("ComputeCostDistanceMap failed: %v", err)
	}

	if res.Stats.Tumor.Mu != 120 {
		t.Errorf("Expected fallback mu at the seed value, got %f", res.Stats.Tumor.Mu)
	}
	if res.Stats.Tumor.Sigma != tn.FallbackSigma {
		t.Errorf("Expected fallback sigma %f, got %f", tn.FallbackSigma, res.Stats.Tumor.Sigma)
	}
}

// TestGradientCacheReuse verifies repeated solves on the same slice reuse
// the memoized Sobel field and Invalidate forces a recompute.
func TestGradientCacheReuse(t *testing.T) {
	img := brightImage(16, 16, 90)
	s := NewSession()

	first := s.grads.Field(img)
	second := s.grads.Field(img)
	if &first[0] != &second[0] {
		t.Error("Expected the session to reuse the cached gradient field")
	}

	s.InvalidateGradient(img)
	third := s.grads.Field(img)
	if &first[0] == &third[0] {
		t.Error("Expected a fresh gradient field after invalidation")
	}
}
