// Package costmap implements the 2D cost-distance seeded segmentation
// variant: given a byte-intensity slice and an anchor seed, it computes a
// geodesic cost-distance field under a direction-aware, statistically
// adaptive edge-cost model, plus the quantile lookup table callers use to
// map an interactive slider onto a distance threshold.
package costmap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"miraseg/pkg/gradient"
	"miraseg/pkg/grid"
	"miraseg/pkg/stats"
)

// Ring geometry of the background sampling region, in pixels beyond the
// seed box.
const (
	bgRingGap   = 6
	bgRingWidth = 5
)

// Session is a reusable segmentation context. It owns the gradient
// memoization cache, so repeated solves over the same slice reuse the
// Sobel field. Each solve otherwise allocates its own state and sessions
// are safe for concurrent use.
type Session struct {
	grads *gradient.Cache
}

// NewSession returns a session with an empty gradient cache.
func NewSession() *Session {
	return &Session{grads: gradient.NewCache()}
}

// InvalidateGradient drops the cached gradient field for an image whose
// content is about to change.
func (s *Session) InvalidateGradient(img *grid.Image) {
	s.grads.Invalidate(img)
}

// ComputeCostDistanceMap computes the dense cost-distance field from the
// anchor seed (plus optionally sampled extra seeds) over the image.
// Invalid input fails synchronously before any work begins; cancellation
// of ctx surfaces as the context's error and is a distinct outcome, not a
// failure.
func (s *Session) ComputeCostDistanceMap(ctx context.Context, img *grid.Image, seed grid.Point, opts *Options) (*Result, error) {
	if img == nil || img.W <= 0 || img.H <= 0 {
		return nil, fmt.Errorf("costmap: invalid image dimensions")
	}
	if len(img.Pix) != img.W*img.H {
		return nil, fmt.Errorf("costmap: pixel buffer is %d bytes, expected %d", len(img.Pix), img.W*img.H)
	}
	if !img.InBounds(seed.X, seed.Y) {
		return nil, fmt.Errorf("costmap: seed (%d,%d) out of bounds %dx%d", seed.X, seed.Y, img.W, img.H)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &Options{}
	}

	wt := DefaultWeights()
	if opts.Weights != nil {
		wt = *opts.Weights
	}
	tn := DefaultTuning()
	if opts.Tuning != nil {
		tn = *opts.Tuning
	}

	domain := grid.Rect{X0: 0, Y0: 0, X1: img.W - 1, Y1: img.H - 1}
	if opts.ROI != nil {
		domain = opts.ROI.Clip(img.W, img.H)
		if domain.Empty() {
			return nil, fmt.Errorf("costmap: ROI does not intersect the image")
		}
		if !domain.Contains(seed.X, seed.Y) {
			return nil, fmt.Errorf("costmap: seed (%d,%d) lies outside the ROI", seed.X, seed.Y)
		}
	}

	grad := s.grads.Field(img)

	// The sampling box stays inside the solver domain so no resolved seed
	// can initialize a cell the ROI excludes.
	seedBox := grid.RectAround(seed, tn.SeedBoxHalf, tn.SeedBoxHalf)
	if opts.SeedBox != nil {
		seedBox = *opts.SeedBox
	}
	seedBox = seedBox.Clip(img.W, img.H).Intersect(domain)

	st := estimateSeedStats(img, grad, seed, seedBox, tn)

	src := deriveRNG(opts, img, seed, seedBox)
	seeds := sampleSeeds(img, grad, seed, seedBox, opts.SeedCount, st, tn, src)

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Debug {
		logger.Debug().
			Float64("seedValue", st.SeedValue).
			Float64("mu", st.Tumor.Mu).
			Float64("sigma", st.Tumor.Sigma).
			Float64("barrier", st.Barrier).
			Bool("background", st.Background != nil).
			Int("seeds", len(seeds)).
			Msg("cost-distance model")
	}

	model := newCostModel(img, grad, st, seedBox, wt, tn)
	dist, err := solve(ctx, img, model, seeds, domain, tn.MaxCost, opts.YieldEvery, logger, opts.Debug)
	if err != nil {
		return nil, err
	}

	return &Result{
		Dist:        dist,
		QuantileLUT: buildQuantileLUT(dist),
		Seed:        seed,
		Seeds:       seeds,
		Stats:       st,
		Weights:     wt,
		Tuning:      tn,
	}, nil
}

// estimateSeedStats builds the robust statistics the cost model runs on:
// tumor location/scale from a disk around the anchor, background
// location/scale from a ring outside the seed box, and the adaptive
// gradient barrier from seed-local gradient samples.
func estimateSeedStats(img *grid.Image, grad []float32, seed grid.Point, seedBox grid.Rect, tn Tuning) SeedStats {
	st := SeedStats{SeedValue: float64(img.At(seed.X, seed.Y))}

	r := tn.SeedDiskRadius
	disk := grid.RectAround(seed, r, r).Clip(img.W, img.H)
	var values, grads []float64
	for y := disk.Y0; y <= disk.Y1; y++ {
		for x := disk.X0; x <= disk.X1; x++ {
			dx, dy := x-seed.X, y-seed.Y
			if dx*dx+dy*dy > r*r {
				continue
			}
			idx := img.Idx(x, y)
			values = append(values, float64(img.Pix[idx]))
			grads = append(grads, float64(grad[idx]))
		}
	}

	tumor, ok := stats.Estimate(values, tn.SigmaFloor)
	if !ok {
		// Documented fallback: seed-disk intensity as mu, fixed sigma.
		tumor = stats.Robust{Mu: st.SeedValue, Sigma: tn.FallbackSigma}
	}
	st.Tumor = tumor

	tol := tn.BandSigmas * tumor.Sigma
	if tol < tn.MinBandTolerance {
		tol = tn.MinBandTolerance
	}
	st.BandLo = st.SeedValue - tol
	st.BandHi = st.SeedValue + tol

	gstats, ok := stats.Estimate(grads, tn.GradientSigmaFloor)
	if !ok {
		gstats = stats.Robust{Mu: 0, Sigma: tn.GradientSigmaFloor}
	}
	barrier := gstats.Mu + tn.BarrierSigmas*gstats.Sigma
	if barrier < tn.MinBarrier {
		barrier = tn.MinBarrier
	}
	if barrier > tn.MaxBarrier {
		barrier = tn.MaxBarrier
	}
	st.Barrier = barrier

	if bg, ok := estimateBackground(img, seedBox, tn); ok {
		st.Background = &bg
	}

	return st
}

// estimateBackground samples a rectangular ring outside the seed box.
// Too few in-bounds samples leave the background term disabled.
func estimateBackground(img *grid.Image, seedBox grid.Rect, tn Tuning) (stats.Robust, bool) {
	inner := grid.Rect{
		X0: seedBox.X0 - bgRingGap, Y0: seedBox.Y0 - bgRingGap,
		X1: seedBox.X1 + bgRingGap, Y1: seedBox.Y1 + bgRingGap,
	}
	outer := grid.Rect{
		X0: inner.X0 - bgRingWidth, Y0: inner.Y0 - bgRingWidth,
		X1: inner.X1 + bgRingWidth, Y1: inner.Y1 + bgRingWidth,
	}.Clip(img.W, img.H)

	var samples []float64
	for y := outer.Y0; y <= outer.Y1; y++ {
		for x := outer.X0; x <= outer.X1; x++ {
			if inner.Contains(x, y) {
				continue
			}
			samples = append(samples, float64(img.At(x, y)))
		}
	}

	return stats.Estimate(samples, tn.SigmaFloor)
}
