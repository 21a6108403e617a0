package costmap

import (
	"github.com/rs/zerolog"

	"miraseg/pkg/grid"
	"miraseg/pkg/prng"
	"miraseg/pkg/stats"
)

// Weights are the per-term multipliers of the 2D edge-cost model. All terms
// are non-negative; a zero weight disables its term.
type Weights struct {
	// BaseStep scales the pure path-length term.
	BaseStep float64 `yaml:"baseStep"`

	// Edge scales the quadratic ramp above the adaptive gradient barrier.
	Edge float64 `yaml:"edge"`

	// Cross scales the intensity-jump term relative to the cross sigma.
	Cross float64 `yaml:"cross"`

	// Band scales the penalty for leaving the seed-anchored intensity band.
	Band float64 `yaml:"band"`

	// BrightSide discounts the band penalty when the band is exceeded on
	// the bright side, so hyperintense tissue is not falsely rejected.
	BrightSide float64 `yaml:"brightSide"`

	// Background scales the background-likeness penalty.
	Background float64 `yaml:"background"`

	// PreferHigh scales the ramp that makes low and mid intensities
	// expensive to enter even absent a sharp edge.
	PreferHigh float64 `yaml:"preferHigh"`

	// EndLowDownhill scales the penalty for a downhill step landing below
	// the core intensity band.
	EndLowDownhill float64 `yaml:"endLowDownhill"`

	// RadialOuter scales the extra cost applied outside the seed box as the
	// radial prior decays.
	RadialOuter float64 `yaml:"radialOuter"`

	// UphillDiscount multiplies directional terms when stepping into
	// brighter intensity; moving into high intensity is cheap.
	UphillDiscount float64 `yaml:"uphillDiscount"`

	// LeaveHighExtra is added to the directional multiplier when a downhill
	// step leaves an already-high-intensity pixel, so paths do not cheaply
	// re-cross back into background.
	LeaveHighExtra float64 `yaml:"leaveHighExtra"`
}

// DefaultWeights returns the stock 2D cost weights.
func DefaultWeights() Weights {
	return Weights{
		BaseStep:       0.1,
		Edge:           1.0,
		Cross:          0.6,
		Band:           0.8,
		BrightSide:     0.25,
		Background:     0.8,
		PreferHigh:     0.5,
		EndLowDownhill: 0.7,
		RadialOuter:    3.0,
		UphillDiscount: 0.25,
		LeaveHighExtra: 0.5,
	}
}

// Tuning holds the statistical and structural parameters of the 2D model.
type Tuning struct {
	// SeedDiskRadius is the radius of the disk around the anchor used for
	// tumor statistics and barrier estimation.
	SeedDiskRadius int `yaml:"seedDiskRadius"`

	// SigmaFloor floors the tumor/background sigma estimates.
	SigmaFloor float64 `yaml:"sigmaFloor"`

	// FallbackSigma is used when too few samples are available for a robust
	// estimate; mu then falls back to the seed intensity.
	FallbackSigma float64 `yaml:"fallbackSigma"`

	// BandSigmas sets the acceptance-band tolerance as a multiple of the
	// tumor sigma; MinBandTolerance floors it in intensity units.
	BandSigmas       float64 `yaml:"bandSigmas"`
	MinBandTolerance float64 `yaml:"minBandTolerance"`

	// CrossSigmaScale derives the cross sigma from the tumor sigma.
	CrossSigmaScale float64 `yaml:"crossSigmaScale"`

	// BarrierSigmas, MinBarrier and MaxBarrier control the adaptive edge
	// barrier estimated from seed-local gradient samples.
	BarrierSigmas      float64 `yaml:"barrierSigmas"`
	MinBarrier         float64 `yaml:"minBarrier"`
	MaxBarrier         float64 `yaml:"maxBarrier"`
	GradientSigmaFloor float64 `yaml:"gradientSigmaFloor"`

	// BGMargin is the z-score margin before a value counts as more
	// background-like than tumor-like.
	BGMargin float64 `yaml:"bgMargin"`

	// LooseHighZ gates the background term off for clearly bright values
	// (>= mu + LooseHighZ*sigma of the tumor stats).
	LooseHighZ float64 `yaml:"looseHighZ"`

	// HighLeaveZ sets the gate above which a pixel counts as high-intensity
	// for the leave-high directional surcharge.
	HighLeaveZ float64 `yaml:"highLeaveZ"`

	// RadialK is the decay rate of the radial outer prior.
	RadialK float64 `yaml:"radialK"`

	// SeedBoxHalf is the default half-size of the sampling/seed box around
	// the anchor when the caller supplies none.
	SeedBoxHalf int `yaml:"seedBoxHalf"`

	// MaxCost bounds the solve; cells beyond the budget stay at +Inf.
	// Zero means unbounded.
	MaxCost float64 `yaml:"maxCost"`

	// Gamma is the power-law warp of the slider-to-threshold mapping.
	Gamma float64 `yaml:"gamma"`
}

// DefaultTuning returns the stock 2D tuning.
func DefaultTuning() Tuning {
	return Tuning{
		SeedDiskRadius:     5,
		SigmaFloor:         4.0,
		FallbackSigma:      8.0,
		BandSigmas:         2.0,
		MinBandTolerance:   12.0,
		CrossSigmaScale:    0.9,
		BarrierSigmas:      2.5,
		MinBarrier:         6.0,
		MaxBarrier:         64.0,
		GradientSigmaFloor: 1.5,
		BGMargin:           1.0,
		LooseHighZ:         1.0,
		HighLeaveZ:         0.5,
		RadialK:            2.5,
		SeedBoxHalf:        6,
		MaxCost:            0,
		Gamma:              1.6,
	}
}

// Options configure a single ComputeCostDistanceMap invocation. The zero
// value requests a single-seed, full-grid solve with default weights.
type Options struct {
	// ROI clamps the solver domain to a rectangle; the anchor seed must
	// lie inside it. Nil means the full grid.
	ROI *grid.Rect

	// SeedBox overrides the sampling box around the anchor seed.
	SeedBox *grid.Rect

	// SeedCount is the total number of working seeds to resolve, anchor
	// included. Values below 2 keep only the anchor.
	SeedCount int

	// RNG overrides the sampler's random source. When nil, a deterministic
	// stream is derived from RNGSeed or hashed from the anchor and box.
	RNG prng.Source

	// RNGSeed pins the derived stream when RNG is nil.
	RNGSeed *uint32

	// Weights and Tuning override the defaults when non-nil.
	Weights *Weights
	Tuning  *Tuning

	// YieldEvery sets how many heap pops pass between cancellation polls
	// and scheduler yields. Zero selects the default.
	YieldEvery int

	// Debug enables solver progress logging on Logger. A nil Logger
	// disables output.
	Debug  bool
	Logger *zerolog.Logger
}

// SeedStats records the statistics the cost model was built from.
type SeedStats struct {
	// SeedValue is the intensity sampled at the anchor seed.
	SeedValue float64

	// Tumor is the robust estimate over the seed disk.
	Tumor stats.Robust

	// Background is the robust estimate over the ring outside the seed
	// box, or nil when too few samples were available.
	Background *stats.Robust

	// Barrier is the adaptive gradient barrier.
	Barrier float64

	// BandLo and BandHi bound the acceptance band.
	BandLo, BandHi float64
}

// Result is the dense outcome of a 2D cost-distance solve. Thresholding is
// applied by the caller, via the quantile LUT.
type Result struct {
	// Dist is the per-pixel cost distance, +Inf where unreached.
	Dist []float32

	// QuantileLUT is the 256-entry empirical quantile table over the
	// finite distances.
	QuantileLUT []float32

	// Seed is the anchor; Seeds is the full resolved working set, anchor
	// first.
	Seed  grid.Point
	Seeds []grid.Point

	// Stats, Weights and Tuning echo the model the field was computed
	// under.
	Stats   SeedStats
	Weights Weights
	Tuning  Tuning
}
