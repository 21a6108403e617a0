package regiongrow

import (
	"github.com/rs/zerolog"
)

// MaxUnboundedVoxels is the largest volume the guided grower will accept
// without a region of interest. Above this, unbounded per-voxel cost arrays
// would be allocated, so the caller must supply an ROI instead.
const MaxUnboundedVoxels = 4 << 20

// DefaultMaxVoxels caps the included-voxel list when the caller sets none.
const DefaultMaxVoxels = 1 << 20

// DefaultMaxCost is the guided grower's cost budget when the caller sets
// none.
const DefaultMaxCost = 8.0

// Weights are the per-term multipliers of the 3D edge-cost model, in
// normalized intensity units.
type Weights struct {
	// BaseInside and BaseOutside scale the path-length term; the radial
	// prior interpolates between them across the ROI boundary.
	BaseInside  float64 `yaml:"baseInside"`
	BaseOutside float64 `yaml:"baseOutside"`

	// Edge scales the quadratic ramp above the jump barrier.
	Edge float64 `yaml:"edge"`

	// Cross scales the intensity-jump term relative to the cross sigma.
	Cross float64 `yaml:"cross"`

	// Band scales the penalty for values outside the [min,max] band;
	// BrightSide discounts it above the band.
	Band       float64 `yaml:"band"`
	BrightSide float64 `yaml:"brightSide"`

	// Background scales the background-likeness penalty.
	Background float64 `yaml:"background"`

	// PreferHigh penalizes low landing intensities; EndLowDownhill adds to
	// that when the step is also downhill.
	PreferHigh     float64 `yaml:"preferHigh"`
	EndLowDownhill float64 `yaml:"endLowDownhill"`

	// UphillDiscount and LeaveHighExtra form the directional asymmetry.
	UphillDiscount float64 `yaml:"uphillDiscount"`
	LeaveHighExtra float64 `yaml:"leaveHighExtra"`
}

// DefaultWeights returns the stock 3D cost weights.
func DefaultWeights() Weights {
	return Weights{
		BaseInside:     0.05,
		BaseOutside:    0.15,
		Edge:           1.0,
		Cross:          0.6,
		Band:           0.8,
		BrightSide:     0.25,
		Background:     0.6,
		PreferHigh:     0.5,
		EndLowDownhill: 0.7,
		UphillDiscount: 0.25,
		LeaveHighExtra: 0.5,
	}
}

// Tuning holds the statistical parameters of the 3D model, in normalized
// intensity units.
type Tuning struct {
	// SeedNeighborhood is the half-size of the cube around each seed used
	// for tumor statistics (1 selects a 3x3x3 neighborhood).
	SeedNeighborhood int `yaml:"seedNeighborhood"`

	// SigmaFloor floors the robust sigma estimates; FallbackSigma applies
	// when too few in-band samples exist, with mu falling back to the seed
	// intensity.
	SigmaFloor    float64 `yaml:"sigmaFloor"`
	FallbackSigma float64 `yaml:"fallbackSigma"`

	// CrossSigmaScale derives the cross sigma from the tumor sigma.
	CrossSigmaScale float64 `yaml:"crossSigmaScale"`

	// BarrierSigmas sets the jump barrier as a multiple of the tumor sigma.
	BarrierSigmas float64 `yaml:"barrierSigmas"`

	// BGMargin and LooseHighZ control the background-likeness term as in
	// the 2D model.
	BGMargin   float64 `yaml:"bgMargin"`
	LooseHighZ float64 `yaml:"looseHighZ"`

	// HighLeaveZ gates the leave-high directional surcharge.
	HighLeaveZ float64 `yaml:"highLeaveZ"`

	// RadialK is the decay rate of the ROI radial prior.
	RadialK float64 `yaml:"radialK"`

	// ROIMargin expands the guide-mode solver domain beyond the ROI box.
	ROIMargin int `yaml:"roiMargin"`
}

// DefaultTuning returns the stock 3D tuning.
func DefaultTuning() Tuning {
	return Tuning{
		SeedNeighborhood: 1,
		SigmaFloor:       0.02,
		FallbackSigma:    0.05,
		CrossSigmaScale:  0.9,
		BarrierSigmas:    2.5,
		BGMargin:         1.0,
		LooseHighZ:       1.0,
		HighLeaveZ:       0.5,
		RadialK:          2.5,
		ROIMargin:        8,
	}
}

// Options configure a single growth invocation.
type Options struct {
	// SeedIndices adds explicit flat voxel indices to the working seed set.
	SeedIndices []int

	// SeedFromROICentroid replaces the seed argument with the ROI centroid
	// as the sole anchor.
	SeedFromROICentroid bool

	// MaxVoxels caps the included-voxel list. Zero selects
	// DefaultMaxVoxels.
	MaxVoxels int

	// MaxCost is the guided grower's budget: once the cheapest frontier
	// entry exceeds it the run stops. Zero selects DefaultMaxCost; a
	// negative value removes the budget.
	MaxCost float64

	// Connectivity is 6 or 26. Zero selects 6.
	Connectivity int

	// YieldEvery sets how many processed voxels pass between cancellation
	// polls and scheduler yields. Zero selects the default.
	YieldEvery int

	// Weights and Tuning override the defaults when non-nil (guided
	// variant only).
	Weights *Weights
	Tuning  *Tuning

	// Debug enables progress logging on Logger. A nil Logger disables
	// output.
	Debug  bool
	Logger *zerolog.Logger
}

// Result is the sparse outcome of a 3D growth: the included voxel indices
// in discovery order.
type Result struct {
	// Indices are flat voxel indices, ordered by discovery (ascending
	// cost for the guided variant).
	Indices []uint32

	// Count is len(Indices).
	Count int

	// SeedValue is the intensity sampled at the primary seed.
	SeedValue float32

	// HitMaxVoxels reports that growth stopped at the MaxVoxels cap.
	HitMaxVoxels bool
}
