// Package stats provides robust location/scale estimation for intensity
// samples. Both the foreground ("tumor") and background statistics used by
// the cost models are produced here.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinSamples is the smallest sample count Estimate accepts. Below this the
// median/MAD pair is too noisy to anchor an intensity band.
const MinSamples = 16

// madToSigma converts a median absolute deviation to a normal-equivalent
// standard deviation.
const madToSigma = 1.4826

// Robust is a robust location/scale pair.
type Robust struct {
	// Mu is the sample median.
	Mu float64

	// Sigma is the MAD-derived scale, floored to avoid over-confident
	// narrow bands from small or noisy samples.
	Sigma float64
}

// Z returns the z-score of v against the estimate.
func (r Robust) Z(v float64) float64 {
	return math.Abs(v-r.Mu) / r.Sigma
}

// Estimate computes a median/MAD estimate over samples, flooring sigma at
// sigmaFloor. It reports ok=false when fewer than MinSamples values are
// supplied or the result is non-finite; callers must then fall back to a
// documented default (typically the seed intensity with a fixed sigma).
// The input slice is not modified.
func Estimate(samples []float64, sigmaFloor float64) (Robust, bool) {
	if len(samples) < MinSamples {
		return Robust{}, false
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	mu := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	// Reuse the scratch slice for the absolute deviations.
	for i, v := range samples {
		sorted[i] = math.Abs(v - mu)
	}
	sort.Float64s(sorted)
	mad := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	sigma := madToSigma * mad
	if sigma < sigmaFloor {
		sigma = sigmaFloor
	}

	if math.IsNaN(mu) || math.IsInf(mu, 0) || math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= 0 {
		return Robust{}, false
	}

	return Robust{Mu: mu, Sigma: sigma}, true
}
