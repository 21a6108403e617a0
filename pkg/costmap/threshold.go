package costmap

import (
	"math"
	"slices"
)

const (
	// lutSize is the number of quantile entries exposed to slider mapping.
	lutSize = 256

	// quantileTarget is the sample count the stride aims for when scanning
	// the finite distances.
	quantileTarget = 20000
)

// buildQuantileLUT samples the finite entries of the distance field on a
// stride targeting quantileTarget samples, sorts them, and interpolates a
// lutSize-entry empirical quantile function over the sorted order.
func buildQuantileLUT(dist []float32) []float32 {
	stride := len(dist) / quantileTarget
	if stride < 1 {
		stride = 1
	}

	samples := make([]float32, 0, len(dist)/stride+1)
	for i := 0; i < len(dist); i += stride {
		if d := dist[i]; d < inf32 {
			samples = append(samples, d)
		}
	}

	lut := make([]float32, lutSize)
	if len(samples) == 0 {
		return lut
	}

	slices.Sort(samples)

	n := len(samples)
	for i := 0; i < lutSize; i++ {
		pos := float64(i) / float64(lutSize-1) * float64(n-1)
		lo := int(pos)
		frac := pos - float64(lo)
		if lo >= n-1 {
			lut[i] = samples[n-1]
			continue
		}
		lut[i] = samples[lo] + float32(frac)*(samples[lo+1]-samples[lo])
	}
	return lut
}

// ThresholdFromSlider maps a slider position in [0,1] onto a distance
// threshold through the quantile LUT, warping the slider by slider^gamma so
// resolution concentrates at small, common thresholds. A gamma <= 0 selects
// the tuning's default. Increasing slider values always yield non-shrinking
// masks because the LUT is monotone.
func (r *Result) ThresholdFromSlider(slider, gamma float64) float64 {
	if gamma <= 0 {
		gamma = r.Tuning.Gamma
	}
	if slider < 0 {
		slider = 0
	}
	if slider > 1 {
		slider = 1
	}

	pos := math.Pow(slider, gamma) * float64(lutSize-1)
	lo := int(pos)
	if lo >= lutSize-1 {
		return float64(r.QuantileLUT[lutSize-1])
	}
	frac := pos - float64(lo)
	a := float64(r.QuantileLUT[lo])
	b := float64(r.QuantileLUT[lo+1])
	return a + frac*(b-a)
}
