package regiongrow

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"

	"miraseg/internal/pqueue"
	"miraseg/pkg/grid"
	"miraseg/pkg/stats"
)

var inf32 = float32(math.Inf(1))

// GrowGuided performs cost-distance region growth: a multi-source Dijkstra
// under the adaptive 3D cost model, bounded by the ROI domain and the cost
// budget. Included voxels are those finalized within budget whose intensity
// passes the (ROI-scaled) acceptance band; they are returned in pop order,
// so ascending cost distance.
//
// Without an ROI the volume must stay under MaxUnboundedVoxels, because the
// per-voxel distance array covers the whole grid; with an ROI the array
// covers only the domain box.
func GrowGuided(ctx context.Context, vol *grid.Volume, seed grid.Point3, min, max float32, roi *grid.ROI, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if min > max {
		return nil, fmt.Errorf("regiongrow: band [%v,%v] is empty", min, max)
	}

	var roiBox *grid.Box
	if roi != nil {
		roiBox = &roi.Box
	}
	seedIdxs, err := validate(vol, seed, roiBox, opts)
	if err != nil {
		return nil, err
	}
	if roi == nil && vol.Len() > MaxUnboundedVoxels {
		return nil, fmt.Errorf("regiongrow: volume of %d voxels requires an ROI (limit %d without one)",
			vol.Len(), MaxUnboundedVoxels)
	}
	nsteps, err := stepCount(opts.Connectivity)
	if err != nil {
		return nil, err
	}

	wt := DefaultWeights()
	if opts.Weights != nil {
		wt = *opts.Weights
	}
	tn := DefaultTuning()
	if opts.Tuning != nil {
		tn = *opts.Tuning
	}

	domain := grid.Box{Max: grid.Point3{X: vol.NX - 1, Y: vol.NY - 1, Z: vol.NZ - 1}}
	if roi != nil {
		switch roi.Mode {
		case grid.ROIHard:
			domain = roi.Box.Clip(vol.NX, vol.NY, vol.NZ)
		case grid.ROIGuide:
			domain = roi.Box.Expand(tn.ROIMargin).Clip(vol.NX, vol.NY, vol.NZ)
		}
		if domain.Empty() {
			return nil, fmt.Errorf("regiongrow: ROI does not intersect the volume")
		}
	}

	// Seeds outside the domain cannot initialize the field.
	inDomain := seedIdxs[:0]
	for _, idx := range seedIdxs {
		c := vol.Coord(idx)
		if domain.Contains(c.X, c.Y, c.Z) {
			inDomain = append(inDomain, idx)
		}
	}
	if len(inDomain) == 0 {
		return nil, fmt.Errorf("regiongrow: no seed lies within the solver domain")
	}
	seedIdxs = inDomain

	maxVoxels := opts.MaxVoxels
	if maxVoxels <= 0 {
		maxVoxels = DefaultMaxVoxels
	}
	maxCost := opts.MaxCost
	if maxCost == 0 {
		maxCost = DefaultMaxCost
	}
	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = defaultYieldEvery
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	seedValue := vol.Data[seedIdxs[0]]
	tumor := estimateTumor3D(vol, seedIdxs, float64(min), float64(max), float64(seedValue), tn)
	bg := estimateBackground3D(vol, domain, roi, tn)
	model := newCostModel3(vol, tumor, bg, float64(min), float64(max), roi, wt, tn)

	if opts.Debug {
		logger.Debug().
			Float32("seedValue", seedValue).
			Float64("mu", tumor.Mu).
			Float64("sigma", tumor.Sigma).
			Float64("barrier", model.barrier).
			Bool("background", bg != nil).
			Int("domainVoxels", domain.Len()).
			Msg("guided growth model")
	}

	// Distance array over the domain box only, with local indexing.
	dw := domain.Max.X - domain.Min.X + 1
	dh := domain.Max.Y - domain.Min.Y + 1
	dist := make([]float32, domain.Len())
	for i := range dist {
		dist[i] = inf32
	}
	local := func(x, y, z int) int32 {
		return int32(((z-domain.Min.Z)*dh+(y-domain.Min.Y))*dw + (x - domain.Min.X))
	}

	res := &Result{SeedValue: seedValue}
	var q pqueue.Queue
	for _, idx := range seedIdxs {
		c := vol.Coord(idx)
		li := local(c.X, c.Y, c.Z)
		if dist[li] == 0 {
			continue
		}
		dist[li] = 0
		q.Push(int32(idx), 0)
	}

	pops := 0
	for {
		item, ok := q.PopMin()
		if !ok {
			break
		}
		c := vol.Coord(int(item.Index))
		li := local(c.X, c.Y, c.Z)
		if item.Priority != dist[li] {
			continue // stale entry
		}
		if maxCost > 0 && float64(item.Priority) > maxCost {
			break // non-decreasing pops: everything left is over budget
		}

		pops++
		if pops%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
			if opts.Debug {
				logger.Debug().
					Int("pops", pops).
					Int("included", len(res.Indices)).
					Float32("dist", item.Priority).
					Msg("guided growth frontier")
			}
		}

		v := float64(vol.Data[item.Index])
		if model.includeGate(v, c.X, c.Y, c.Z) {
			if len(res.Indices) >= maxVoxels {
				res.HitMaxVoxels = true
				break
			}
			res.Indices = append(res.Indices, uint32(item.Index))
		}

		for _, s := range steps3D[:nsteps] {
			nx, ny, nz := c.X+s.dx, c.Y+s.dy, c.Z+s.dz
			if !domain.Contains(nx, ny, nz) {
				continue
			}
			nidx := vol.Idx(nx, ny, nz)
			nli := local(nx, ny, nz)
			cand := item.Priority + float32(model.stepCost(v, float64(vol.Data[nidx]), nx, ny, nz, s.stepLen))
			if cand < dist[nli] {
				dist[nli] = cand
				q.Push(int32(nidx), cand)
			}
		}
	}

	res.Count = len(res.Indices)
	return res, nil
}

// estimateTumor3D collects in-band intensities from the neighborhood cube
// of every seed and estimates robust statistics over them, falling back to
// the seed intensity with a fixed sigma when too few qualify.
func estimateTumor3D(vol *grid.Volume, seedIdxs []int, min, max, seedValue float64, tn Tuning) stats.Robust {
	r := tn.SeedNeighborhood
	var samples []float64
	for _, idx := range seedIdxs {
		c := vol.Coord(idx)
		for dz := -r; dz <= r; dz++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					x, y, z := c.X+dx, c.Y+dy, c.Z+dz
					if !vol.InBounds(x, y, z) {
						continue
					}
					v := float64(vol.At(x, y, z))
					if v < min || v > max {
						continue
					}
					samples = append(samples, v)
				}
			}
		}
	}

	if est, ok := stats.Estimate(samples, tn.SigmaFloor); ok {
		return est
	}
	return stats.Robust{Mu: seedValue, Sigma: tn.FallbackSigma}
}

// estimateBackground3D samples the domain border shell outside the ROI box.
// In hard mode the domain equals the box, so no background sample exists
// and the term stays disabled.
func estimateBackground3D(vol *grid.Volume, domain grid.Box, roi *grid.ROI, tn Tuning) *stats.Robust {
	if roi == nil {
		return nil
	}

	var samples []float64
	for z := domain.Min.Z; z <= domain.Max.Z; z++ {
		for y := domain.Min.Y; y <= domain.Max.Y; y++ {
			for x := domain.Min.X; x <= domain.Max.X; x++ {
				onShell := x == domain.Min.X || x == domain.Max.X ||
					y == domain.Min.Y || y == domain.Max.Y ||
					z == domain.Min.Z || z == domain.Max.Z
				if !onShell || roi.Box.Contains(x, y, z) {
					continue
				}
				samples = append(samples, float64(vol.At(x, y, z)))
			}
		}
	}

	if est, ok := stats.Estimate(samples, tn.SigmaFloor); ok {
		return &est
	}
	return nil
}
