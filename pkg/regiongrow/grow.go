// Package regiongrow implements the 3D voxel variant of the seeded
// segmentation engine: plain intensity-band region growth and the guided
// cost-distance growth with region-of-interest priors. Results are sparse
// lists of included voxel indices in discovery order.
package regiongrow

import (
	"context"
	"fmt"
	"runtime"

	"miraseg/pkg/grid"
)

const defaultYieldEvery = 4096

// six-connectivity offsets, then the 20 remaining of the 26-neighborhood.
// stepLen is the Euclidean length of each offset.
type step3 struct {
	dx, dy, dz int
	stepLen    float64
}

var steps3D = buildSteps3D()

func buildSteps3D() []step3 {
	var s []step3
	// Axis steps first so 6-connectivity is a prefix.
	s = append(s,
		step3{1, 0, 0, 1}, step3{-1, 0, 0, 1},
		step3{0, 1, 0, 1}, step3{0, -1, 0, 1},
		step3{0, 0, 1, 1}, step3{0, 0, -1, 1},
	)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				n := abs(dx) + abs(dy) + abs(dz)
				if n < 2 {
					continue
				}
				l := 1.4142135623730951
				if n == 3 {
					l = 1.7320508075688772
				}
				s = append(s, step3{dx, dy, dz, l})
			}
		}
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// stepCount returns how many of the steps3D prefix a connectivity selects.
func stepCount(connectivity int) (int, error) {
	switch connectivity {
	case 0, 6:
		return 6, nil
	case 26:
		return len(steps3D), nil
	default:
		return 0, fmt.Errorf("regiongrow: unsupported connectivity %d", connectivity)
	}
}

// validate checks the volume/seed invariants shared by both variants and
// resolves the working seed indices.
func validate(vol *grid.Volume, seed grid.Point3, roiBox *grid.Box, opts *Options) ([]int, error) {
	if vol == nil || vol.NX <= 0 || vol.NY <= 0 || vol.NZ <= 0 {
		return nil, fmt.Errorf("regiongrow: invalid volume dimensions")
	}
	if len(vol.Data) != vol.Len() {
		return nil, fmt.Errorf("regiongrow: volume is %d voxels, expected %d for %dx%dx%d",
			len(vol.Data), vol.Len(), vol.NX, vol.NY, vol.NZ)
	}

	var seedIdxs []int
	if opts.SeedFromROICentroid {
		if roiBox == nil {
			return nil, fmt.Errorf("regiongrow: seed-from-centroid requires an ROI")
		}
		cx, cy, cz := roiBox.Center()
		p := grid.Point3{X: int(cx), Y: int(cy), Z: int(cz)}
		if !vol.InBounds(p.X, p.Y, p.Z) {
			return nil, fmt.Errorf("regiongrow: ROI centroid (%d,%d,%d) out of bounds", p.X, p.Y, p.Z)
		}
		seedIdxs = append(seedIdxs, vol.Idx(p.X, p.Y, p.Z))
	} else {
		if !vol.InBounds(seed.X, seed.Y, seed.Z) {
			return nil, fmt.Errorf("regiongrow: seed (%d,%d,%d) out of bounds %dx%dx%d",
				seed.X, seed.Y, seed.Z, vol.NX, vol.NY, vol.NZ)
		}
		seedIdxs = append(seedIdxs, vol.Idx(seed.X, seed.Y, seed.Z))
	}

	for _, idx := range opts.SeedIndices {
		if idx < 0 || idx >= vol.Len() {
			return nil, fmt.Errorf("regiongrow: seed index %d out of range", idx)
		}
		seedIdxs = append(seedIdxs, idx)
	}

	return seedIdxs, nil
}

// Grow performs plain band-limited region growth from the seed set:
// 6/26-connected voxels with intensity in [min,max], optionally clamped to
// an ROI box, capped at MaxVoxels. Indices are appended in discovery
// (breadth-first) order.
func Grow(ctx context.Context, vol *grid.Volume, seed grid.Point3, min, max float32, roi *grid.Box, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	seedIdxs, err := validate(vol, seed, roi, opts)
	if err != nil {
		return nil, err
	}
	nsteps, err := stepCount(opts.Connectivity)
	if err != nil {
		return nil, err
	}

	domain := grid.Box{Min: grid.Point3{}, Max: grid.Point3{X: vol.NX - 1, Y: vol.NY - 1, Z: vol.NZ - 1}}
	if roi != nil {
		domain = roi.Clip(vol.NX, vol.NY, vol.NZ)
		if domain.Empty() {
			return nil, fmt.Errorf("regiongrow: ROI does not intersect the volume")
		}
	}

	maxVoxels := opts.MaxVoxels
	if maxVoxels <= 0 {
		maxVoxels = DefaultMaxVoxels
	}
	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = defaultYieldEvery
	}

	res := &Result{SeedValue: vol.Data[seedIdxs[0]]}

	visited := make([]bool, vol.Len())
	var queue []int
	for _, idx := range seedIdxs {
		if visited[idx] {
			continue
		}
		visited[idx] = true
		c := vol.Coord(idx)
		if !domain.Contains(c.X, c.Y, c.Z) {
			continue
		}
		if v := vol.Data[idx]; v < min || v > max {
			continue
		}
		if len(res.Indices) >= maxVoxels {
			res.HitMaxVoxels = true
			break
		}
		res.Indices = append(res.Indices, uint32(idx))
		queue = append(queue, idx)
	}

	processed := 0
	for len(queue) > 0 && !res.HitMaxVoxels {
		idx := queue[0]
		queue = queue[1:]

		processed++
		if processed%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}

		c := vol.Coord(idx)
		for _, s := range steps3D[:nsteps] {
			nx, ny, nz := c.X+s.dx, c.Y+s.dy, c.Z+s.dz
			if !domain.Contains(nx, ny, nz) {
				continue
			}
			nidx := vol.Idx(nx, ny, nz)
			if visited[nidx] {
				continue
			}
			visited[nidx] = true
			if v := vol.Data[nidx]; v < min || v > max {
				continue
			}
			if len(res.Indices) >= maxVoxels {
				res.HitMaxVoxels = true
				break
			}
			res.Indices = append(res.Indices, uint32(nidx))
			queue = append(queue, nidx)
		}
	}

	res.Count = len(res.Indices)
	return res, nil
}
