package costmap

import (
	"math"
	"sort"

	"miraseg/pkg/grid"
	"miraseg/pkg/prng"
)

// Seed sampling attempts three passes with progressively looser gradient
// and z-score ceilings. Unmet candidate counts are simply not filled.
var (
	seedPassGradMul = [3]float64{1.0, 1.5, 2.25}
	seedPassZCeil   = [3]float64{2.0, 2.5, 3.0}
)

const seedAttemptsPerWanted = 48

type scoredSeed struct {
	pt      grid.Point
	badness float64
}

// sampleSeeds resolves the working seed set: the anchor plus up to count-1
// extra seeds drawn from the seed box with a center-biased triangular
// distribution. Candidates must sit below a relaxing gradient ceiling and a
// relaxing tumor z-score ceiling, and must not be more background-like than
// tumor-like beyond the configured margin. Best-effort: never fails, the
// anchor is always first.
func sampleSeeds(img *grid.Image, grad []float32, anchor grid.Point, box grid.Rect,
	count int, st SeedStats, tn Tuning, src prng.Source) []grid.Point {

	seeds := []grid.Point{anchor}
	if count <= 1 || box.Empty() {
		return seeds
	}

	wanted := count - 1
	taken := map[int]bool{img.Idx(anchor.X, anchor.Y): true}
	var extras []scoredSeed

	bw := float64(box.X1 - box.X0 + 1)
	bh := float64(box.Y1 - box.Y0 + 1)

	for pass := 0; pass < len(seedPassGradMul) && len(extras) < wanted; pass++ {
		gradCeil := st.Barrier * seedPassGradMul[pass]
		zCeil := seedPassZCeil[pass]

		for attempt := 0; attempt < seedAttemptsPerWanted*wanted && len(extras) < wanted; attempt++ {
			x := box.X0 + int(prng.Triangular(src)*bw)
			y := box.Y0 + int(prng.Triangular(src)*bh)
			if !box.Contains(x, y) {
				continue
			}
			idx := img.Idx(x, y)
			if taken[idx] {
				continue
			}

			v := float64(img.Pix[idx])
			g := float64(grad[idx])
			if g > gradCeil {
				continue
			}
			z := math.Abs(v-st.Tumor.Mu) / st.Tumor.Sigma
			if z > zCeil {
				continue
			}

			bgLike := 0.0
			if st.Background != nil {
				d := z - st.Background.Z(v)
				if d > tn.BGMargin {
					continue
				}
				if d > 0 {
					bgLike = d
				}
			}

			taken[idx] = true
			extras = append(extras, scoredSeed{
				pt:      grid.Point{X: x, Y: y},
				badness: z + g/32 + bgLike,
			})
		}
	}

	// Extras beyond the first are ordered by ascending badness so callers
	// that truncate keep the strongest seeds.
	if len(extras) > 1 {
		rest := extras[1:]
		sort.SliceStable(rest, func(i, j int) bool { return rest[i].badness < rest[j].badness })
	}
	for _, e := range extras {
		seeds = append(seeds, e.pt)
	}
	return seeds
}

// deriveRNG returns the sampler's random source: the injected one when
// present, otherwise a mulberry32 stream seeded explicitly or hashed from
// the anchor index and seed-box bounds.
func deriveRNG(opts *Options, img *grid.Image, anchor grid.Point, box grid.Rect) prng.Source {
	if opts.RNG != nil {
		return opts.RNG
	}
	if opts.RNGSeed != nil {
		return prng.NewMulberry32(*opts.RNGSeed)
	}
	seed := prng.Hash32(
		uint32(img.Idx(anchor.X, anchor.Y)),
		uint32(box.X0), uint32(box.Y0), uint32(box.X1), uint32(box.Y1),
	)
	return prng.NewMulberry32(seed)
}
