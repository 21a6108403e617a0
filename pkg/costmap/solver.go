package costmap

import (
	"context"
	"math"
	"runtime"

	"github.com/rs/zerolog"

	"miraseg/internal/pqueue"
	"miraseg/pkg/grid"
)

// defaultYieldEvery is the pop interval between cancellation polls and
// scheduler yields.
const defaultYieldEvery = 4096

var inf32 = float32(math.Inf(1))

// eight-connectivity step offsets.
var steps2D = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// solve runs the multi-source Dijkstra over the image. Distances are
// stored and compared as float32, so a pushed candidate improves a cell
// only if it is strictly smaller at the stored precision; together with
// non-negative step costs this rules out infinite-improvement cycles.
// Stale heap entries (priority no longer matching the cell's distance) are
// skipped on pop in place of a decrease-key.
func solve(ctx context.Context, img *grid.Image, model *costModel, seeds []grid.Point,
	domain grid.Rect, maxCost float64, yieldEvery int, logger zerolog.Logger, debug bool) ([]float32, error) {

	w := img.W
	dist := make([]float32, w*img.H)
	for i := range dist {
		dist[i] = inf32
	}

	var q pqueue.Queue
	for _, s := range seeds {
		idx := img.Idx(s.X, s.Y)
		dist[idx] = 0
		q.Push(int32(idx), 0)
	}

	if yieldEvery <= 0 {
		yieldEvery = defaultYieldEvery
	}

	pops := 0
	for {
		item, ok := q.PopMin()
		if !ok {
			break
		}
		if item.Priority != dist[item.Index] {
			continue // stale entry, superseded by a cheaper push
		}
		if maxCost > 0 && float64(item.Priority) > maxCost {
			// Costs are non-negative and pops non-decreasing, so every
			// remaining entry is over budget too.
			break
		}

		pops++
		if pops%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
			if debug {
				logger.Debug().
					Int("pops", pops).
					Int("heap", q.Len()).
					Float32("dist", item.Priority).
					Msg("cost-distance frontier")
			}
		}

		x := int(item.Index) % w
		y := int(item.Index) / w
		for _, d := range steps2D {
			nx, ny := x+d[0], y+d[1]
			if !domain.Contains(nx, ny) {
				continue
			}
			nidx := int32(ny*w + nx)
			cand := item.Priority + float32(model.stepCost(x, y, nx, ny))
			if cand < dist[nidx] {
				dist[nidx] = cand
				q.Push(nidx, cand)
			}
		}
	}

	return dist, nil
}
