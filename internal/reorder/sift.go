// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package reorder

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

// SwapFunc exchanges the variables at level and level+1 in the underlying
// Forest, restructuring every node so the Boolean function denoted by each
// live root is unchanged, and reports the table's live node count before
// and after the exchange so Sift can judge whether the move helped. It is
// the one piece of this package that is kind-specific, so it is supplied by
// the caller rather than implemented here.
type SwapFunc func(level int) (before, after int, err error)

// Config bounds one Sift call (spec 4.G): GrowthLimit aborts a direction
// early once the live size exceeds, by that factor, the smallest size seen
// so far while sifting the current variable, TimeLimit aborts the whole
// call, and ShouldStop lets the caller wire in its own cancellation (e.g.
// pool.Context()).
type Config struct {
	GrowthLimit float64       // e.g. 1.2 means abort once size > 120% of the best size seen; 0 disables the check
	TimeLimit   time.Duration // 0 disables the check
	ShouldStop  func() bool
}

func (cfg Config) exceeds(start, cur int) bool {
	if cfg.GrowthLimit <= 0 || start == 0 {
		return false
	}
	return float64(cur) > float64(start)*cfg.GrowthLimit
}

// Sift runs one dynamic-reordering pass: for each variable, in decreasing
// order of its current node count (MRC), move it down to the bottom of the
// order one adjacent swap at a time, then up past its starting point to the
// top, recording the live count at every position visited, and settle it at
// whichever position produced the smallest count, the starting position
// included. A direction ends early once the GrowthLimit is exceeded, or
// once the variable, having passed a variable it interacts with, has just
// been swapped past one it does not interact with.
func Sift(levels *Levels, swap SwapFunc, interact *Interact, mrc *MRC, cfg Config) error {
	deadline := time.Time{}
	if cfg.TimeLimit > 0 {
		deadline = time.Now().Add(cfg.TimeLimit)
	}
	stopped := func() bool {
		if cfg.ShouldStop != nil && cfg.ShouldStop() {
			return true
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	n := levels.Size()
	order := make([]uint32, n)
	for v := range order {
		order[v] = uint32(v)
	}
	sort.Slice(order, func(i, j int) bool {
		return mrc.Get(levels.Level(order[i])) > mrc.Get(levels.Level(order[j]))
	})

	for _, v := range order {
		if stopped() {
			return nil
		}
		if err := siftOne(levels, swap, interact, v, cfg, stopped); err != nil {
			return errors.Wrapf(err, "reorder: sifting variable %d", v)
		}
	}
	return nil
}

// siftOne moves v down towards the bottom of the order and back up towards
// the top, one adjacent Swap at a time, then settles it at the best level
// observed (its starting level included).
func siftOne(levels *Levels, swap SwapFunc, interact *Interact, v uint32, cfg Config, stopped func() bool) error {
	start := levels.Level(v)
	bestLevel := start
	bestSize := -1

	visit := func(before, after int) {
		if bestSize < 0 {
			// the size before the first swap is the size at the start level
			bestSize = before
		}
		if after < bestSize {
			bestSize = after
			bestLevel = levels.Level(v)
		}
	}

	// down to the bottom. Every adjacent exchange must go through swap (it
	// alone knows how to restructure the table so existing roots keep their
	// meaning); interact is only used to stop early: once v has passed a
	// variable it interacts with, swapping it past one it does not interact
	// with ends this direction.
	passedAny := false
	for {
		level := levels.Level(v)
		if level+1 >= levels.Size() || stopped() {
			break
		}
		w := levels.Var(level + 1)
		interacts := interact.Test(v, w)
		before, after, err := swap(level)
		if err != nil {
			return err
		}
		visit(before, after)
		if interacts {
			passedAny = true
		} else if passedAny {
			break
		}
		if cfg.exceeds(bestSize, after) {
			break
		}
	}

	// back up past the starting point to the top
	passedAny = false
	for {
		level := levels.Level(v)
		if level == 0 || stopped() {
			break
		}
		w := levels.Var(level - 1)
		interacts := interact.Test(v, w)
		before, after, err := swap(level - 1)
		if err != nil {
			return err
		}
		visit(before, after)
		if interacts {
			passedAny = true
		} else if passedAny {
			break
		}
		if cfg.exceeds(bestSize, after) {
			break
		}
	}

	// settle at bestLevel
	for levels.Level(v) != bestLevel {
		level := levels.Level(v)
		if level < bestLevel {
			if _, _, err := swap(level); err != nil {
				return err
			}
		} else {
			if _, _, err := swap(level - 1); err != nil {
				return err
			}
		}
	}
	return nil
}
