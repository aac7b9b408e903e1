// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package gc implements the stop-the-world garbage collector coordinator
// from spec 4.D. A Coordinator owns no knowledge of any particular
// decision-diagram kind; the root package wires it up by supplying a
// Children function (how to read a node's successors out of the unique
// table) and, through AddRootSource, any additional root set a kind or the
// reordering engine needs walked (e.g. the nodes a variable swap has built
// but not yet referenced).
package gc

import (
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dalzilio/sylvan/internal/cache"
	"github.com/dalzilio/sylvan/internal/refs"
	"github.com/dalzilio/sylvan/internal/table"
	"github.com/dalzilio/sylvan/internal/task"
)

// Policy controls how aggressively Collect grows the table after a cycle.
// Aggressive trades memory for fewer future collections; Normal only grows
// once the table is nearly full (spec 4.D "resize policy").
type Policy int

const (
	Normal Policy = iota
	Aggressive
)

// Point is one entry in the collection history, mirroring rudd's gcpoint.
type Point struct {
	Nodes int // allocated slots before this cycle
	Live  int // survivors
	Freed int // slots returned to the free list
	Grown bool
}

// Children reports idx's successors. has0/has1 let a kind report zero, one
// or two children (an MTBDD leaf has none, a BDD node has two, a ZDD/LDD
// node may have one meaningful edge depending on convention).
type Children func(idx uint64) (c0, c1 uint64, has0, has1 bool)

// Coordinator runs stop-the-world collections over one Forest's unique
// table, operation caches and root structures.
type Coordinator struct {
	pool      *task.Pool
	tbl       *table.Table
	caches    []*cache.Cache
	external  *refs.External
	protected *refs.Protected
	stacks    []*refs.Stacks
	children  Children
	extra     []func(mark func(uint64))

	policy  Policy
	marked  []bool
	log     zerolog.Logger
	History []Point
}

// New builds a Coordinator. stacks is one *refs.Stacks per worker, indexed
// the same way as pool.Worker.
func New(pool *task.Pool, tbl *table.Table, caches []*cache.Cache, external *refs.External, protected *refs.Protected, stacks []*refs.Stacks, children Children, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		pool:      pool,
		tbl:       tbl,
		caches:    caches,
		external:  external,
		protected: protected,
		stacks:    stacks,
		children:  children,
		log:       log.With().Str("component", "gc").Logger(),
	}
}

// SetPolicy changes the resize policy; the reordering engine switches to
// Aggressive while sifting, where many short-lived collections are
// expected, and back to Normal afterwards.
func (c *Coordinator) SetPolicy(p Policy) { c.policy = p }

// AddRootSource registers an extra function walked alongside external refs,
// protected pointers and worker stacks during mark. Used by the reordering
// engine to keep the nodes a variable swap has built, but not yet
// referenced, alive across a collection triggered mid-swap, and by
// Deserialize for the nodes it has rebuilt but not yet returned.
func (c *Coordinator) AddRootSource(fn func(mark func(uint64))) {
	c.extra = append(c.extra, fn)
}

// Collect runs one full stop-the-world cycle: mark every root-reachable
// node, clear the unique table's hash chains, free everything unmarked,
// rehash the survivors in parallel, reset every operation cache, then grow
// the table if the post-collection load warrants it.
func (c *Coordinator) Collect() {
	c.pool.NewFrame(c.collectLocked)
}

func (c *Coordinator) collectLocked() {
	size := c.tbl.Size()
	if uint64(len(c.marked)) < size {
		c.marked = make([]bool, size)
	} else {
		for i := range c.marked {
			c.marked[i] = false
		}
	}

	mark := c.markRec
	c.external.ForEachLive(mark)
	c.protected.ForEachLive(mark)
	for _, s := range c.stacks {
		s.ForEachLive(mark)
	}
	for _, fn := range c.extra {
		fn(mark)
	}

	c.tbl.ClearHashChains()

	var liveIdx []uint64
	before := 0
	c.tbl.ForEachAllocated(func(idx uint64) {
		before++
		if c.marked[idx] {
			liveIdx = append(liveIdx, idx)
		} else {
			c.tbl.Free(idx)
		}
	})

	c.republishParallel(liveIdx)

	for _, cc := range c.caches {
		cc.Reset()
	}

	grown := false
	if c.shouldGrow(len(liveIdx), size) {
		newSize := size * 2
		c.tbl.Grow(newSize)
		for _, cc := range c.caches {
			cc.Resize(int(newSize))
		}
		c.marked = make([]bool, newSize)
		grown = true
	}

	c.History = append(c.History, Point{Nodes: before, Live: len(liveIdx), Freed: before - len(liveIdx), Grown: grown})
	c.log.Debug().Int("live", len(liveIdx)).Int("freed", before-len(liveIdx)).Bool("grown", grown).Msg("collection complete")
}

// republishParallel rehashes survivors into the freshly cleared hash
// chains, split across the worker pool with errgroup. Table.Republish is
// safe to call concurrently for distinct indices since the set of keys
// being rehashed was already deduplicated when each slot was first
// inserted.
func (c *Coordinator) republishParallel(liveIdx []uint64) {
	if len(liveIdx) == 0 {
		return
	}
	workers := c.pool.NumWorkers()
	if workers < 1 {
		workers = 1
	}
	chunk := (len(liveIdx) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(liveIdx); start += chunk {
		end := start + chunk
		if end > len(liveIdx) {
			end = len(liveIdx)
		}
		part := liveIdx[start:end]
		g.Go(func() error {
			for _, idx := range part {
				c.tbl.Republish(idx)
			}
			return nil
		})
	}
	_ = g.Wait() // republish bodies never return an error
}

func (c *Coordinator) shouldGrow(live int, size uint64) bool {
	if size <= 2 {
		return false
	}
	load := float64(live) / float64(size-2)
	switch c.policy {
	case Aggressive:
		return load > 0.7
	default:
		return load > 0.9
	}
}

// markRec marks h and every node reachable from it, using an explicit
// worklist rather than recursion so that deep diagrams (spec's 24-bit
// level range can nest far past Go's comfortable recursion depth) cannot
// overflow the goroutine stack the way rudd's recursive markrec could.
func (c *Coordinator) markRec(h uint64) {
	stack := []uint64{h}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n < 2 || n >= uint64(len(c.marked)) {
			continue
		}
		if !c.tbl.Allocated(n) || c.marked[n] {
			continue
		}
		c.marked[n] = true
		if c.children == nil {
			continue
		}
		c0, c1, has0, has1 := c.children(n)
		if has0 {
			stack = append(stack, c0)
		}
		if has1 {
			stack = append(stack, c1)
		}
	}
}
