// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"runtime"

	"github.com/rs/zerolog"
)

// configs stores the values of the different parameters of a Forest, the
// same functional-options layout as rudd's configs.
type configs struct {
	varnum          int // number of variables
	nodesize        int // initial number of nodes in the table
	cachesize       int // initial cache size (general)
	cacheratio      int // initial ratio (%) between cache size and node table, 0 if size constant
	maxnodesize     int // maximum total number of nodes (0 if no limit)
	maxnodeincrease int // maximum number of nodes added to the table at each resize (0 if no limit)
	minfreenodes    int // minimum % of free nodes that must remain after GC before triggering a resize

	workers       int // size of the work-stealing pool; defaults to GOMAXPROCS
	reorderPolicy string
	logger        *zerolog.Logger
}

func makeconfigs(varnum int) *configs {
	c := &configs{varnum: varnum}
	c.minfreenodes = _MINFREENODES
	c.maxnodeincrease = _DEFAULTMAXNODEINC
	c.nodesize = 2*varnum + 2
	c.workers = runtime.GOMAXPROCS(0)
	return c
}

// Nodesize sets a preferred initial size for the node table. By default we
// create a table large enough to hold the two constants and every variable
// reachable through Ithvar/NIthvar.
func Nodesize(size int) func(*configs) {
	return func(c *configs) {
		if size >= 2*c.varnum+2 {
			c.nodesize = size
		}
	}
}

// Maxnodesize sets, in nodes, the address-space reservation New makes for
// the node table. It does not cap growth: a resize past it maps a larger
// region, and if that mapping fails the table keeps its current size. With
// the default (0) the reservation is 64 times the initial node size,
// clamped to [1<<16, 1<<24] slots.
func Maxnodesize(size int) func(*configs) {
	return func(c *configs) {
		c.maxnodesize = size
	}
}

// Maxnodeincrease records a cap on how much the node table grows per
// resize. The value is stored in the configuration only; the collector does
// not read it, and every resize doubles the table.
func Maxnodeincrease(size int) func(*configs) {
	return func(c *configs) {
		c.maxnodeincrease = size
	}
}

// Minfreenodes records the % of free nodes that must remain after a
// collection before a resize is triggered. The value is stored in the
// configuration only; the collector does not read it, and resizes when the
// table is over 90% full after a collection (70% while reordering).
func Minfreenodes(ratio int) func(*configs) {
	return func(c *configs) {
		c.minfreenodes = ratio
	}
}

// Cachesize sets the initial number of entries in each operation cache. The
// default is 10 000.
func Cachesize(size int) func(*configs) {
	return func(c *configs) {
		c.cachesize = size
	}
}

// Cacheratio sets a ratio (%) so caches grow alongside the node table on
// resize; the default (0) keeps cache size constant.
func Cacheratio(ratio int) func(*configs) {
	return func(c *configs) {
		c.cacheratio = ratio
	}
}

// Workers sets the number of worker slots in the Forest's work-stealing
// pool. The default is runtime.GOMAXPROCS(0); pass 1 to force sequential
// execution (useful for deterministic tests and for comparing against
// rudd's single-threaded behavior).
func Workers(n int) func(*configs) {
	return func(c *configs) {
		if n > 0 {
			c.workers = n
		}
	}
}
