// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/dalzilio/sylvan/internal/cache"
	igc "github.com/dalzilio/sylvan/internal/gc"
	"github.com/dalzilio/sylvan/internal/refs"
	"github.com/dalzilio/sylvan/internal/reorder"
	"github.com/dalzilio/sylvan/internal/table"
	"github.com/dalzilio/sylvan/internal/task"
)

// Node is a handle into a Forest's unique table: the atomic unit every
// decision-diagram operation takes and returns. 0 and 1 are always the
// constants False and True, the same convention rudd uses for its *int
// Node, though here Node is a plain value (no finalizer-driven refcounting;
// see AddRef/DelRef).
type Node uint64

// kind tags distinguish node families sharing one Forest so their Keys
// never alias each other even when their (level, low, high) fields
// coincide numerically.
const (
	kindBDD uint8 = iota
	kindMTBDD
	kindZDD
	kindLDD
	kindTBDD
)

var bddzero = Node(0)
var bddone = Node(1)

// Forest owns one unique node table, one set of operation caches, one
// work-stealing pool and one GC coordinator, shared by every
// decision-diagram kind built on top of it (BDD, MTBDD, ZDD, LDD, TBDD).
type Forest struct {
	cfg *configs
	log zerolog.Logger

	varnum uint32
	varset [][2]Node // varset[v] = {NIthvar(v), Ithvar(v)}

	// levels is the variable/level bijection the reordering engine (Module
	// G) permutes; interact and mrc are its interaction matrix and manual
	// reference counter, refreshed at the start of every Reorder call.
	// reorderScratch is the extra GC root source a swap registers while it
	// has intermediate nodes not yet reachable from any external ref.
	levels         *reorder.Levels
	interact       *reorder.Interact
	mrc            *reorder.MRC
	reorderScratch []uint64

	// mleaves content-addresses MTBDD terminal values (mtbdd.go).
	mleaves *mtbddLeaves

	// persistScratch is the extra GC root source Deserialize registers while
	// it has rebuilt nodes not yet reachable from any external ref or from
	// the stream's own still-to-be-built ancestors (persist.go).
	persistScratch []uint64

	tbl *table.Table

	applyCache   *cache.Cache
	iteCache     *cache.Cache
	quantCache   *cache.Cache
	appexCache   *cache.Cache
	replaceCache *cache.Cache
	relCache     *cache.Cache

	pool      *task.Pool
	external  *refs.External
	protected *refs.Protected
	stacks    []*refs.Stacks
	gcc       *igc.Coordinator

	quantsetID uint32
	quantset   []uint32
	quantlast  uint32

	replaceID uint32

	entries atomic.Uint64 // round-robins client goroutines across worker slots

	lastErr error
}

// New creates a Forest with varnum variables, configured by opts (see
// Nodesize, Maxnodesize, Maxnodeincrease, Minfreenodes, Cachesize,
// Cacheratio, Workers, Logger).
func New(varnum int, opts ...func(*configs)) (*Forest, error) {
	cfg := makeconfigs(varnum)
	for _, opt := range opts {
		opt(cfg)
	}

	log := defaultLogger
	if cfg.logger != nil {
		log = *cfg.logger
	}

	f := &Forest{
		cfg: cfg,
		log: log.With().Str("component", "forest").Logger(),
	}

	reserve := uint64(cfg.maxnodesize)
	if reserve == 0 {
		// No explicit ceiling: reserve generously above the initial size so
		// that ordinary growth stays no-copy, without reserving so much
		// address space that tiny Forests (tests, examples) look wasteful.
		reserve = uint64(cfg.nodesize) * 64
		if reserve < 1<<16 {
			reserve = 1 << 16
		}
		if reserve > 1<<24 {
			reserve = 1 << 24
		}
	}
	var err error
	f.tbl, err = table.New(uint64(cfg.nodesize), reserve)
	if err != nil {
		return nil, errors.Wrap(err, "sylvan: creating unique table")
	}

	cachesize := cfg.cachesize
	if cachesize == 0 {
		cachesize = 10000
	}
	f.applyCache = cache.New(cachesize, cfg.cacheratio)
	f.iteCache = cache.New(cachesize, cfg.cacheratio)
	f.quantCache = cache.New(cachesize, cfg.cacheratio)
	f.appexCache = cache.New(cachesize, cfg.cacheratio)
	f.replaceCache = cache.New(cachesize, cfg.cacheratio)
	f.relCache = cache.New(cachesize, cfg.cacheratio)

	f.pool = task.New(cfg.workers)
	f.external = refs.NewExternal(cfg.nodesize)
	f.protected = refs.NewProtected()
	f.stacks = make([]*refs.Stacks, cfg.workers)
	for i := range f.stacks {
		f.stacks[i] = refs.NewStacks()
	}

	f.gcc = igc.New(f.pool, f.tbl,
		[]*cache.Cache{f.applyCache, f.iteCache, f.quantCache, f.appexCache, f.replaceCache, f.relCache},
		f.external, f.protected, f.stacks, f.children, f.log)
	f.gcc.AddRootSource(f.reorderRoots)
	f.gcc.AddRootSource(f.persistRoots)

	f.levels = reorder.NewLevels(varnum)
	f.interact = reorder.NewInteract(varnum)
	f.mrc = reorder.NewMRC(varnum)
	f.mleaves = newMTBDDLeaves()

	if err := f.SetVarnum(varnum); err != nil {
		f.pool.Close()
		return nil, err
	}
	return f, nil
}

// Close stops the Forest's worker pool. Safe to call once, typically via
// defer right after New.
func (f *Forest) Close() {
	f.pool.Close()
	f.tbl.Close()
}

// children lets internal/gc walk the forest generically: it decodes a
// slot's Key without needing to know which kind produced it, since every
// kind packs (level, low, high) in the same layout (tag differs, but gc
// only needs successors, not the tag). A slot packed with level _MAXVAR is
// a terminal-shaped encoding (an MTBDD leaf packs a leaves-table index
// where low would otherwise be, not a child Node), so it is reported as
// childless rather than risking that index being read as a table slot.
func (f *Forest) children(idx uint64) (c0, c1 uint64, has0, has1 bool) {
	k := f.tbl.Get(idx)
	if level := uint32((k[0] >> 16) & 0xffffff); level == _MAXVAR {
		return 0, 0, false, false
	}
	combined := (k[0] << 24) | (k[1] >> 40)
	low := combined & 0xffffffffff
	high := k[1] & 0xffffffffff
	return low, high, low >= 2, high >= 2
}

// worker returns the pool worker assigned to the calling goroutine's
// top-level entry, round-robin over a counter. Recursive calls made from
// inside a Spawn'd closure keep using the same *task.Worker they were
// handed, so only top-level API entry points call this.
func (f *Forest) worker(hint int) *task.Worker {
	return f.pool.Worker(hint)
}

// enter binds the calling goroutine to a worker slot for the duration of
// one top-level public operation (Apply, Ite, Exist, ...), round-robin. The
// operation's recursive kernel forks its two branches with Spawn/Sync on
// this worker, so concurrency comes both from stealing within one call and
// from independent client goroutines entering the Forest simultaneously.
func (f *Forest) enter() *task.Worker {
	i := int(f.entries.Add(1))
	return f.worker(i)
}

// stats is a minimal snapshot used by Stats/String in stdio.go.
type stats struct {
	Varnum  uint32
	Table   table.Stats
	Apply   cache.Stats
	Ite     cache.Stats
	Quant   cache.Stats
	Appex   cache.Stats
	Replace cache.Stats
}

func (f *Forest) stats() stats {
	return stats{
		Varnum:  f.varnum,
		Table:   f.tbl.Stats(),
		Apply:   f.applyCache.Stats(),
		Ite:     f.iteCache.Stats(),
		Quant:   f.quantCache.Stats(),
		Appex:   f.appexCache.Stats(),
		Replace: f.replaceCache.Stats(),
	}
}

var errBadNode = errors.New("node out of range for this forest")

// checkptr validates that n is either a terminal or an index currently
// allocated in the unique table, mirroring rudd's checkptr guard that
// every public operation runs on its arguments first.
func (f *Forest) checkptr(n Node) error {
	if n < 2 {
		return nil
	}
	if uint64(n) >= f.tbl.Size() || !f.tbl.Allocated(uint64(n)) {
		return errBadNode
	}
	return nil
}
