// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package refs implements the three root structures from spec 4.F:
// external references (a resizable open-addressed hash multiset of atomic
// slots, updated under the read side of an RWMutex that a resize takes
// exclusively), protected pointers (a mutex-guarded set keyed on host
// addresses), and the
// per-worker internal stacks that keep intermediate results alive across
// allocations that might trigger GC. All three are walked by the GC
// coordinator's mark phase.
package refs

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const (
	occupiedBit = uint64(1) << 63
	countShift  = 40
	countMask   = uint64(0x7fffff) // 23 bits, spec 4.F
	idxMask     = uint64(0xffffffffff)
	maxCount    = countMask
)

// External is the saturating refcount multiset keyed on node index. Ref
// increments (saturating, never overflowing into the occupied/count
// bits), Deref decrements (never below zero); a count of zero still
// occupies a slot until the next Resize/compaction, matching rudd's
// "deref never removes the node itself, only stops protecting it".
type External struct {
	mu    sync.RWMutex // guards resize; Ref/Deref/Count take the read side
	slots []atomic.Uint64
	count atomic.Int64 // occupied slots, for load-factor tracking
}

// NewExternal creates a multiset with initial capacity cap (rounded up to
// the next power of two).
func NewExternal(capacity int) *External {
	e := &External{}
	e.slots = make([]atomic.Uint64, nextPow2(capacity))
	return e
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 16 {
		p = 16
	}
	return p
}

func mixIdx(idx uint64) uint64 {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(idx >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// Ref increments idx's reference count, creating a slot for it if this is
// the first reference. Saturates at the 23-bit limit instead of overflowing.
func (e *External) Ref(idx uint64) {
	for {
		e.mu.RLock()
		ok := e.tryRef(idx)
		e.mu.RUnlock()
		if ok {
			return
		}
		e.grow()
	}
}

func (e *External) tryRef(idx uint64) bool {
	n := len(e.slots)
	h := mixIdx(idx)
	for i := 0; i < n; i++ {
		pos := (h + uint64(i)) % uint64(n)
		for {
			old := e.slots[pos].Load()
			if old&occupiedBit == 0 {
				newVal := occupiedBit | (uint64(1) << countShift) | idx
				if e.slots[pos].CompareAndSwap(old, newVal) {
					e.count.Add(1)
					return true
				}
				continue
			}
			if old&idxMask == idx {
				c := (old >> countShift) & countMask
				if c >= maxCount {
					return true
				}
				newVal := occupiedBit | ((c + 1) << countShift) | idx
				if e.slots[pos].CompareAndSwap(old, newVal) {
					return true
				}
				continue
			}
			break
		}
	}
	return false
}

// Deref decrements idx's reference count. A no-op if idx is not currently
// referenced (mirrors rudd's DelRef guard against an already-zero count).
func (e *External) Deref(idx uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.slots)
	h := mixIdx(idx)
	for i := 0; i < n; i++ {
		pos := (h + uint64(i)) % uint64(n)
		for {
			old := e.slots[pos].Load()
			if old&occupiedBit == 0 {
				return
			}
			if old&idxMask != idx {
				break
			}
			c := (old >> countShift) & countMask
			if c == 0 {
				return
			}
			newVal := occupiedBit | ((c - 1) << countShift) | idx
			if e.slots[pos].CompareAndSwap(old, newVal) {
				return
			}
		}
	}
}

// Count returns idx's current reference count.
func (e *External) Count(idx uint64) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.slots)
	h := mixIdx(idx)
	for i := 0; i < n; i++ {
		pos := (h + uint64(i)) % uint64(n)
		old := e.slots[pos].Load()
		if old&occupiedBit == 0 {
			return 0
		}
		if old&idxMask == idx {
			return (old >> countShift) & countMask
		}
	}
	return 0
}

// ForEachLive calls fn once for every idx currently holding a positive
// reference count; used by the GC coordinator's mark phase.
func (e *External) ForEachLive(fn func(idx uint64)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.slots {
		old := e.slots[i].Load()
		if old&occupiedBit == 0 {
			continue
		}
		if (old>>countShift)&countMask > 0 {
			fn(old & idxMask)
		}
	}
}

// grow doubles capacity and rehashes every live (count > 0) entry. Dead
// slots (count == 0) are dropped rather than carried forward.
func (e *External) grow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.slots
	e.slots = make([]atomic.Uint64, len(old)*2)
	e.count.Store(0)
	for i := range old {
		v := old[i].Load()
		if v&occupiedBit == 0 {
			continue
		}
		idx := v & idxMask
		c := (v >> countShift) & countMask
		if c == 0 {
			continue
		}
		h := mixIdx(idx)
		n := len(e.slots)
		for j := 0; j < n; j++ {
			pos := (h + uint64(j)) % uint64(n)
			if e.slots[pos].Load()&occupiedBit == 0 {
				e.slots[pos].Store(occupiedBit | (c << countShift) | idx)
				e.count.Add(1)
				break
			}
		}
	}
}
