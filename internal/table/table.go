// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package table implements the lock-free unique node table shared by every
// decision-diagram kind (spec 4.B). Nodes are hash-consed: Lookup returns the
// same index for the same Key no matter how many goroutines race to create
// it, and exactly one of them observes created=true.
//
// Physically the table is an array of slots plus a hash array
// of chain heads (closed addressing with chaining, the same approach as
// rudd's hkernel.go) and a Treiber-stack free list so that slots freed by a
// GC sweep are handed back out instead of growing the table monotonically.
//
// The slot array itself is backed by an anonymous mmap reservation
// (golang.org/x/sys/unix) sized to the table's reserve ceiling up front:
// pages are only committed by the kernel on first touch, so a Table can
// reserve far more address space than its initial logical size without
// paying for it. A Grow within that reservation lifts maxSize without moving
// or copying the slot array; only a Grow past it maps a larger region and
// copies the slots over.
package table

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

const freeSentinel = ^uint64(0)

// slot holds one node's identity plus the bookkeeping links. next chains
// slots that hash to the same bucket; freeNext chains unallocated slots onto
// the free-list stack. A slot only ever uses one of the two at a time.
type slot struct {
	key      Key
	next     uint64
	freeNext uint64
}

var slotSize = int(unsafe.Sizeof(slot{}))

// Table is the unique node table for one Forest. The zero Table is not
// usable; build one with New.
type Table struct {
	maxSize  uint64 // logical size currently in use, <= reserved
	reserved uint64 // capacity of the mmap region backing data

	region []byte // raw mmap reservation backing data; nil once Close'd
	data   []slot // unsafe.Slice view over region, length reserved

	heads []uint64 // bucket -> chain head slot index, freeSentinel-free (0 = empty chain)

	bitmap2 *bitset // slot allocated
	bitmapc *bitset // slot holds a custom (kind-specific extra payload) leaf

	freeHead atomic.Uint64

	access atomic.Int64
	hit    atomic.Int64
	miss   atomic.Int64
}

// New allocates a table with room for maxSize nodes, reserving mmap address
// space for up to reserve nodes so that later Grow calls (up to reserve) are
// no-copy. reserve is raised to maxSize if given smaller. Indices 0 and 1 are
// reserved by convention (the two Boolean terminals in every kind) and are
// never handed out by Lookup.
func New(maxSize, reserve uint64) (*Table, error) {
	if maxSize < 4 {
		maxSize = 4
	}
	if reserve < maxSize {
		reserve = maxSize
	}
	region, data, err := mmapSlots(reserve)
	if err != nil {
		return nil, err
	}
	t := &Table{
		maxSize:  maxSize,
		reserved: reserve,
		region:   region,
		data:     data,
		heads:    make([]uint64, nextPow2(reserve)),
		bitmap2:  newBitset(reserve),
		bitmapc:  newBitset(reserve),
	}
	t.rebuildFreeList(2)
	return t, nil
}

// mmapSlots reserves an anonymous, zero-filled region large enough for
// capacity slots and returns it both as the raw bytes (kept around so Close
// can Munmap it) and reinterpreted as a []slot of length capacity. The OS
// hands out physical pages lazily on first write, so reserving capacity well
// above what is immediately needed only consumes address space.
func mmapSlots(capacity uint64) ([]byte, []slot, error) {
	n := int(capacity) * slotSize
	region, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrap(err, "table: mmap reservation failed")
	}
	data := unsafe.Slice((*slot)(unsafe.Pointer(&region[0])), capacity)
	return region, data, nil
}

// Close releases the table's mmap reservation. Only safe once no operation
// is still reading or writing the table.
func (t *Table) Close() error {
	if t.region == nil {
		return nil
	}
	err := unix.Munmap(t.region)
	t.region = nil
	t.data = nil
	return err
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// rebuildFreeList chains slots [from, maxSize) onto the free-list stack, in
// descending order so the lowest indices are reused first.
func (t *Table) rebuildFreeList(from uint64) {
	if from >= t.maxSize {
		t.freeHead.Store(freeSentinel)
		return
	}
	for i := from; i < t.maxSize-1; i++ {
		t.data[i].freeNext = i + 1
	}
	t.data[t.maxSize-1].freeNext = freeSentinel
	t.freeHead.Store(from)
}

// Size returns the table's current logical capacity, which Grow raises.
func (t *Table) Size() uint64 { return t.maxSize }

// Reserved reports whether idx is one of the two terminal slots that Lookup
// never allocates; kinds write their terminal nodes there directly at
// Forest-construction time.
func (t *Table) Reserved(idx uint64) bool { return idx < 2 }

// Get returns the Key stored at idx. Panics if idx is out of range, which
// would indicate a caller bug (a stale handle surviving past a GC that
// collected it), not a recoverable condition.
func (t *Table) Get(idx uint64) Key { return t.data[idx].key }

// IsCustom reports whether the slot at idx was allocated through
// LookupCustom.
func (t *Table) IsCustom(idx uint64) bool { return t.bitmapc.get(idx) }

// ErrTableFull is returned by Lookup when no free slot remains; the caller
// (a DD-kind operation running inside internal/task) should trigger a GC
// frame and retry.
var ErrTableFull = errors.New("table: unique table is full")

// Lookup finds or creates the slot for key. It is the hash-consing
// operation: concurrent callers racing on the same key are guaranteed to
// converge on the same index, with exactly one of them receiving
// created=true.
func (t *Table) Lookup(key Key) (idx uint64, created bool, err error) {
	return t.lookup(key, false)
}

// LookupCustom is Lookup but also marks the returned slot in bitmapc,
// identifying it to kinds (MTBDD leaves, LDD value nodes) that store an
// out-of-band payload keyed by the slot index.
func (t *Table) LookupCustom(key Key) (idx uint64, created bool, err error) {
	return t.lookup(key, true)
}

func (t *Table) lookup(key Key, custom bool) (uint64, bool, error) {
	t.access.Add(1)
	bucket := mix(key, 0) % uint64(len(t.heads))

	if idx, ok := t.scan(bucket, key); ok {
		t.hit.Add(1)
		return idx, false, nil
	}

	newIdx, ok := t.allocate()
	if !ok {
		return 0, false, ErrTableFull
	}
	t.data[newIdx].key = key
	if custom {
		t.bitmapc.set(newIdx)
	}

	for {
		head := atomic.LoadUint64(&t.heads[bucket])
		if idx, ok := t.scanFrom(head, key); ok {
			// someone else published the same key while we were allocating
			t.free(newIdx)
			t.hit.Add(1)
			return idx, false, nil
		}
		t.data[newIdx].next = head
		if atomic.CompareAndSwapUint64(&t.heads[bucket], head, newIdx) {
			t.miss.Add(1)
			return newIdx, true, nil
		}
	}
}

func (t *Table) scan(bucket uint64, key Key) (uint64, bool) {
	return t.scanFrom(atomic.LoadUint64(&t.heads[bucket]), key)
}

func (t *Table) scanFrom(head uint64, key Key) (uint64, bool) {
	cur := head
	for cur != 0 {
		if t.data[cur].key == key {
			return cur, true
		}
		cur = atomic.LoadUint64(&t.data[cur].next)
	}
	return 0, false
}

// allocate pops one slot off the free-list Treiber stack.
func (t *Table) allocate() (uint64, bool) {
	for {
		head := t.freeHead.Load()
		if head == freeSentinel {
			return 0, false
		}
		next := atomic.LoadUint64(&t.data[head].freeNext)
		if t.freeHead.CompareAndSwap(head, next) {
			t.bitmap2.set(head)
			return head, true
		}
	}
}

// free pushes idx back onto the free-list stack and clears its flags. Only
// called by Lookup itself (to undo a losing race against a concurrent
// insert) or through Free by the GC coordinator.
func (t *Table) free(idx uint64) {
	t.bitmap2.clear(idx)
	t.bitmapc.clear(idx)
	t.data[idx].key = Key{}
	for {
		head := t.freeHead.Load()
		t.data[idx].freeNext = head
		if t.freeHead.CompareAndSwap(head, idx) {
			return
		}
	}
}

// Load returns the fraction of slots currently allocated, the signal the GC
// coordinator polls against its resize/collect thresholds.
func (t *Table) Load() float64 {
	allocated := 0
	for i := uint64(2); i < t.maxSize; i++ {
		if t.bitmap2.get(i) {
			allocated++
		}
	}
	return float64(allocated) / float64(t.maxSize-2)
}

// ClearHashChains zeroes every bucket head. Called by the GC coordinator at
// the start of a collection, before re-publishing the surviving slots found
// by ForEachAllocated (spec 4.D "rehash" phase).
func (t *Table) ClearHashChains() {
	for i := range t.heads {
		atomic.StoreUint64(&t.heads[i], 0)
	}
}

// Republish recomputes idx's bucket from its stored key and pushes it onto
// that bucket's chain. Unlike the insert path in lookup, it never scans for
// a duplicate: it is only ever called during GC rehash, over a set of
// indices that were already deduplicated when they were first inserted, so
// no two rehashed indices can collide on Key. Safe to call concurrently for
// distinct idx values, which lets the GC coordinator parallelize the rehash
// phase with errgroup.
func (t *Table) Republish(idx uint64) {
	bucket := mix(t.data[idx].key, 0) % uint64(len(t.heads))
	for {
		head := atomic.LoadUint64(&t.heads[bucket])
		t.data[idx].next = head
		if atomic.CompareAndSwapUint64(&t.heads[bucket], head, idx) {
			return
		}
	}
}

// Allocated reports whether idx currently holds a live node.
func (t *Table) Allocated(idx uint64) bool { return t.bitmap2.get(idx) }

// ForEachAllocated calls fn once for every currently allocated index, in
// ascending order. fn must not call Lookup; it may Free or Republish the
// index it is handed, as the GC coordinator's sweep and Grow do. Callers
// run it inside a stop-the-world frame with no concurrent Lookup in flight.
func (t *Table) ForEachAllocated(fn func(idx uint64)) {
	for i := uint64(2); i < t.maxSize; i++ {
		if t.bitmap2.get(i) {
			fn(i)
		}
	}
}

// Free is the public entry point the GC coordinator uses to return a dead slot (one that
// ForEachAllocated visited but the mark phase did not mark live) to the free
// list.
func (t *Table) Free(idx uint64) { t.free(idx) }

// Grow raises the table's logical size to newSize, preserving every
// currently allocated slot at its existing index (handles remain valid) and
// extending the free list over the newly added range. Only safe to call
// from inside a stop-the-world frame.
//
// When newSize fits within the table's mmap reservation (the common case,
// since Forest sizes the reservation from Maxnodesize up front) the slot
// array is neither moved nor copied; bitmap2, bitmapc and the hash heads are
// rebuilt and every allocated slot is republished. Only a Grow past the
// reservation maps a fresh, larger region and copies the slots into it; if
// that mapping fails the table keeps its current size.
func (t *Table) Grow(newSize uint64) {
	if newSize <= t.maxSize {
		return
	}
	oldSize := t.maxSize

	if newSize > t.reserved {
		region, data, err := mmapSlots(newSize)
		if err != nil {
			// the reservation could not be extended; keep the table at its
			// current size rather than losing the existing data.
			return
		}
		copy(data, t.data)
		old := t.region
		t.region = region
		t.data = data
		t.reserved = newSize
		if old != nil {
			unix.Munmap(old)
		}
	}

	newBitmap2 := newBitset(t.reserved)
	newBitmapc := newBitset(t.reserved)
	t.ForEachAllocated(func(idx uint64) {
		newBitmap2.set(idx)
		if t.bitmapc.get(idx) {
			newBitmapc.set(idx)
		}
	})
	t.maxSize = newSize
	t.bitmap2 = newBitmap2
	t.bitmapc = newBitmapc
	t.heads = make([]uint64, nextPow2(t.reserved))

	// relink the free list: whatever was unallocated below oldSize, plus the
	// entire newly added range, chained in descending order so low indices
	// are reused first.
	tail := freeSentinel
	for i := newSize; i > oldSize; i-- {
		idx := i - 1
		t.data[idx].freeNext = tail
		tail = idx
	}
	for i := oldSize; i > 2; i-- {
		idx := i - 1
		if !t.bitmap2.get(idx) {
			t.data[idx].freeNext = tail
			tail = idx
		}
	}
	t.freeHead.Store(tail)
	t.ForEachAllocated(func(idx uint64) { t.Republish(idx) })
}

// Stats mirrors rudd's uniqueAccess/uniqueHit/uniqueMiss counters.
type Stats struct {
	Access int64
	Hit    int64
	Miss   int64
	Size   uint64
}

func (t *Table) Stats() Stats {
	return Stats{
		Access: t.access.Load(),
		Hit:    t.hit.Load(),
		Miss:   t.miss.Load(),
		Size:   t.maxSize,
	}
}
