// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package cache implements the operation cache shared by every recursive
// decision-diagram operator (spec 4.C). It is a direct-mapped table: each
// (a, b, c, op) key hashes to exactly one bucket, and a new entry silently
// evicts whatever was there, trading completeness for O(1) lookup and no
// collision chains to walk concurrently.
//
// Each bucket carries a packed status word instead of a mutex: one lock bit,
// a 16-bit version, and a 15-bit hash fragment. Lookup reads the status,
// reads the payload fields, then re-reads the status; if the word changed
// (a concurrent Store started or finished) the lookup is treated as a miss
// rather than risking a torn read, the same optimistic-read idiom as a
// seqlock. Store spins until it wins the lock bit with a CAS, writes the
// payload, then publishes a bumped version with the lock bit cleared.
package cache

import (
	"runtime"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const (
	lockBit      = uint64(1) << 31
	versionShift = 15
	versionMask  = 0xffff
	fragMask     = 0x7fff
)

type bucket struct {
	status atomic.Uint64
	a, b, c uint64
	op      uint16
	res     uint64
}

// Cache is one direct-mapped operation cache instance. The root package
// keeps one Cache per operator family (ITE, apply, exists, appex, replace,
// relprod, ...), mirroring rudd's separate applycache/itecache/quantcache.
type Cache struct {
	buckets []bucket
	ratio   int // resize ratio against table size, percent; 0 disables resizing

	hit  atomic.Int64
	miss atomic.Int64
}

// New creates a cache with room for size entries. ratio is the percentage
// of the unique table's size this cache should track on Resize (rudd's
// cacheratio config knob); 0 means a fixed size.
func New(size, ratio int) *Cache {
	if size < 1 {
		size = 1
	}
	return &Cache{buckets: make([]bucket, size), ratio: ratio}
}

func (c *Cache) index(a, b, cc uint64, op uint16) (uint64, uint64) {
	h := mix(a, b, cc, op)
	idx := h % uint64(len(c.buckets))
	frag := h & fragMask
	return idx, frag
}

func mix(a, b, cc uint64, op uint16) uint64 {
	var buf [26]byte
	putUint64(buf[0:8], a)
	putUint64(buf[8:16], b)
	putUint64(buf[16:24], cc)
	buf[24] = byte(op)
	buf[25] = byte(op >> 8)
	return xxhash.Sum64(buf[:])
}

func putUint64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// Lookup returns the cached result for (a, b, c, op), if present and not
// concurrently being overwritten.
func (c *Cache) Lookup(a, b, cc uint64, op uint16) (uint64, bool) {
	idx, frag := c.index(a, b, cc, op)
	bk := &c.buckets[idx]

	st := bk.status.Load()
	if st&lockBit != 0 || st&fragMask != frag {
		c.miss.Add(1)
		return 0, false
	}
	ra, rb, rc, rop, rres := bk.a, bk.b, bk.c, bk.op, bk.res
	if bk.status.Load() != st {
		c.miss.Add(1)
		return 0, false
	}
	if ra != a || rb != b || rc != cc || rop != op {
		c.miss.Add(1)
		return 0, false
	}
	c.hit.Add(1)
	return rres, true
}

// Store records the result of (a, b, c, op), replacing whatever entry
// currently occupies that bucket.
func (c *Cache) Store(a, b, cc uint64, op uint16, res uint64) {
	idx, frag := c.index(a, b, cc, op)
	bk := &c.buckets[idx]

	for {
		st := bk.status.Load()
		if st&lockBit != 0 {
			runtime.Gosched()
			continue
		}
		if !bk.status.CompareAndSwap(st, st|lockBit) {
			continue
		}
		bk.a, bk.b, bk.c, bk.op, bk.res = a, b, cc, op, res
		version := (st>>versionShift + 1) & versionMask
		bk.status.Store(version<<versionShift | frag)
		return
	}
}

// Reset clears every entry, used after a GC cycle renumbers or frees nodes
// (stale (a,b,c) keys would otherwise alias live ones).
func (c *Cache) Reset() {
	for i := range c.buckets {
		c.buckets[i] = bucket{}
	}
}

// Resize replaces the backing array, sized as a percentage of newTableSize
// if a ratio was configured at New, and clears all entries.
func (c *Cache) Resize(newTableSize int) {
	if c.ratio <= 0 {
		c.Reset()
		return
	}
	size := (newTableSize * c.ratio) / 100
	if size < 1 {
		size = 1
	}
	c.buckets = make([]bucket, size)
}

// Stats mirrors rudd's opHit/opMiss counters.
type Stats struct {
	Hit  int64
	Miss int64
	Size int
}

func (c *Cache) Stats() Stats {
	return Stats{Hit: c.hit.Load(), Miss: c.miss.Load(), Size: len(c.buckets)}
}
