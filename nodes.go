// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"github.com/dalzilio/sylvan/internal/table"
)

// allocate finds or creates the slot for key, triggering a stop-the-world
// collection and retrying once if the table reports itself full. Every
// kind's makenode funnels through here so GC and resize only need to be
// implemented once.
func (f *Forest) allocate(key table.Key) (Node, error) {
	idx, _, err := f.tbl.Lookup(key)
	if err == nil {
		return Node(idx), nil
	}
	if !errorsIsTableFull(err) {
		return 0, err
	}
	f.gcc.Collect()
	idx, _, err = f.tbl.Lookup(key)
	if err != nil {
		return 0, errMemory
	}
	return Node(idx), nil
}

func errorsIsTableFull(err error) bool {
	return err == table.ErrTableFull
}

// makenode builds (or finds) the BDD node for (level, low, high), applying
// the standard reduction rule: a node whose two children are equal is
// redundant and collapses to that child, never allocated.
func (f *Forest) makenode(level uint32, low, high Node) (Node, error) {
	if low == high {
		return low, nil
	}
	key := table.BuildKey(kindBDD, level, uint64(low), uint64(high))
	return f.allocate(key)
}

// True returns the constant true.
func (f *Forest) True() Node { return bddone }

// False returns the constant false.
func (f *Forest) False() Node { return bddzero }

// From returns a constant Node from a boolean value.
func (f *Forest) From(v bool) Node {
	if v {
		return bddone
	}
	return bddzero
}

// Ithvar returns the Node for the i'th variable in its positive form.
func (f *Forest) Ithvar(i int) Node {
	if i < 0 || uint32(i) >= f.varnum {
		f.seterror("Ithvar: variable %d out of range [0,%d)", i, f.varnum)
		return 0
	}
	return f.varset[i][1]
}

// NIthvar returns the Node for the negation of the i'th variable.
func (f *Forest) NIthvar(i int) Node {
	if i < 0 || uint32(i) >= f.varnum {
		f.seterror("NIthvar: variable %d out of range [0,%d)", i, f.varnum)
		return 0
	}
	return f.varset[i][0]
}

// Low returns the false branch of n.
func (f *Forest) Low(n Node) Node {
	if err := f.checkptr(n); err != nil {
		f.seterror("Low: %s", err)
		return 0
	}
	if n < 2 {
		return n
	}
	low, _ := f.successors(n)
	return Node(low)
}

// High returns the true branch of n.
func (f *Forest) High(n Node) Node {
	if err := f.checkptr(n); err != nil {
		f.seterror("High: %s", err)
		return 0
	}
	if n < 2 {
		return n
	}
	_, high := f.successors(n)
	return Node(high)
}

// successors decodes a slot's (low, high) pair, the same bit layout
// Forest.children exposes to internal/gc.
func (f *Forest) successors(n Node) (low, high uint64) {
	k := f.tbl.Get(uint64(n))
	combined := (k[0] << 24) | (k[1] >> 40)
	low = combined & 0xffffffffff
	high = k[1] & 0xffffffffff
	return
}

// level returns the variable level of node n (f.varnum, one past the last
// variable level, for the two terminals).
func (f *Forest) level(n Node) uint32 {
	if n < 2 {
		return f.varnum
	}
	k := f.tbl.Get(uint64(n))
	return uint32((k[0] >> 16) & 0xffffff)
}

// nodekind returns the kind tag (kindBDD, kindMTBDD, ...) packed into n's
// key, the same 8 bits BuildKey's tag parameter occupies.
func (f *Forest) nodekind(n Node) uint8 {
	k := f.tbl.Get(uint64(n))
	return uint8((k[0] >> 40) & 0xff)
}

// AddRef increases n's external reference count, protecting it from the
// next collection. Like rudd's AddRef, this never fails: an out-of-range
// or already-reclaimed node is simply returned unchanged.
func (f *Forest) AddRef(n Node) Node {
	if n < 2 || uint64(n) >= f.tbl.Size() || !f.tbl.Allocated(uint64(n)) {
		return n
	}
	f.external.Ref(uint64(n))
	return n
}

// DelRef decreases n's external reference count. Never fails.
func (f *Forest) DelRef(n Node) Node {
	if n < 2 || uint64(n) >= f.tbl.Size() || !f.tbl.Allocated(uint64(n)) {
		return n
	}
	f.external.Deref(uint64(n))
	return n
}

// GC explicitly triggers a stop-the-world collection.
func (f *Forest) GC() {
	f.gcc.Collect()
}
