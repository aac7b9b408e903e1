// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package refs

import "sync"

// Protected is the registry of host addresses whose current value is a
// node handle that must survive GC (spec 4.F "Protected pointers"). Unlike
// External, registration is rare (a long-lived *Node field embedded in a
// caller's data structure, registered once) while GC's mark phase reads the
// whole set every cycle, so a plain mutex-guarded map is the right
// trade-off rather than the open-addressed layout External needs for its
// hot Ref/Deref path.
type Protected struct {
	mu   sync.Mutex
	ptrs map[*uint64]struct{}
}

// NewProtected creates an empty registry.
func NewProtected() *Protected {
	return &Protected{ptrs: make(map[*uint64]struct{})}
}

// Register adds ptr to the set of addresses GC dereferences and marks.
func (p *Protected) Register(ptr *uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ptrs[ptr] = struct{}{}
}

// Unregister removes ptr, e.g. when the caller's structure is discarded.
func (p *Protected) Unregister(ptr *uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ptrs, ptr)
}

// ForEachLive dereferences every registered pointer and calls fn with the
// handle it currently holds.
func (p *Protected) ForEachLive(fn func(handle uint64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ptr := range p.ptrs {
		fn(*ptr)
	}
}
