// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package reorder

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Interact is the variable interaction matrix from spec 4.G: a symmetric
// relation over variables, marking whether one variable labels a node of
// the table and the other labels one of that node's direct children. Sift
// uses it to end a direction early: once the variable being sifted has
// passed a variable it interacts with, swapping it past one it does not
// interact with stops that direction. One roaring.Bitmap per variable keeps the matrix sparse; a
// Forest with thousands of declared but mostly-unrelated variables would
// waste a lot of memory on a dense n*n bit array.
type Interact struct {
	rows []*roaring.Bitmap
}

// NewInteract allocates an empty matrix over n variables.
func NewInteract(n int) *Interact {
	rows := make([]*roaring.Bitmap, n)
	for i := range rows {
		rows[i] = roaring.New()
	}
	return &Interact{rows: rows}
}

// Mark records that v and w interact. Symmetric: also marks (w, v).
func (m *Interact) Mark(v, w uint32) {
	if v == w {
		return
	}
	m.rows[v].Add(w)
	m.rows[w].Add(v)
}

// Test reports whether v and w are known to interact.
func (m *Interact) Test(v, w uint32) bool {
	return m.rows[v].Contains(w)
}

// Grow extends the matrix to cover newSize variables.
func (m *Interact) Grow(newSize int) {
	for i := len(m.rows); i < newSize; i++ {
		m.rows = append(m.rows, roaring.New())
	}
}

// Build recomputes the matrix from scratch by calling walk, which must
// invoke the supplied mark function once for every pair of variables that
// label a node and one of its direct children (the Forest-level scan over
// the unique table; reorder has no table access of its own).
func Build(n int, walk func(mark func(v, w uint32))) *Interact {
	m := NewInteract(n)
	walk(m.Mark)
	return m
}
