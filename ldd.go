// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"github.com/dalzilio/sylvan/internal/table"
)

// lddCopy is the reserved value marking a copy-node (supplemented from
// `include/sylvan/ldd.h`: a slot meaning "any value here passes through
// unchanged", used by relational product to thread untouched tuple
// positions without enumerating every possible value). It sits one below
// the terminal sentinel _MAXVAR so it can never collide with a real value
// (LDD values are validated below _MAXVAR-1 by MakeNode).
const lddCopy uint32 = _MAXVAR - 1

// lddvalue is n's packed value, independent of the Forest's varnum: unlike
// a BDD level, an LDD value is a domain element (state variable value, not
// a position in the variable order), so the terminal sentinel here is
// always the raw _MAXVAR bit pattern rather than f.varnum.
func (f *Forest) lddvalue(n Node) uint32 {
	if n < 2 {
		return _MAXVAR
	}
	k := f.tbl.Get(uint64(n))
	return uint32((k[0] >> 16) & 0xffffff)
}

// LDDMakeNode builds the node for (value, down, right), applying LDD's
// reduction rule: a value whose down branch is False cannot lead to any
// tuple, so it is dropped from the sibling list rather than ever stored
// (the LDD analogue of a ZDD's high==empty suppression).
func (f *Forest) LDDMakeNode(value uint32, down, right Node) (Node, error) {
	if value >= lddCopy {
		return 0, errBadNode
	}
	if down == bddzero {
		return right, nil
	}
	key := table.BuildKey(kindLDD, value, uint64(down), uint64(right))
	return f.allocate(key)
}

// LDDMakeCopyNode builds a copy-node: every value matches, continuing with
// down regardless of which value a concrete tuple carries at this position.
func (f *Forest) LDDMakeCopyNode(down Node) (Node, error) {
	if down == bddzero {
		return bddzero, nil
	}
	key := table.BuildKey(kindLDD, lddCopy, uint64(down), uint64(bddzero))
	return f.allocate(key)
}

// LDDIsCopyNode reports whether n is a copy-node.
func (f *Forest) LDDIsCopyNode(n Node) bool {
	return n >= 2 && f.nodekind(n) == kindLDD && f.lddvalue(n) == lddCopy
}

// LDDSingleton returns the one-element relation {(value) + down}: value
// followed by whatever tuples down represents.
func (f *Forest) LDDSingleton(value uint32, down Node) Node {
	n, err := f.LDDMakeNode(value, down, bddzero)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return n
}

// LDDUnion returns the relation containing every tuple in a or b.
func (f *Forest) LDDUnion(a, b Node) Node {
	memo := map[[2]Node]Node{}
	res, err := f.lddUnion(a, b, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) lddUnion(a, b Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case a == b:
		return a, nil
	case a == bddzero:
		return b, nil
	case b == bddzero:
		return a, nil
	}
	key := [2]Node{a, b}
	if a > b {
		key = [2]Node{b, a}
	}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	va, vb := f.lddvalue(a), f.lddvalue(b)
	var res Node
	var err error
	switch {
	case va == vb:
		var down, right Node
		down, err = f.lddUnion(f.Low(a), f.Low(b), memo)
		if err != nil {
			return 0, err
		}
		right, err = f.lddUnion(f.High(a), f.High(b), memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(va, down, right)
	case va < vb:
		var right Node
		right, err = f.lddUnion(f.High(a), b, memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(va, f.Low(a), right)
	default:
		var right Node
		right, err = f.lddUnion(a, f.High(b), memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(vb, f.Low(b), right)
	}
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// LDDIntersect returns the relation containing every tuple in both a and b.
func (f *Forest) LDDIntersect(a, b Node) Node {
	memo := map[[2]Node]Node{}
	res, err := f.lddIntersect(a, b, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) lddIntersect(a, b Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case a == b:
		return a, nil
	case a == bddzero, b == bddzero:
		return bddzero, nil
	}
	key := [2]Node{a, b}
	if a > b {
		key = [2]Node{b, a}
	}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	va, vb := f.lddvalue(a), f.lddvalue(b)
	var res Node
	var err error
	switch {
	case va == vb:
		var down, right Node
		down, err = f.lddIntersect(f.Low(a), f.Low(b), memo)
		if err != nil {
			return 0, err
		}
		right, err = f.lddIntersect(f.High(a), f.High(b), memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(va, down, right)
	case va < vb:
		res, err = f.lddIntersect(f.High(a), b, memo)
	default:
		res, err = f.lddIntersect(a, f.High(b), memo)
	}
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// LDDMinus returns the relation containing every tuple in a but not in b.
func (f *Forest) LDDMinus(a, b Node) Node {
	memo := map[[2]Node]Node{}
	res, err := f.lddMinus(a, b, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) lddMinus(a, b Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case a == bddzero, a == b:
		return bddzero, nil
	case b == bddzero:
		return a, nil
	}
	key := [2]Node{a, b}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	va, vb := f.lddvalue(a), f.lddvalue(b)
	var res Node
	var err error
	switch {
	case va == vb:
		var down, right Node
		down, err = f.lddMinus(f.Low(a), f.Low(b), memo)
		if err != nil {
			return 0, err
		}
		right, err = f.lddMinus(f.High(a), f.High(b), memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(va, down, right)
	case va < vb:
		var right Node
		right, err = f.lddMinus(f.High(a), b, memo)
		if err != nil {
			return 0, err
		}
		res, err = f.LDDMakeNode(va, f.Low(a), right)
	default:
		res, err = f.lddMinus(a, f.High(b), memo)
	}
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// LDDMember reports whether tuple belongs to the relation n.
func (f *Forest) LDDMember(n Node, tuple []uint32) bool {
	for _, want := range tuple {
		if n < 2 {
			return false
		}
		for n > 1 && f.lddvalue(n) != want && !f.LDDIsCopyNode(n) {
			n = f.High(n)
		}
		if n < 2 {
			return false
		}
		n = f.Low(n)
	}
	return n == bddone
}

// LDDCount returns the number of tuples in the relation n.
func (f *Forest) LDDCount(n Node) int64 {
	memo := map[Node]int64{}
	return f.lddCount(n, memo)
}

func (f *Forest) lddCount(n Node, memo map[Node]int64) int64 {
	if n == bddzero {
		return 0
	}
	if n == bddone {
		return 1
	}
	if res, ok := memo[n]; ok {
		return res
	}
	res := f.lddCount(f.Low(n), memo) + f.lddCount(f.High(n), memo)
	memo[n] = res
	return res
}
