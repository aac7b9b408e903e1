// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"math/big"

	"github.com/dalzilio/sylvan/internal/table"
)

// zddEmpty and zddBase reuse the two reserved terminals every kind shares
// (spec 3): the empty family of sets and the family containing only the
// empty set, the ZDD reading of False/True.
var zddEmpty = bddzero
var zddBase = bddone

// ZDDEmpty returns the family containing no sets.
func (f *Forest) ZDDEmpty() Node { return zddEmpty }

// ZDDBase returns the family containing exactly the empty set.
func (f *Forest) ZDDBase() Node { return zddBase }

// zddMakeNode is ZDD's kind-specific canonicalization rule (spec 4.E): a
// node whose high branch is the empty family is redundant (the variable
// cannot be present in any member of the family it would introduce), so it
// is suppressed rather than ever allocated, unlike a BDD's low==high rule.
func (f *Forest) zddMakeNode(level uint32, low, high Node) (Node, error) {
	if high == zddEmpty {
		return low, nil
	}
	key := table.BuildKey(kindZDD, level, uint64(low), uint64(high))
	return f.allocate(key)
}

// ZDDVar returns the family containing only the singleton set {i}.
func (f *Forest) ZDDVar(i int) Node {
	if i < 0 || uint32(i) >= f.varnum {
		return f.seterror("ZDDVar: variable %d out of range [0,%d)", i, f.varnum)
	}
	n, err := f.zddMakeNode(uint32(i), zddEmpty, zddBase)
	if err != nil {
		f.fatal(err)
		return zddEmpty
	}
	return n
}

// zddLevel is n's level for ZDD recursion purposes: both terminals compare
// as "beyond every real variable", the same convention nodes.go's level()
// already uses.
func (f *Forest) zddLevel(n Node) uint32 { return f.level(n) }

// ZDDUnion returns the family containing every set in n1 or n2.
func (f *Forest) ZDDUnion(n1, n2 Node) Node {
	if f.checkptr(n1) != nil || f.checkptr(n2) != nil {
		return f.seterror("ZDDUnion: bad operand (%d, %d)", n1, n2)
	}
	memo := map[[2]Node]Node{}
	res, err := f.zddUnion(n1, n2, memo)
	if err != nil {
		f.fatal(err)
		return zddEmpty
	}
	return res
}

func (f *Forest) zddUnion(n1, n2 Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case n1 == n2:
		return n1, nil
	case n1 == zddEmpty:
		return n2, nil
	case n2 == zddEmpty:
		return n1, nil
	}
	key := [2]Node{n1, n2}
	if n1 > n2 {
		key = [2]Node{n2, n1}
	}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	lvl1, lvl2 := f.zddLevel(n1), f.zddLevel(n2)
	var level uint32
	var low, high Node
	var err error
	switch {
	case lvl1 == lvl2:
		level = lvl1
		low, err = f.zddUnion(f.Low(n1), f.Low(n2), memo)
		if err != nil {
			return 0, err
		}
		high, err = f.zddUnion(f.High(n1), f.High(n2), memo)
	case lvl1 < lvl2:
		level = lvl1
		low, err = f.zddUnion(f.Low(n1), n2, memo)
		high = f.High(n1)
	default:
		level = lvl2
		low, err = f.zddUnion(n1, f.Low(n2), memo)
		high = f.High(n2)
	}
	if err != nil {
		return 0, err
	}
	res, err := f.zddMakeNode(level, low, high)
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// ZDDInter returns the family containing every set in both n1 and n2.
func (f *Forest) ZDDInter(n1, n2 Node) Node {
	if f.checkptr(n1) != nil || f.checkptr(n2) != nil {
		return f.seterror("ZDDInter: bad operand (%d, %d)", n1, n2)
	}
	memo := map[[2]Node]Node{}
	res, err := f.zddInter(n1, n2, memo)
	if err != nil {
		f.fatal(err)
		return zddEmpty
	}
	return res
}

func (f *Forest) zddInter(n1, n2 Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case n1 == n2:
		return n1, nil
	case n1 == zddEmpty, n2 == zddEmpty:
		return zddEmpty, nil
	}
	key := [2]Node{n1, n2}
	if n1 > n2 {
		key = [2]Node{n2, n1}
	}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	lvl1, lvl2 := f.zddLevel(n1), f.zddLevel(n2)
	var res Node
	var err error
	switch {
	case lvl1 == lvl2:
		var low, high Node
		low, err = f.zddInter(f.Low(n1), f.Low(n2), memo)
		if err != nil {
			return 0, err
		}
		high, err = f.zddInter(f.High(n1), f.High(n2), memo)
		if err != nil {
			return 0, err
		}
		res, err = f.zddMakeNode(lvl1, low, high)
	case lvl1 < lvl2:
		res, err = f.zddInter(f.Low(n1), n2, memo)
	default:
		res, err = f.zddInter(n1, f.Low(n2), memo)
	}
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// ZDDDiff returns the family containing every set in n1 but not in n2.
func (f *Forest) ZDDDiff(n1, n2 Node) Node {
	if f.checkptr(n1) != nil || f.checkptr(n2) != nil {
		return f.seterror("ZDDDiff: bad operand (%d, %d)", n1, n2)
	}
	memo := map[[2]Node]Node{}
	res, err := f.zddDiff(n1, n2, memo)
	if err != nil {
		f.fatal(err)
		return zddEmpty
	}
	return res
}

func (f *Forest) zddDiff(n1, n2 Node, memo map[[2]Node]Node) (Node, error) {
	switch {
	case n1 == zddEmpty, n1 == n2:
		return zddEmpty, nil
	case n2 == zddEmpty:
		return n1, nil
	}
	key := [2]Node{n1, n2}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	lvl1, lvl2 := f.zddLevel(n1), f.zddLevel(n2)
	var level uint32
	var low, high Node
	var err error
	switch {
	case lvl1 == lvl2:
		level = lvl1
		low, err = f.zddDiff(f.Low(n1), f.Low(n2), memo)
		if err != nil {
			return 0, err
		}
		high, err = f.zddDiff(f.High(n1), f.High(n2), memo)
	case lvl1 < lvl2:
		level = lvl1
		low, err = f.zddDiff(f.Low(n1), n2, memo)
		high = f.High(n1)
	default:
		low, err = f.zddDiff(n1, f.Low(n2), memo)
		if err != nil {
			return 0, err
		}
		memo[key] = low
		return low, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := f.zddMakeNode(level, low, high)
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// ZDDMember reports whether set (a strictly increasing slice of variable
// indices) belongs to the family n.
func (f *Forest) ZDDMember(n Node, set []int) bool {
	i := 0
	for n > 1 && i < len(set) {
		lvl := int(f.zddLevel(n))
		switch {
		case lvl < set[i]:
			n = f.Low(n)
		case lvl == set[i]:
			n = f.High(n)
			i++
		default:
			return false
		}
	}
	for n > 1 {
		n = f.Low(n)
	}
	return n == zddBase && i == len(set)
}

// ZDDCount returns the number of sets in the family n.
func (f *Forest) ZDDCount(n Node) *big.Int {
	if f.checkptr(n) != nil {
		f.seterror("ZDDCount: bad operand (%d)", n)
		return big.NewInt(0)
	}
	memo := map[Node]*big.Int{}
	return f.zddCount(n, memo)
}

func (f *Forest) zddCount(n Node, memo map[Node]*big.Int) *big.Int {
	if n < 2 {
		return big.NewInt(int64(n))
	}
	if res, ok := memo[n]; ok {
		return res
	}
	res := new(big.Int).Add(f.zddCount(f.Low(n), memo), f.zddCount(f.High(n), memo))
	memo[n] = res
	return res
}
