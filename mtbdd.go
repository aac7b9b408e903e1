// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"math/big"
	"sync"

	"github.com/dalzilio/sylvan/internal/table"
)

// mtbddLeaves content-addresses every distinct leaf value ever built in this
// Forest so MTBDDLeaf hash-conses like every other node kind: two calls with
// equal values return the same Node. A terminal's Key packs an index into
// mtbddLeaves rather than a second DD's low/high pair (the placeholder spec
// 4.B's node layout already reserves the 40-bit low field for), guarded by
// a plain mutex since leaf creation is rare next to Apply/Ite's hot path.
type mtbddLeaves struct {
	mu     sync.Mutex
	byText map[string]Node
	vals   []*big.Int
}

func newMTBDDLeaves() *mtbddLeaves {
	return &mtbddLeaves{byText: make(map[string]Node)}
}

// MTBDDLeaf returns the terminal Node carrying val, creating it on first
// use. level is packed as _MAXVAR, a sentinel beyond every real variable
// level (for the BDD terminals 0/1, nodes.go's level() returns f.varnum).
func (f *Forest) MTBDDLeaf(val *big.Int) Node {
	text := val.String()
	f.mleaves.mu.Lock()
	if n, ok := f.mleaves.byText[text]; ok {
		f.mleaves.mu.Unlock()
		return n
	}
	id := uint64(len(f.mleaves.vals))
	f.mleaves.vals = append(f.mleaves.vals, new(big.Int).Set(val))
	f.mleaves.mu.Unlock()

	key := table.BuildKey(kindMTBDD, _MAXVAR, id, 0)
	n, err := f.allocate(key)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	f.mleaves.mu.Lock()
	f.mleaves.byText[text] = n
	f.mleaves.mu.Unlock()
	return n
}

// MTBDDInt64 is a convenience wrapper around MTBDDLeaf for the common case
// of an int64-valued terminal.
func (f *Forest) MTBDDInt64(val int64) Node {
	return f.MTBDDLeaf(big.NewInt(val))
}

// MTBDDLeafValue returns the value carried by a terminal n, and false if n
// is not an MTBDD terminal in this Forest.
func (f *Forest) MTBDDLeafValue(n Node) (*big.Int, bool) {
	if n < 2 || f.nodekind(n) != kindMTBDD || f.level(n) != _MAXVAR {
		return nil, false
	}
	low, _ := f.successors(n)
	f.mleaves.mu.Lock()
	defer f.mleaves.mu.Unlock()
	if low >= uint64(len(f.mleaves.vals)) {
		return nil, false
	}
	return f.mleaves.vals[low], true
}

// mtbddIsLeaf reports whether n is an MTBDD terminal (as opposed to an
// internal decision node).
func (f *Forest) mtbddIsLeaf(n Node) bool {
	return f.nodekind(n) == kindMTBDD && f.level(n) == _MAXVAR
}

// mtbddMakeNode applies the same low==high reduction rule as a plain BDD
// (spec 4.E "canonicalization rules ... kept as the kind-specific makeNode
// each type supplies"), tagged kindMTBDD so its Keys never alias a BDD
// node's even when (level, low, high) coincide numerically.
func (f *Forest) mtbddMakeNode(level uint32, low, high Node) (Node, error) {
	if low == high {
		return low, nil
	}
	key := table.BuildKey(kindMTBDD, level, uint64(low), uint64(high))
	return f.allocate(key)
}

// MTOperator combines two leaf values into a result leaf value, supplied by
// the caller of MTBDDApply (e.g. (&big.Int).Add for a sum MTBDD).
type MTOperator func(a, b *big.Int) *big.Int

// MTBDDApply computes the pointwise combination of n1 and n2 under op,
// building a new MTBDD whose leaves are op(v1, v2) for every pair of leaves
// reachable along the same path. Unlike Apply/Ite, this recursion is
// sequential rather than Spawn/Sync'd: op is an arbitrary Go closure, not
// one of the small fixed Operator codes internal/cache's (a, b, c, op
// uint16) key shape can represent, so memoizing it across goroutines would
// need its own synchronized cache instead of reusing applyCache — deferred
// as a documented scope limitation rather than built speculatively.
func (f *Forest) MTBDDApply(n1, n2 Node, op MTOperator) Node {
	if f.checkptr(n1) != nil || f.checkptr(n2) != nil {
		return f.seterror("MTBDDApply: bad operand (%d, %d)", n1, n2)
	}
	memo := map[[2]Node]Node{}
	res, err := f.mtbddApply(n1, n2, op, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) mtbddApply(n1, n2 Node, op MTOperator, memo map[[2]Node]Node) (Node, error) {
	if f.mtbddIsLeaf(n1) && f.mtbddIsLeaf(n2) {
		v1, _ := f.MTBDDLeafValue(n1)
		v2, _ := f.MTBDDLeafValue(n2)
		return f.MTBDDLeaf(op(v1, v2)), nil
	}
	key := [2]Node{n1, n2}
	if res, ok := memo[key]; ok {
		return res, nil
	}
	lvl1, lvl2 := f.level(n1), f.level(n2)
	var level uint32
	var low1, high1, low2, high2 Node
	switch {
	case lvl1 == lvl2:
		level = lvl1
		low1, high1 = f.Low(n1), f.High(n1)
		low2, high2 = f.Low(n2), f.High(n2)
	case lvl1 < lvl2:
		level = lvl1
		low1, high1 = f.Low(n1), f.High(n1)
		low2, high2 = n2, n2
	default:
		level = lvl2
		low1, high1 = n1, n1
		low2, high2 = f.Low(n2), f.High(n2)
	}
	lres, err := f.mtbddApply(low1, low2, op, memo)
	if err != nil {
		return 0, err
	}
	hres, err := f.mtbddApply(high1, high2, op, memo)
	if err != nil {
		return 0, err
	}
	res, err := f.mtbddMakeNode(level, lres, hres)
	if err != nil {
		return 0, err
	}
	memo[key] = res
	return res, nil
}

// MTUnaryOperator transforms a single leaf value, supplied to MTBDDUapply.
type MTUnaryOperator func(a *big.Int) *big.Int

// MTBDDUapply applies op to every leaf reachable from n, rebuilding the
// internal structure above unchanged.
func (f *Forest) MTBDDUapply(n Node, op MTUnaryOperator) Node {
	if f.checkptr(n) != nil {
		return f.seterror("MTBDDUapply: bad operand (%d)", n)
	}
	memo := map[Node]Node{}
	res, err := f.mtbddUapply(n, op, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) mtbddUapply(n Node, op MTUnaryOperator, memo map[Node]Node) (Node, error) {
	if f.mtbddIsLeaf(n) {
		v, _ := f.MTBDDLeafValue(n)
		return f.MTBDDLeaf(op(v)), nil
	}
	if res, ok := memo[n]; ok {
		return res, nil
	}
	low, err := f.mtbddUapply(f.Low(n), op, memo)
	if err != nil {
		return 0, err
	}
	high, err := f.mtbddUapply(f.High(n), op, memo)
	if err != nil {
		return 0, err
	}
	res, err := f.mtbddMakeNode(f.level(n), low, high)
	if err != nil {
		return 0, err
	}
	memo[n] = res
	return res, nil
}

// MTBDDAbstract eliminates every variable in varset (a cube built with
// Makeset) from n by folding every pair of cofactors through combine,
// generalizing Exist's existential quantification (which is the BDD special
// case combine=OR) to an arbitrary commutative, associative leaf operator.
func (f *Forest) MTBDDAbstract(n, varset Node, combine MTOperator) Node {
	if f.checkptr(n) != nil {
		return f.seterror("MTBDDAbstract: bad node (%d)", n)
	}
	if varset < 2 {
		return n
	}
	cut := uint32(0)
	seen := make(map[uint32]bool)
	for i := varset; i > 1; i = f.High(i) {
		seen[f.level(i)] = true
		cut = f.level(i)
	}
	memo := map[Node]Node{}
	res, err := f.mtbddAbstract(n, seen, cut, combine, memo)
	if err != nil {
		f.fatal(err)
		return bddzero
	}
	return res
}

func (f *Forest) mtbddAbstract(n Node, seen map[uint32]bool, cut uint32, combine MTOperator, memo map[Node]Node) (Node, error) {
	if f.mtbddIsLeaf(n) || f.level(n) > cut {
		return n, nil
	}
	if res, ok := memo[n]; ok {
		return res, nil
	}
	lres, err := f.mtbddAbstract(f.Low(n), seen, cut, combine, memo)
	if err != nil {
		return 0, err
	}
	hres, err := f.mtbddAbstract(f.High(n), seen, cut, combine, memo)
	if err != nil {
		return 0, err
	}
	var res Node
	if seen[f.level(n)] {
		res, err = f.mtbddApply(lres, hres, combine, map[[2]Node]Node{})
		if err != nil {
			return 0, err
		}
	} else {
		res, err = f.mtbddMakeNode(f.level(n), lres, hres)
		if err != nil {
			return 0, err
		}
	}
	memo[n] = res
	return res, nil
}
