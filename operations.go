// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"fmt"
	"math/big"

	"github.com/dalzilio/sylvan/internal/task"
)

// taskHandle adapts a *task.Task spawned by a recursive operation to
// internal/refs.Task, so a Forest's per-worker Stacks can report an
// in-flight child's eventual result as a GC root before the parent has
// synced it.
type taskHandle struct{ t *task.Task }

func (h taskHandle) Done() bool { return h.t.IsDone() }

func (h taskHandle) Result() uint64 {
	v, ok := h.t.Peek()
	if !ok {
		return 0
	}
	return v.(uint64)
}

// Scanset returns the set of variable levels found when following the high
// branch of n, built by a method such as Makeset. The dual of Makeset.
func (f *Forest) Scanset(n Node) []int {
	if f.checkptr(n) != nil || n < 2 {
		return nil
	}
	var res []int
	for i := n; i > 1; i = f.High(i) {
		res = append(res, int(f.level(i)))
	}
	return res
}

// Makeset returns the cube (conjunction) of the variables in varset, in
// their positive form. Such that Scanset(Makeset(a)) == a.
func (f *Forest) Makeset(varset []int) Node {
	res := bddone
	for _, level := range varset {
		res = f.Apply(res, f.Ithvar(level), OPand)
		if f.lastErr != nil {
			return bddzero
		}
	}
	return res
}

// Support returns the cube of every variable n actually depends on.
func (f *Forest) Support(n Node) Node {
	if f.checkptr(n) != nil {
		return f.seterror("Support: bad node (%d)", n)
	}
	seen := make(map[Node]struct{})
	var levels []int
	var walk func(Node)
	walk = func(m Node) {
		if m < 2 {
			return
		}
		if _, ok := seen[m]; ok {
			return
		}
		seen[m] = struct{}{}
		levels = append(levels, int(f.level(m)))
		walk(f.Low(m))
		walk(f.High(m))
	}
	walk(n)
	return f.Makeset(levels)
}

// Not returns the negation of n.
func (f *Forest) Not(n Node) Node {
	if f.checkptr(n) != nil {
		return f.seterror("Not: wrong operand (%d)", n)
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(n))
	res := f.not(w, n)
	s.PopPtr(1)
	return Node(res)
}

func (f *Forest) not(w *task.Worker, n Node) uint64 {
	w.YieldToGCIfRequested()
	if n == bddzero {
		return uint64(bddone)
	}
	if n == bddone {
		return uint64(bddzero)
	}
	if res, ok := f.applyCache.Lookup(uint64(n), 0, 0, uint16(opnot)); ok {
		return res
	}
	s := f.stacks[w.ID()]
	low, high := f.successors(n)
	s.PushPtr(low)
	s.PushPtr(high)
	lres := f.not(w, Node(low))
	hres := f.not(w, Node(high))
	s.PopPtr(2)
	res, err := f.makenode(f.level(n), Node(lres), Node(hres))
	if err != nil {
		f.fatal(err)
	}
	f.applyCache.Store(uint64(n), 0, 0, uint16(opnot), uint64(res))
	return uint64(res)
}

// Apply computes the binary operation op over n1 and n2 (see Operator).
func (f *Forest) Apply(n1, n2 Node, op Operator) Node {
	if f.checkptr(n1) != nil {
		return f.seterror("Apply: wrong operand %s(n1: %d, ...)", op, n1)
	}
	if f.checkptr(n2) != nil {
		return f.seterror("Apply: wrong operand %s(..., n2: %d)", op, n2)
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(n1))
	s.PushPtr(uint64(n2))
	res := f.apply(w, n1, n2, op)
	s.PopPtr(2)
	return Node(res)
}

func (f *Forest) apply(w *task.Worker, left, right Node, op Operator) uint64 {
	w.YieldToGCIfRequested()
	switch op {
	case OPand:
		switch {
		case left == right:
			return uint64(left)
		case left == bddzero || right == bddzero:
			return uint64(bddzero)
		case left == bddone:
			return uint64(right)
		case right == bddone:
			return uint64(left)
		}
	case OPor:
		switch {
		case left == right:
			return uint64(left)
		case left == bddone || right == bddone:
			return uint64(bddone)
		case left == bddzero:
			return uint64(right)
		case right == bddzero:
			return uint64(left)
		}
	case OPxor:
		switch {
		case left == right:
			return uint64(bddzero)
		case left == bddzero:
			return uint64(right)
		case right == bddzero:
			return uint64(left)
		}
	case OPnand:
		if left == bddzero || right == bddzero {
			return uint64(bddone)
		}
	case OPnor:
		if left == bddone || right == bddone {
			return uint64(bddzero)
		}
	case OPimp:
		switch {
		case left == bddzero:
			return uint64(bddone)
		case left == bddone:
			return uint64(right)
		case right == bddone || left == right:
			return uint64(bddone)
		}
	case OPbiimp:
		switch {
		case left == right:
			return uint64(bddone)
		case left == bddone:
			return uint64(right)
		case right == bddone:
			return uint64(left)
		}
	case OPdiff:
		switch {
		case left == right:
			return uint64(bddzero)
		case right == bddone:
			return uint64(bddzero)
		case left == bddzero:
			return uint64(bddzero)
		}
	case OPless:
		switch {
		case left == right || left == bddone:
			return uint64(bddzero)
		case left == bddzero:
			return uint64(right)
		}
	case OPinvimp:
		switch {
		case right == bddzero:
			return uint64(bddone)
		case right == bddone:
			return uint64(left)
		case left == bddone || left == right:
			return uint64(bddone)
		}
	default:
		f.seterror("apply: unauthorized operation %s", op)
		return uint64(bddzero)
	}

	if left < 2 && right < 2 {
		return opres[op][left][right]
	}
	if res, ok := f.applyCache.Lookup(uint64(left), uint64(right), 0, uint16(op)); ok {
		return res
	}

	leftlvl, rightlvl := f.level(left), f.level(right)
	s := f.stacks[w.ID()]
	var res uint64
	switch {
	case leftlvl == rightlvl:
		ll, lh := f.Low(left), f.High(left)
		rl, rh := f.Low(right), f.High(right)
		t := w.Spawn(func(w2 *task.Worker) any { return f.apply(w2, lh, rh, op) })
		s.PushTask(taskHandle{t})
		lres := f.apply(w, ll, rl, op)
		hres := w.Sync(t).(uint64)
		s.PopTask(1)
		node, err := f.makenode(leftlvl, Node(lres), Node(hres))
		if err != nil {
			f.fatal(err)
		}
		res = uint64(node)
	case leftlvl < rightlvl:
		ll, lh := f.Low(left), f.High(left)
		t := w.Spawn(func(w2 *task.Worker) any { return f.apply(w2, lh, right, op) })
		s.PushTask(taskHandle{t})
		lres := f.apply(w, ll, right, op)
		hres := w.Sync(t).(uint64)
		s.PopTask(1)
		node, err := f.makenode(leftlvl, Node(lres), Node(hres))
		if err != nil {
			f.fatal(err)
		}
		res = uint64(node)
	default:
		rl, rh := f.Low(right), f.High(right)
		t := w.Spawn(func(w2 *task.Worker) any { return f.apply(w2, left, rh, op) })
		s.PushTask(taskHandle{t})
		lres := f.apply(w, left, rl, op)
		hres := w.Sync(t).(uint64)
		s.PopTask(1)
		node, err := f.makenode(rightlvl, Node(lres), Node(hres))
		if err != nil {
			f.fatal(err)
		}
		res = uint64(node)
	}
	f.applyCache.Store(uint64(left), uint64(right), 0, uint16(op), res)
	return res
}

// Ite computes [(f & g) | (!f & h)] directly, more efficiently than three
// separate Apply calls.
func (f *Forest) Ite(ff, g, h Node) Node {
	if f.checkptr(ff) != nil {
		return f.seterror("Ite: wrong operand (f: %d)", ff)
	}
	if f.checkptr(g) != nil {
		return f.seterror("Ite: wrong operand (g: %d)", g)
	}
	if f.checkptr(h) != nil {
		return f.seterror("Ite: wrong operand (h: %d)", h)
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(ff))
	s.PushPtr(uint64(g))
	s.PushPtr(uint64(h))
	res := f.ite(w, ff, g, h)
	s.PopPtr(3)
	return Node(res)
}

func iteLow(p, q, r uint32, n Node, low Node) Node {
	if p > q || p > r {
		return n
	}
	return low
}

func iteHigh(p, q, r uint32, n Node, high Node) Node {
	if p > q || p > r {
		return n
	}
	return high
}

func min3(p, q, r uint32) uint32 {
	if p <= q {
		if p <= r {
			return p
		}
		return r
	}
	if q <= r {
		return q
	}
	return r
}

func (f *Forest) ite(w *task.Worker, ff, g, h Node) uint64 {
	w.YieldToGCIfRequested()
	switch {
	case ff == bddone:
		return uint64(g)
	case ff == bddzero:
		return uint64(h)
	case g == h:
		return uint64(g)
	case g == bddone && h == bddzero:
		return uint64(ff)
	case g == bddzero && h == bddone:
		return f.not(w, ff)
	}
	if res, ok := f.iteCache.Lookup(uint64(ff), uint64(g), uint64(h), 0); ok {
		return res
	}
	p, q, r := f.level(ff), f.level(g), f.level(h)
	fl, fh := f.Low(ff), f.High(ff)
	gl, gh := f.Low(g), f.High(g)
	hl, hh := f.Low(h), f.High(h)

	s := f.stacks[w.ID()]
	t := w.Spawn(func(w2 *task.Worker) any {
		return f.ite(w2, iteHigh(p, q, r, ff, fh), iteHigh(q, p, r, g, gh), iteHigh(r, p, q, h, hh))
	})
	s.PushTask(taskHandle{t})
	lres := f.ite(w, iteLow(p, q, r, ff, fl), iteLow(q, p, r, g, gl), iteLow(r, p, q, h, hl))
	hres := w.Sync(t).(uint64)
	s.PopTask(1)

	node, err := f.makenode(min3(p, q, r), Node(lres), Node(hres))
	if err != nil {
		f.fatal(err)
	}
	f.iteCache.Store(uint64(ff), uint64(g), uint64(h), 0, uint64(node))
	return uint64(node)
}

// Exist returns the existential quantification of n over the variables in
// varset (a node built with Makeset).
func (f *Forest) Exist(n, varset Node) Node {
	if f.checkptr(n) != nil {
		return f.seterror("Exist: wrong node (%d)", n)
	}
	if f.checkptr(varset) != nil {
		return f.seterror("Exist: wrong varset (%d)", varset)
	}
	if varset < 2 {
		return n
	}
	if err := f.quantset2cache(varset); err != nil {
		return 0
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(n))
	s.PushPtr(uint64(varset))
	res := f.quant(w, n)
	s.PopPtr(2)
	return Node(res)
}

// quantset2cache marks every variable reachable through varset's high
// branches with the current generation id, used by quant/appquant to decide
// whether a level must be eliminated.
func (f *Forest) quantset2cache(varset Node) error {
	if varset < 2 {
		f.seterror("quantset2cache: illegal varset (%d)", varset)
		return f.lastErr
	}
	f.quantsetID++
	if f.quantsetID == 0 {
		f.quantset = make([]uint32, f.varnum)
		f.quantsetID = 1
	}
	for i := varset; i > 1; i = f.High(i) {
		f.quantset[f.level(i)] = f.quantsetID
		f.quantlast = f.level(i)
	}
	return nil
}

func (f *Forest) quant(w *task.Worker, n Node) uint64 {
	w.YieldToGCIfRequested()
	if n < 2 || f.level(n) > f.quantlast {
		return uint64(n)
	}
	if res, ok := f.quantCache.Lookup(uint64(n), 0, uint64(f.quantsetID), 0); ok {
		return res
	}
	s := f.stacks[w.ID()]
	t := w.Spawn(func(w2 *task.Worker) any { return f.quant(w2, f.High(n)) })
	s.PushTask(taskHandle{t})
	lres := f.quant(w, f.Low(n))
	hres := w.Sync(t).(uint64)
	s.PopTask(1)

	var res uint64
	if f.quantset[f.level(n)] == f.quantsetID {
		res = f.apply(w, Node(lres), Node(hres), OPor)
	} else {
		node, err := f.makenode(f.level(n), Node(lres), Node(hres))
		if err != nil {
			f.fatal(err)
		}
		res = uint64(node)
	}
	f.quantCache.Store(uint64(n), 0, uint64(f.quantsetID), 0, res)
	return res
}

// Forall returns the universal quantification of n over varset: !Exist(!n,
// varset) rewritten using De Morgan, without materializing !n twice.
func (f *Forest) Forall(n, varset Node) Node {
	neg := f.Not(n)
	res := f.Exist(neg, varset)
	return f.Not(res)
}

// AppEx applies op to n1 and n2, then existentially quantifies the result
// over varset, computing ∃varset. (n1 op n2) bottom-up in one traversal.
// When op is OPand this is the relational product of two BDDs. Only the
// first four Operator values (AND, XOR, OR, NAND) are supported.
func (f *Forest) AppEx(n1, n2 Node, op Operator, varset Node) Node {
	if op > OPnand {
		return f.seterror("AppEx: unsupported operator %s", op)
	}
	if f.checkptr(varset) != nil {
		return f.seterror("AppEx: wrong varset (%d)", varset)
	}
	if varset < 2 {
		return f.Apply(n1, n2, op)
	}
	if f.checkptr(n1) != nil {
		return f.seterror("AppEx: wrong operand %s(n1: %d, ...)", op, n1)
	}
	if f.checkptr(n2) != nil {
		return f.seterror("AppEx: wrong operand %s(..., n2: %d)", op, n2)
	}
	if err := f.quantset2cache(varset); err != nil {
		return 0
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(n1))
	s.PushPtr(uint64(n2))
	s.PushPtr(uint64(varset))
	res := f.appquant(w, n1, n2, op)
	s.PopPtr(3)
	return Node(res)
}

func (f *Forest) appquant(w *task.Worker, left, right Node, op Operator) uint64 {
	w.YieldToGCIfRequested()
	switch op {
	case OPand:
		switch {
		case left == bddzero || right == bddzero:
			return uint64(bddzero)
		case left == right:
			return f.quant(w, left)
		case left == bddone:
			return f.quant(w, right)
		case right == bddone:
			return f.quant(w, left)
		}
	case OPor:
		switch {
		case left == bddone || right == bddone:
			return uint64(bddone)
		case left == right:
			return f.quant(w, left)
		case left == bddzero:
			return f.quant(w, right)
		case right == bddzero:
			return f.quant(w, left)
		}
	case OPxor:
		switch {
		case left == right:
			return uint64(bddzero)
		case left == bddzero:
			return f.quant(w, right)
		case right == bddzero:
			return f.quant(w, left)
		}
	case OPnand:
		if left == bddzero || right == bddzero {
			return uint64(bddone)
		}
	default:
		f.seterror("appquant: unauthorized operation %s", op)
		return uint64(bddzero)
	}

	if left < 2 && right < 2 {
		return opres[op][left][right]
	}
	if f.level(left) > f.quantlast && f.level(right) > f.quantlast {
		return f.apply(w, left, right, op)
	}
	if res, ok := f.appexCache.Lookup(uint64(left), uint64(right), uint64(f.quantsetID), uint16(op)); ok {
		return res
	}

	leftlvl, rightlvl := f.level(left), f.level(right)
	s := f.stacks[w.ID()]
	var lres, hres uint64
	var lvl uint32
	switch {
	case leftlvl == rightlvl:
		lvl = leftlvl
		t := w.Spawn(func(w2 *task.Worker) any { return f.appquant(w2, f.High(left), f.High(right), op) })
		s.PushTask(taskHandle{t})
		lres = f.appquant(w, f.Low(left), f.Low(right), op)
		hres = w.Sync(t).(uint64)
		s.PopTask(1)
	case leftlvl < rightlvl:
		lvl = leftlvl
		t := w.Spawn(func(w2 *task.Worker) any { return f.appquant(w2, f.High(left), right, op) })
		s.PushTask(taskHandle{t})
		lres = f.appquant(w, f.Low(left), right, op)
		hres = w.Sync(t).(uint64)
		s.PopTask(1)
	default:
		lvl = rightlvl
		t := w.Spawn(func(w2 *task.Worker) any { return f.appquant(w2, left, f.High(right), op) })
		s.PushTask(taskHandle{t})
		lres = f.appquant(w, left, f.Low(right), op)
		hres = w.Sync(t).(uint64)
		s.PopTask(1)
	}

	var res uint64
	if f.quantset[lvl] == f.quantsetID {
		res = f.apply(w, Node(lres), Node(hres), OPor)
	} else {
		node, err := f.makenode(lvl, Node(lres), Node(hres))
		if err != nil {
			f.fatal(err)
		}
		res = uint64(node)
	}
	f.appexCache.Store(uint64(left), uint64(right), uint64(f.quantsetID), uint16(op), res)
	return res
}

// Replace substitutes variables in n following r (see Replacer, NewReplacer).
func (f *Forest) Replace(n Node, r Replacer) Node {
	if f.checkptr(n) != nil {
		return f.seterror("Replace: wrong operand (%d)", n)
	}
	w := f.enter()
	s := f.stacks[w.ID()]
	s.PushPtr(uint64(n))
	res := f.replace(w, n, r)
	s.PopPtr(1)
	return Node(res)
}

func (f *Forest) replace(w *task.Worker, n Node, r Replacer) uint64 {
	w.YieldToGCIfRequested()
	image, ok := r.Replace(f.level(n))
	if !ok {
		return uint64(n)
	}
	if res, ok := f.replaceCache.Lookup(uint64(n), 0, uint64(r.Id()), 0); ok {
		return res
	}
	s := f.stacks[w.ID()]
	t := w.Spawn(func(w2 *task.Worker) any { return f.replace(w2, f.High(n), r) })
	s.PushTask(taskHandle{t})
	lres := f.replace(w, f.Low(n), r)
	hres := w.Sync(t).(uint64)
	s.PopTask(1)

	res := f.correctify(w, image, Node(lres), Node(hres))
	f.replaceCache.Store(uint64(n), 0, uint64(r.Id()), 0, res)
	return res
}

// correctify rebuilds a node at level after a replace may have pushed low
// and high past where level would normally sit in the order.
func (f *Forest) correctify(w *task.Worker, level uint32, low, high Node) uint64 {
	lowlvl, highlvl := f.level(low), f.level(high)
	if level < lowlvl && level < highlvl {
		node, err := f.makenode(level, low, high)
		if err != nil {
			f.fatal(err)
		}
		return uint64(node)
	}
	if level == lowlvl || level == highlvl {
		f.seterror("correctify: level (%d) aliases low (%d:%d) or high (%d:%d)", level, low, lowlvl, high, highlvl)
		return uint64(bddzero)
	}

	s := f.stacks[w.ID()]
	if lowlvl == highlvl {
		ll, lh := f.Low(low), f.High(low)
		hl, hh := f.Low(high), f.High(high)
		t := w.Spawn(func(w2 *task.Worker) any { return f.correctify(w2, level, lh, hh) })
		s.PushTask(taskHandle{t})
		left := f.correctify(w, level, ll, hl)
		right := w.Sync(t).(uint64)
		s.PopTask(1)
		node, err := f.makenode(lowlvl, Node(left), Node(right))
		if err != nil {
			f.fatal(err)
		}
		return uint64(node)
	}
	if lowlvl < highlvl {
		ll, lh := f.Low(low), f.High(low)
		t := w.Spawn(func(w2 *task.Worker) any { return f.correctify(w2, level, lh, high) })
		s.PushTask(taskHandle{t})
		left := f.correctify(w, level, ll, high)
		right := w.Sync(t).(uint64)
		s.PopTask(1)
		node, err := f.makenode(lowlvl, Node(left), Node(right))
		if err != nil {
			f.fatal(err)
		}
		return uint64(node)
	}
	hl, hh := f.Low(high), f.High(high)
	t := w.Spawn(func(w2 *task.Worker) any { return f.correctify(w2, level, low, hh) })
	s.PushTask(taskHandle{t})
	left := f.correctify(w, level, low, hl)
	right := w.Sync(t).(uint64)
	s.PopTask(1)
	node, err := f.makenode(highlvl, Node(left), Node(right))
	if err != nil {
		f.fatal(err)
	}
	return uint64(node)
}

// Satcount computes the number of satisfying variable assignments for n,
// using arbitrary-precision arithmetic to avoid overflow.
func (f *Forest) Satcount(n Node) *big.Int {
	res := big.NewInt(0)
	if f.checkptr(n) != nil {
		f.seterror("Satcount: wrong operand (%d)", n)
		return res
	}
	res.SetBit(res, int(f.level(n)), 1)
	satc := make(map[Node]*big.Int)
	return res.Mul(res, f.satcount(n, satc))
}

func (f *Forest) satcount(n Node, satc map[Node]*big.Int) *big.Int {
	if n < 2 {
		return big.NewInt(int64(n))
	}
	if res, ok := satc[n]; ok {
		return res
	}
	level := f.level(n)
	low, high := f.Low(n), f.High(n)

	res := big.NewInt(0)
	two := big.NewInt(0)
	two.SetBit(two, int(f.level(low)-level-1), 1)
	res.Add(res, two.Mul(two, f.satcount(low, satc)))
	two = big.NewInt(0)
	two.SetBit(two, int(f.level(high)-level-1), 1)
	res.Add(res, two.Mul(two, f.satcount(high, satc)))
	satc[n] = res
	return res
}

// Allsat calls fn once for every path from n to True, that is once per
// satisfying assignment with the variables off that path left open. Each
// call receives a slice of length Varnum, entries 0/1/-1 for false/true/
// don't-care. Stops and returns fn's error if fn returns one.
func (f *Forest) Allsat(fn func([]int) error, n Node) error {
	if f.checkptr(n) != nil {
		return fmt.Errorf("Allsat: wrong node (%d)", n)
	}
	prof := make([]int, f.varnum)
	for k := range prof {
		prof[k] = -1
	}
	return f.allsat(n, prof, fn)
}

func (f *Forest) allsat(n Node, prof []int, fn func([]int) error) error {
	if n == bddone {
		return fn(prof)
	}
	if n == bddzero {
		return nil
	}
	if low := f.Low(n); low != bddzero {
		prof[f.level(n)] = 0
		for v := f.level(low) - 1; v > f.level(n); v-- {
			prof[v] = -1
		}
		if err := f.allsat(low, prof, fn); err != nil {
			return err
		}
	}
	if high := f.High(n); high != bddzero {
		prof[f.level(n)] = 1
		for v := f.level(high) - 1; v > f.level(n); v-- {
			prof[v] = -1
		}
		if err := f.allsat(high, prof, fn); err != nil {
			return err
		}
	}
	return nil
}

// Allnodes calls fn on every node accessible from ns, or on every live node
// in the Forest if ns is empty. Order is unspecified.
func (f *Forest) Allnodes(fn func(id, level, low, high uint64) error, ns ...Node) error {
	for _, n := range ns {
		if err := f.checkptr(n); err != nil {
			return fmt.Errorf("Allnodes: wrong node; %w", err)
		}
	}
	if len(ns) == 0 {
		var outerErr error
		f.tbl.ForEachAllocated(func(idx uint64) {
			if outerErr != nil || idx < 2 {
				return
			}
			low, high, _, _ := f.children(idx)
			if err := fn(idx, uint64(f.level(Node(idx))), low, high); err != nil {
				outerErr = err
			}
		})
		return outerErr
	}
	seen := make(map[Node]struct{})
	var walk func(Node) error
	walk = func(n Node) error {
		if n < 2 {
			return nil
		}
		if _, ok := seen[n]; ok {
			return nil
		}
		seen[n] = struct{}{}
		low, high := f.Low(n), f.High(n)
		if err := fn(uint64(n), uint64(f.level(n)), uint64(low), uint64(high)); err != nil {
			return err
		}
		if err := walk(low); err != nil {
			return err
		}
		return walk(high)
	}
	for _, n := range ns {
		if err := walk(n); err != nil {
			return err
		}
	}
	return nil
}
