// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"math/big"
	"testing"
)

func TestMTBDDLeafHashConses(t *testing.T) {
	f, err := New(2, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a := f.MTBDDInt64(42)
	b := f.MTBDDInt64(42)
	if a != b {
		t.Fatalf("MTBDDLeaf(42) returned distinct nodes: %d, %d", a, b)
	}
	c := f.MTBDDInt64(7)
	if a == c {
		t.Fatalf("MTBDDLeaf(42) and MTBDDLeaf(7) collided")
	}
	v, ok := f.MTBDDLeafValue(a)
	if !ok || v.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("MTBDDLeafValue(a) = %v, %v, want 42, true", v, ok)
	}
}

func TestMTBDDApplySum(t *testing.T) {
	f, err := New(2, Nodesize(500), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lo, hi := f.MTBDDInt64(1), f.MTBDDInt64(2)
	n1, err := f.mtbddMakeNode(0, lo, hi)
	if err != nil {
		t.Fatal(err)
	}
	n2 := f.MTBDDInt64(10)

	sum := f.MTBDDApply(n1, n2, func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })

	lowLeaf := f.Low(sum)
	highLeaf := f.High(sum)
	lv, _ := f.MTBDDLeafValue(lowLeaf)
	hv, _ := f.MTBDDLeafValue(highLeaf)
	if lv.Cmp(big.NewInt(11)) != 0 || hv.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("MTBDDApply(sum): low=%v high=%v, want 11, 12", lv, hv)
	}
}

func TestMTBDDUapplyDoublesEveryLeaf(t *testing.T) {
	f, err := New(2, Nodesize(300), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lo, hi := f.MTBDDInt64(3), f.MTBDDInt64(4)
	n, err := f.mtbddMakeNode(0, lo, hi)
	if err != nil {
		t.Fatal(err)
	}

	doubled := f.MTBDDUapply(n, func(a *big.Int) *big.Int { return new(big.Int).Mul(a, big.NewInt(2)) })
	lv, _ := f.MTBDDLeafValue(f.Low(doubled))
	hv, _ := f.MTBDDLeafValue(f.High(doubled))
	if lv.Cmp(big.NewInt(6)) != 0 || hv.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("MTBDDUapply(double): low=%v high=%v, want 6, 8", lv, hv)
	}
}

func TestMTBDDAbstractSumsOverVariable(t *testing.T) {
	f, err := New(2, Nodesize(300), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lo, hi := f.MTBDDInt64(5), f.MTBDDInt64(9)
	n, err := f.mtbddMakeNode(0, lo, hi)
	if err != nil {
		t.Fatal(err)
	}
	varset := f.Makeset([]int{0})

	total := f.MTBDDAbstract(n, varset, func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
	v, ok := f.MTBDDLeafValue(total)
	if !ok || v.Cmp(big.NewInt(14)) != 0 {
		t.Fatalf("MTBDDAbstract(sum): %v, %v, want 14, true", v, ok)
	}
}
