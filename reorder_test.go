// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"testing"

	"github.com/dalzilio/sylvan/internal/reorder"
)

// buildSample constructs a small BDD over 5 variables whose structure gives
// the reordering engine something nontrivial to chew on: a function that
// reads every variable, so every level interacts with its neighbor.
func buildSample(t *testing.T, f *Forest) Node {
	t.Helper()
	n := f.True()
	for i := 0; i < f.Varnum(); i++ {
		lit := f.Ithvar(i)
		if i%2 == 0 {
			lit = f.NIthvar(i)
		}
		n = f.And(n, f.Or(lit, f.Ithvar((i+1)%f.Varnum())))
	}
	return n
}

func TestReorderPreservesSatcountAndEqual(t *testing.T) {
	f, err := New(5, Nodesize(2000), Cachesize(200))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := f.AddRef(buildSample(t, f))
	before := f.Satcount(n)

	if err := f.Reorder(reorder.Config{}); err != nil {
		t.Fatalf("Reorder: %s", err)
	}

	after := f.Satcount(n)
	if before.Cmp(after) != 0 {
		t.Fatalf("Satcount changed across Reorder: before=%s after=%s", before, after)
	}

	n2 := buildSample(t, f)
	if !f.Equal(n, n2) {
		t.Fatalf("node rebuilt after Reorder is no longer equal to a freshly built one denoting the same function")
	}
}

func TestReorderIsIdempotentOnVarsetLiterals(t *testing.T) {
	f, err := New(4, Nodesize(1000), Cachesize(100))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for i := 0; i < f.Varnum(); i++ {
		f.AddRef(f.Ithvar(i))
		f.AddRef(f.NIthvar(i))
	}

	if err := f.Reorder(reorder.Config{}); err != nil {
		t.Fatalf("Reorder: %s", err)
	}

	for i := 0; i < f.Varnum(); i++ {
		lvl := f.level(f.Ithvar(i))
		if f.level(f.NIthvar(i)) != lvl {
			t.Fatalf("Ithvar(%d) and NIthvar(%d) disagree on level after Reorder", i, i)
		}
		if f.Low(f.Ithvar(i)) != f.False() || f.High(f.Ithvar(i)) != f.True() {
			t.Fatalf("Ithvar(%d) lost its (False,True) children after Reorder", i)
		}
		if f.Low(f.NIthvar(i)) != f.True() || f.High(f.NIthvar(i)) != f.False() {
			t.Fatalf("NIthvar(%d) lost its (True,False) children after Reorder", i)
		}
	}
}

func TestSwapAdjacentOnSingleLevel(t *testing.T) {
	f, err := New(3, Nodesize(500), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := f.AddRef(f.Ite(f.Ithvar(0), f.Ithvar(1), f.Ithvar(2)))
	before := f.Satcount(n)

	if _, _, err := f.swapAdjacent(0); err != nil {
		t.Fatalf("swapAdjacent: %s", err)
	}

	after := f.Satcount(n)
	if before.Cmp(after) != 0 {
		t.Fatalf("swapAdjacent changed Satcount: before=%s after=%s", before, after)
	}
	if f.levels.Var(0) != 1 || f.levels.Var(1) != 0 {
		t.Fatalf("swapAdjacent did not exchange the expected variables")
	}
}
