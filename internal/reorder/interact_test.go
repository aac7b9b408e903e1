// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package reorder

import "testing"

func TestInteractMarkSymmetric(t *testing.T) {
	m := NewInteract(4)
	m.Mark(0, 2)
	if !m.Test(0, 2) || !m.Test(2, 0) {
		t.Fatalf("Mark(0,2) should be visible from both sides")
	}
	if m.Test(0, 1) || m.Test(1, 3) {
		t.Fatalf("unmarked pairs should not interact")
	}
}

func TestInteractMarkSelfIsNoop(t *testing.T) {
	m := NewInteract(3)
	m.Mark(1, 1)
	if m.Test(1, 1) {
		t.Fatalf("a variable should never be recorded as interacting with itself")
	}
}

func TestInteractGrow(t *testing.T) {
	m := NewInteract(2)
	m.Grow(5)
	m.Mark(4, 0)
	if !m.Test(4, 0) {
		t.Fatalf("grown rows should be usable")
	}
}

func TestInteractBuild(t *testing.T) {
	pairs := [][2]uint32{{0, 1}, {1, 2}}
	m := Build(3, func(mark func(v, w uint32)) {
		for _, p := range pairs {
			mark(p[0], p[1])
		}
	})
	if !m.Test(0, 1) || !m.Test(1, 2) {
		t.Fatalf("Build should replay every marked pair")
	}
	if m.Test(0, 2) {
		t.Fatalf("Build should not invent interactions")
	}
}
