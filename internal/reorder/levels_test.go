// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package reorder

import "testing"

func TestLevelsIdentity(t *testing.T) {
	l := NewLevels(4)
	for v := uint32(0); v < 4; v++ {
		if l.Level(v) != int(v) {
			t.Fatalf("Level(%d) = %d, want %d", v, l.Level(v), v)
		}
		if l.Var(int(v)) != v {
			t.Fatalf("Var(%d) = %d, want %d", v, l.Var(int(v)), v)
		}
	}
}

func TestLevelsSwapRoundTrip(t *testing.T) {
	l := NewLevels(4)
	l.SwapAdjacent(1)
	if l.Var(1) != 2 || l.Var(2) != 1 {
		t.Fatalf("after swap: level1=%d level2=%d, want 2,1", l.Var(1), l.Var(2))
	}
	if l.Level(1) != 2 || l.Level(2) != 1 {
		t.Fatalf("after swap: level(1)=%d level(2)=%d, want 2,1", l.Level(1), l.Level(2))
	}
	l.SwapAdjacent(1)
	for v := uint32(0); v < 4; v++ {
		if l.Level(v) != int(v) {
			t.Fatalf("round trip broke identity at var %d: level %d", v, l.Level(v))
		}
	}
}

func TestLevelsGrow(t *testing.T) {
	l := NewLevels(2)
	l.Grow(5)
	if l.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", l.Size())
	}
	if l.Var(4) != 4 || l.Level(4) != 4 {
		t.Fatalf("newly grown variable should start at identity position")
	}
}
