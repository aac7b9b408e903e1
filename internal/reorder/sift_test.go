// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package reorder

import "testing"

func markAll(m *Interact, n int) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.Mark(uint32(i), uint32(j))
		}
	}
}

// TestSiftOneSettlesAtBestLevel checks that siftOne visits every position
// reachable by adjacent swaps and settles variable 0 at the level with the
// lowest cost, not merely the last one visited.
func TestSiftOneSettlesAtBestLevel(t *testing.T) {
	levels := NewLevels(4)
	costAtLevel := []int{5, 5, 1, 5}

	swap := func(level int) (before, after int, err error) {
		before = costAtLevel[levels.Level(0)]
		levels.SwapAdjacent(level)
		after = costAtLevel[levels.Level(0)]
		return before, after, nil
	}

	interact := NewInteract(4)
	markAll(interact, 4)

	if err := siftOne(levels, swap, interact, 0, Config{}, func() bool { return false }); err != nil {
		t.Fatalf("siftOne: %s", err)
	}
	if got := levels.Level(0); got != 2 {
		t.Fatalf("variable 0 settled at level %d, want 2", got)
	}
	// the bijection must still hold after every swap it performed.
	for v := uint32(0); v < 4; v++ {
		if levels.Var(levels.Level(v)) != v {
			t.Fatalf("levels lost its bijection for variable %d", v)
		}
	}
}

// TestSiftRunsEveryVariable exercises the full pass: it must not error, must
// preserve the level/var bijection, and must stop immediately once
// ShouldStop reports true.
func TestSiftRunsEveryVariable(t *testing.T) {
	levels := NewLevels(4)
	interact := NewInteract(4)
	markAll(interact, 4)
	mrc := NewMRC(4)
	mrc.Reset([]int64{4, 3, 2, 1})

	calls := 0
	swap := func(level int) (before, after int, err error) {
		calls++
		levels.SwapAdjacent(level)
		return 1, 1, nil
	}

	if err := Sift(levels, swap, interact, mrc, Config{}); err != nil {
		t.Fatalf("Sift: %s", err)
	}
	if calls == 0 {
		t.Fatalf("Sift never called swap")
	}
	for v := uint32(0); v < 4; v++ {
		if levels.Var(levels.Level(v)) != v {
			t.Fatalf("levels lost its bijection for variable %d after Sift", v)
		}
	}
}

func TestSiftStopsImmediately(t *testing.T) {
	levels := NewLevels(3)
	interact := NewInteract(3)
	mrc := NewMRC(3)
	calls := 0
	swap := func(level int) (before, after int, err error) {
		calls++
		levels.SwapAdjacent(level)
		return 1, 1, nil
	}
	cfg := Config{ShouldStop: func() bool { return true }}
	if err := Sift(levels, swap, interact, mrc, cfg); err != nil {
		t.Fatalf("Sift: %s", err)
	}
	if calls != 0 {
		t.Fatalf("Sift called swap %d times despite ShouldStop returning true immediately", calls)
	}
}
