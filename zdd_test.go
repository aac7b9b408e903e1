// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import "testing"

func TestZDDVarMember(t *testing.T) {
	f, err := New(4, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	s := f.ZDDVar(1)
	if !f.ZDDMember(s, []int{1}) {
		t.Fatalf("ZDDVar(1) should contain {1}")
	}
	if f.ZDDMember(s, []int{0}) || f.ZDDMember(s, []int{2}) {
		t.Fatalf("ZDDVar(1) should not contain any other singleton")
	}
	if f.ZDDMember(f.ZDDEmpty(), []int{1}) {
		t.Fatalf("the empty family should contain nothing")
	}
	if !f.ZDDMember(f.ZDDBase(), []int{}) {
		t.Fatalf("the base family should contain the empty set")
	}
}

func TestZDDUnionInterDiff(t *testing.T) {
	f, err := New(4, Nodesize(500), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a := f.ZDDUnion(f.ZDDVar(0), f.ZDDVar(1)) // {{0}, {1}}
	b := f.ZDDUnion(f.ZDDVar(1), f.ZDDVar(2)) // {{1}, {2}}

	union := f.ZDDUnion(a, b)
	for _, set := range [][]int{{0}, {1}, {2}} {
		if !f.ZDDMember(union, set) {
			t.Fatalf("union should contain %v", set)
		}
	}
	if f.ZDDCount(union).Int64() != 3 {
		t.Fatalf("ZDDCount(union) = %s, want 3", f.ZDDCount(union))
	}

	inter := f.ZDDInter(a, b)
	if !f.ZDDMember(inter, []int{1}) {
		t.Fatalf("intersection should contain {1}")
	}
	if f.ZDDMember(inter, []int{0}) || f.ZDDMember(inter, []int{2}) {
		t.Fatalf("intersection should only contain {1}")
	}
	if f.ZDDCount(inter).Int64() != 1 {
		t.Fatalf("ZDDCount(inter) = %s, want 1", f.ZDDCount(inter))
	}

	diff := f.ZDDDiff(a, b)
	if !f.ZDDMember(diff, []int{0}) {
		t.Fatalf("a \\ b should contain {0}")
	}
	if f.ZDDMember(diff, []int{1}) || f.ZDDMember(diff, []int{2}) {
		t.Fatalf("a \\ b should only contain {0}")
	}
}

func TestZDDUnionWithEmptyAndSelf(t *testing.T) {
	f, err := New(3, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a := f.ZDDVar(0)
	if f.ZDDUnion(a, f.ZDDEmpty()) != a {
		t.Fatalf("Union(a, empty) should return a unchanged")
	}
	if f.ZDDUnion(a, a) != a {
		t.Fatalf("Union(a, a) should return a unchanged")
	}
}
