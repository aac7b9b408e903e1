// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"bytes"
	"math/big"
	"testing"
)

func TestSerializeDeserializeBDDRoundTrip(t *testing.T) {
	f, err := New(4, Nodesize(500), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := f.And(f.Ithvar(0), f.Or(f.Ithvar(1), f.NIthvar(2)))
	f.AddRef(n)
	want := f.Satcount(n)

	var buf bytes.Buffer
	if err := f.Serialize(&buf, n); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	g, err := New(4, Nodesize(500), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	roots, err := g.Deserialize(&buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("Deserialize returned %d roots, want 1", len(roots))
	}
	got := g.Satcount(roots[0])
	if want.Cmp(got) != 0 {
		t.Fatalf("Satcount after round trip = %s, want %s", got, want)
	}

	same := g.And(g.Ithvar(0), g.Or(g.Ithvar(1), g.NIthvar(2)))
	if !g.Equal(roots[0], same) {
		t.Fatalf("deserialized node is not Equal to an equivalent freshly-built node")
	}
}

func TestSerializeDeserializeMTBDDLeaves(t *testing.T) {
	f, err := New(1, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lo, hi := f.MTBDDInt64(11), f.MTBDDInt64(22)
	n, err := f.mtbddMakeNode(0, lo, hi)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := f.Serialize(&buf, n); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	g, err := New(1, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	roots, err := g.Deserialize(&buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	lv, ok := g.MTBDDLeafValue(g.Low(roots[0]))
	if !ok || lv.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("low leaf = %v, %v, want 11, true", lv, ok)
	}
	hv, ok := g.MTBDDLeafValue(g.High(roots[0]))
	if !ok || hv.Cmp(big.NewInt(22)) != 0 {
		t.Fatalf("high leaf = %v, %v, want 22, true", hv, ok)
	}
}

func TestSerializeDeserializeLDDRoundTrip(t *testing.T) {
	f, err := New(1, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	inner := f.LDDSingleton(2, bddone)
	outer := f.LDDSingleton(1, inner)

	var buf bytes.Buffer
	if err := f.Serialize(&buf, outer); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	g, err := New(1, Nodesize(200), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	roots, err := g.Deserialize(&buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !g.LDDMember(roots[0], []uint32{1, 2}) {
		t.Fatalf("deserialized LDD relation should contain (1,2)")
	}
	if g.LDDMember(roots[0], []uint32{1, 3}) {
		t.Fatalf("deserialized LDD relation should not contain (1,3)")
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	f, err := New(2, Nodesize(50), Cachesize(50))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	buf := bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if _, err := f.Deserialize(buf); err == nil {
		t.Fatalf("Deserialize should reject a stream with a bad magic number")
	}
}
