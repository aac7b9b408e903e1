// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
)

// persistMagic/persistVersion head every stream so Deserialize can refuse a
// file written by something else, or by an incompatible future revision of
// this format, before trying to interpret its node records.
const persistMagic uint32 = 0x53474e31 // "SGN1"
const persistVersion uint32 = 1

// Serialize writes a binary stream carrying every node reachable from roots
// (the whole forest if roots is empty) plus roots themselves, so a later
// Deserialize can rebuild equivalent handles in a fresh Forest. Nodes are
// assigned a dense stored-id 1..N by a topological (children-before-parent)
// walk; the two reserved terminals keep their universal ids 0/1 and are
// never written as records. Inside a record and in the root list a stored
// node is written as its stored-id plus one, so the values 0 and 1 always
// denote the terminals. MTBDD leaf values, which don't fit the 128-bit
// node key every other kind packs low/high into, are written as a separate
// length-prefixed section ahead of the node records and referenced from
// them by index ("leaf payloads are re-registered" before any node record
// naming them).
func (f *Forest) Serialize(w io.Writer, roots ...Node) error {
	for _, n := range roots {
		if err := f.checkptr(n); err != nil {
			return fmt.Errorf("Serialize: bad root %d: %w", n, err)
		}
	}
	bw := bufio.NewWriter(w)

	leafIndex := map[string]uint64{}
	var leaves []*big.Int
	stored := map[Node]uint64{}
	var order []Node

	var walk func(Node)
	walk = func(n Node) {
		if n < 2 {
			return
		}
		if _, ok := stored[n]; ok {
			return
		}
		if f.nodekind(n) == kindMTBDD && f.level(n) == _MAXVAR {
			val, _ := f.MTBDDLeafValue(n)
			text := val.String()
			if _, ok := leafIndex[text]; !ok {
				leafIndex[text] = uint64(len(leaves))
				leaves = append(leaves, val)
			}
			stored[n] = uint64(len(order)) + 1
			order = append(order, n)
			return
		}
		low, high := f.Low(n), f.High(n)
		walk(low)
		walk(high)
		stored[n] = uint64(len(order)) + 1
		order = append(order, n)
	}
	for _, n := range roots {
		walk(n)
	}
	if len(roots) == 0 {
		f.tbl.ForEachAllocated(func(idx uint64) {
			if idx < 2 {
				return
			}
			walk(Node(idx))
		})
	}

	if err := binary.Write(bw, binary.BigEndian, persistMagic); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, persistVersion); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, f.varnum); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}

	if err := binary.Write(bw, binary.BigEndian, uint64(len(leaves))); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}
	for _, v := range leaves {
		text := v.String()
		if err := binary.Write(bw, binary.BigEndian, uint32(len(text))); err != nil {
			return fmt.Errorf("Serialize: %w", err)
		}
		if _, err := bw.WriteString(text); err != nil {
			return fmt.Errorf("Serialize: %w", err)
		}
	}

	if err := binary.Write(bw, binary.BigEndian, uint64(len(order))); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}
	for _, n := range order {
		kind := uint64(f.nodekind(n))
		level := uint64(f.level(n))
		tagA := kind<<56 | level<<32

		var tagB uint64
		if kind == uint64(kindMTBDD) && level == uint64(_MAXVAR) {
			val, _ := f.MTBDDLeafValue(n)
			tagB = leafIndex[val.String()]
		} else {
			low, high := f.Low(n), f.High(n)
			sLow, sHigh := uint64(low), uint64(high)
			if low >= 2 {
				sLow = stored[low] + 1
			}
			if high >= 2 {
				sHigh = stored[high] + 1
			}
			tagB = sLow<<32 | sHigh
		}
		if err := binary.Write(bw, binary.BigEndian, tagA); err != nil {
			return fmt.Errorf("Serialize: %w", err)
		}
		if err := binary.Write(bw, binary.BigEndian, tagB); err != nil {
			return fmt.Errorf("Serialize: %w", err)
		}
	}

	if err := binary.Write(bw, binary.BigEndian, uint64(len(roots))); err != nil {
		return fmt.Errorf("Serialize: %w", err)
	}
	for _, n := range roots {
		id := uint64(n)
		if n >= 2 {
			id = stored[n] + 1
		}
		if err := binary.Write(bw, binary.BigEndian, id); err != nil {
			return fmt.Errorf("Serialize: %w", err)
		}
	}
	return bw.Flush()
}

// Deserialize reads a stream written by Serialize and rebuilds equivalent
// nodes in f, returning the roots in the order they were written. Every
// node record is replayed through its kind's own makeNode (reduction rules
// apply exactly as they did on first construction), so the result is
// canonical in f even if f's table state differs from the Forest that
// wrote the stream.
func (f *Forest) Deserialize(r io.Reader) ([]Node, error) {
	f.persistScratch = f.persistScratch[:0]
	defer func() { f.persistScratch = nil }()

	br := bufio.NewReader(r)

	var magic, version, varnum uint32
	if err := binary.Read(br, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	if magic != persistMagic {
		return nil, fmt.Errorf("Deserialize: not a sylvan stream (bad magic %#x)", magic)
	}
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	if version != persistVersion {
		return nil, fmt.Errorf("Deserialize: unsupported stream version %d", version)
	}
	if err := binary.Read(br, binary.BigEndian, &varnum); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	if varnum > f.varnum {
		return nil, fmt.Errorf("Deserialize: stream has %d variables, forest only has %d", varnum, f.varnum)
	}

	var numLeaves uint64
	if err := binary.Read(br, binary.BigEndian, &numLeaves); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	leaves := make([]*big.Int, numLeaves)
	for i := range leaves {
		var length uint32
		if err := binary.Read(br, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("Deserialize: %w", err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("Deserialize: %w", err)
		}
		v, ok := new(big.Int).SetString(string(buf), 10)
		if !ok {
			return nil, fmt.Errorf("Deserialize: malformed leaf value %q", buf)
		}
		leaves[i] = v
	}

	var numNodes uint64
	if err := binary.Read(br, binary.BigEndian, &numNodes); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	handles := make([]Node, numNodes+1) // handles[0] unused; stored-ids start at 1
	for i := uint64(1); i <= numNodes; i++ {
		var tagA, tagB uint64
		if err := binary.Read(br, binary.BigEndian, &tagA); err != nil {
			return nil, fmt.Errorf("Deserialize: %w", err)
		}
		if err := binary.Read(br, binary.BigEndian, &tagB); err != nil {
			return nil, fmt.Errorf("Deserialize: %w", err)
		}
		kind := uint8(tagA >> 56)
		level := uint32((tagA >> 32) & 0xffffff)

		var n Node
		var err error
		switch {
		case kind == kindMTBDD && level == _MAXVAR:
			if tagB >= uint64(len(leaves)) {
				return nil, fmt.Errorf("Deserialize: leaf index %d out of range", tagB)
			}
			n = f.MTBDDLeaf(leaves[tagB])
		default:
			rawLow, rawHigh := tagB>>32, tagB&0xffffffff
			low, high := resolveHandle(rawLow, handles), resolveHandle(rawHigh, handles)
			switch kind {
			case kindBDD:
				n, err = f.makenode(level, low, high)
			case kindMTBDD:
				n, err = f.mtbddMakeNode(level, low, high)
			case kindZDD:
				n, err = f.zddMakeNode(level, low, high)
			case kindLDD:
				if level == lddCopy {
					n, err = f.LDDMakeCopyNode(low)
				} else {
					n, err = f.LDDMakeNode(level, low, high)
				}
			case kindTBDD:
				n, err = f.tbddMakeNode(level, low, high)
			default:
				err = fmt.Errorf("unknown node kind %d", kind)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("Deserialize: rebuilding stored node %d: %w", i, err)
		}
		handles[i] = n
		if n >= 2 {
			f.persistScratch = append(f.persistScratch, uint64(n))
		}
	}

	var numRoots uint64
	if err := binary.Read(br, binary.BigEndian, &numRoots); err != nil {
		return nil, fmt.Errorf("Deserialize: %w", err)
	}
	roots := make([]Node, numRoots)
	for i := range roots {
		var id uint64
		if err := binary.Read(br, binary.BigEndian, &id); err != nil {
			return nil, fmt.Errorf("Deserialize: %w", err)
		}
		roots[i] = resolveHandle(id, handles)
	}
	return roots, nil
}

// persistRoots is registered with the GC coordinator via AddRootSource at
// Forest construction time: it protects the nodes Deserialize has rebuilt so
// far but not yet returned to its caller, in case reconstructing a later
// node in the stream triggers a stop-the-world collection.
func (f *Forest) persistRoots(mark func(uint64)) {
	for _, idx := range f.persistScratch {
		mark(idx)
	}
}

// resolveHandle maps a written reference back to the Node it was rebuilt as:
// values 0 and 1 are the universal terminals, unchanged across every stream;
// any other value v names the stored node with stored-id v-1 in the handles
// table built during the node pass.
func resolveHandle(id uint64, handles []Node) Node {
	if id < 2 {
		return Node(id)
	}
	return handles[id-1]
}
