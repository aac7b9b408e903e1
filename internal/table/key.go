// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package table

import "github.com/holiman/uint256"

// Key is the 128-bit identity of a node: everything that makes two nodes
// equal for hash-consing purposes, packed into two machine words the same
// way uint256.Int packs a wide integer into 64-bit limbs. Kinds populate it
// differently (a BDD node packs level/low/high; an MTBDD leaf packs its
// value; an LDD node packs value/down/right) but the table itself only ever
// compares Key for equality, never interprets it.
type Key [2]uint64

// BuildKey packs a node's defining fields into a Key. tag distinguishes
// terminal encodings that would otherwise collide (e.g. a ZDD empty-family
// leaf versus a BDD false leaf); level, low and high are kind-specific and
// may be bit-truncated by the caller (spec 3 reserves 24 bits for level and
// 40 bits for each child index).
func BuildKey(tag uint8, level uint32, low, high uint64) Key {
	var x uint256.Int
	x.SetUint64(uint64(tag))
	x.Lsh(&x, 24)
	x.Or(&x, new(uint256.Int).SetUint64(uint64(level)&0xffffff))
	x.Lsh(&x, 40)
	x.Or(&x, new(uint256.Int).SetUint64(low&0xffffffffff))
	x.Lsh(&x, 40)
	x.Or(&x, new(uint256.Int).SetUint64(high&0xffffffffff))
	// the payload never exceeds 112 bits, so only the two low limbs of x are
	// ever non-zero; x[0] is the least significant limb.
	return Key{x[1], x[0]}
}
