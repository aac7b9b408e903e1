// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package table

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// mix folds a Key and a reprobe seed into a bucket hash. The first probe
// uses seed 0; every subsequent probe on collision rehashes with the
// previous probe's result as the new seed, so the reprobe sequence is
// deterministic and collision-free across distinct keys with overwhelming
// probability (spec 4.B, "rehash the key with the previous hash as seed").
func mix(k Key, seed uint64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], k[0])
	binary.LittleEndian.PutUint64(buf[8:16], k[1])
	binary.LittleEndian.PutUint64(buf[16:24], seed)
	return xxhash.Sum64(buf[:])
}
