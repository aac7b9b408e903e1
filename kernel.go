// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"github.com/cockroachdb/errors"
)

// _MINFREENODES is the minimal number of nodes (%) that has to be left after
// a garbage collect unless a resize should be done.
const _MINFREENODES int = 20

// _MAXVAR is the maximal number of levels in a Forest: 24 bits, matching the
// level field packed into a table.Key.
const _MAXVAR uint32 = 0xFFFFFF

// _MAXREFCOUNT is the saturating value of the external reference counter:
// 23 bits, matching internal/refs.External.
const _MAXREFCOUNT uint64 = 0x7FFFFF

// _DEFAULTMAXNODEINC is the default limit on how many nodes a single resize
// may add, about a million nodes.
const _DEFAULTMAXNODEINC int = 1 << 20

var errMemory = errors.New("unable to free memory or resize the unique table")
