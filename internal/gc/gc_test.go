// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package gc

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalzilio/sylvan/internal/cache"
	"github.com/dalzilio/sylvan/internal/refs"
	"github.com/dalzilio/sylvan/internal/table"
	"github.com/dalzilio/sylvan/internal/task"
)

// buildChain inserts a linear chain of n BDD-shaped nodes idx[0]..idx[n-1],
// each pointing to the next, and returns the root handle.
func buildChain(t *testing.T, tbl *table.Table, n int) uint64 {
	t.Helper()
	root := uint64(1) // terminal, chain bottoms out here
	for i := 0; i < n; i++ {
		idx, _, err := tbl.Lookup(table.BuildKey(0, uint32(i), root, root))
		require.NoError(t, err)
		root = idx
	}
	return root
}

func childrenOf(tbl *table.Table) Children {
	return func(idx uint64) (uint64, uint64, bool, bool) {
		k := tbl.Get(idx)
		// BuildKey packs tag(8) level(24) low(40) high(40) into 112 bits
		// across two 64-bit words; low = bits [40:80), high = bits [0:40).
		combined := (k[0] << 24) | (k[1] >> 40)
		low := combined & 0xffffffffff
		high := k[1] & 0xffffffffff
		return low, high, low >= 2, high >= 2
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	tbl, err := table.New(64, 64)
	require.NoError(t, err)
	pool := task.New(2)
	defer pool.Close()

	root := buildChain(t, tbl, 5)

	external := refs.NewExternal(4)
	external.Ref(root)
	protected := refs.NewProtected()
	stacks := []*refs.Stacks{refs.NewStacks(), refs.NewStacks()}

	// an extra, unreferenced chain that should be collected; tag 1 keeps its
	// keys distinct from the referenced chain's
	extra := uint64(1)
	for i := 0; i < 3; i++ {
		idx, _, err := tbl.Lookup(table.BuildKey(1, uint32(i), extra, extra))
		require.NoError(t, err)
		extra = idx
	}

	c := New(pool, tbl, []*cache.Cache{cache.New(16, 0)}, external, protected, stacks, childrenOf(tbl), zerolog.Nop())
	c.Collect()

	require.Len(t, c.History, 1)
	assert.Equal(t, 5, c.History[0].Live)
	assert.Equal(t, 3, c.History[0].Freed)
	assert.True(t, tbl.Allocated(root))
}

func TestCollectKeepsStackRoots(t *testing.T) {
	tbl, err := table.New(64, 64)
	require.NoError(t, err)
	pool := task.New(1)
	defer pool.Close()

	root := buildChain(t, tbl, 4)

	external := refs.NewExternal(4)
	protected := refs.NewProtected()
	stacks := []*refs.Stacks{refs.NewStacks()}
	stacks[0].PushPtr(root)

	c := New(pool, tbl, nil, external, protected, stacks, childrenOf(tbl), zerolog.Nop())
	c.Collect()

	assert.True(t, tbl.Allocated(root))
	assert.Equal(t, 4, c.History[0].Live)
}

func TestCollectGrowsUnderAggressivePolicy(t *testing.T) {
	tbl, err := table.New(8, 64) // 6 usable slots
	require.NoError(t, err)
	pool := task.New(1)
	defer pool.Close()

	root := buildChain(t, tbl, 5)
	external := refs.NewExternal(4)
	external.Ref(root)
	protected := refs.NewProtected()
	stacks := []*refs.Stacks{refs.NewStacks()}

	c := New(pool, tbl, nil, external, protected, stacks, childrenOf(tbl), zerolog.Nop())
	c.SetPolicy(Aggressive)
	c.Collect()

	assert.True(t, c.History[0].Grown)
	assert.Equal(t, uint64(16), tbl.Size())
}
