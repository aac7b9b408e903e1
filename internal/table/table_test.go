// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package table

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCreatesOnce(t *testing.T) {
	tb, err := New(64, 64)
	require.NoError(t, err)
	k := BuildKey(0, 3, 4, 5)

	idx, created, err := tb.Lookup(k)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, tb.Reserved(idx))

	idx2, created2, err := tb.Lookup(k)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, idx, idx2)
}

func TestLookupConcurrentIdempotent(t *testing.T) {
	tb, err := New(256, 256)
	require.NoError(t, err)
	k := BuildKey(1, 7, 8, 9)

	const n = 64
	indices := make([]uint64, n)
	created := make([]bool, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			idx, c, err := tb.Lookup(k)
			require.NoError(t, err)
			indices[i] = idx
			created[i] = c
		}(i)
	}
	wg.Wait()

	first := indices[0]
	creators := 0
	for i := 0; i < n; i++ {
		assert.Equal(t, first, indices[i])
		if created[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}

func TestLookupDistinctKeys(t *testing.T) {
	tb, err := New(64, 64)
	require.NoError(t, err)
	seen := map[uint64]Key{}
	for low := uint64(0); low < 20; low++ {
		k := BuildKey(0, 1, low, low+1)
		idx, created, err := tb.Lookup(k)
		require.NoError(t, err)
		assert.True(t, created)
		seen[idx] = k
	}
	assert.Len(t, seen, 20)
}

func TestTableFullReturnsError(t *testing.T) {
	tb, err := New(4, 4) // 2 usable slots after the reserved terminals
	require.NoError(t, err)
	_, _, err = tb.Lookup(BuildKey(0, 0, 0, 1))
	require.NoError(t, err)
	_, _, err = tb.Lookup(BuildKey(0, 0, 0, 2))
	require.NoError(t, err)
	_, _, err = tb.Lookup(BuildKey(0, 0, 0, 3))
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestSweepFreesUnmarked(t *testing.T) {
	tb, err := New(16, 16)
	require.NoError(t, err)
	idxA, _, err := tb.Lookup(BuildKey(0, 0, 0, 1))
	require.NoError(t, err)
	idxB, _, err := tb.Lookup(BuildKey(0, 0, 0, 2))
	require.NoError(t, err)

	tb.ClearHashChains()
	tb.ForEachAllocated(func(idx uint64) {
		if idx == idxA {
			tb.Republish(idx)
			return
		}
		tb.Free(idx)
	})

	assert.True(t, tb.Allocated(idxA))
	assert.False(t, tb.Allocated(idxB))

	again, created, err := tb.Lookup(BuildKey(0, 0, 0, 1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, idxA, again)
}

func TestGrowPreservesHandles(t *testing.T) {
	tb, err := New(8, 64)
	require.NoError(t, err)
	idx, _, err := tb.Lookup(BuildKey(0, 0, 0, 1))
	require.NoError(t, err)

	tb.Grow(64)
	assert.Equal(t, uint64(64), tb.Size())
	assert.True(t, tb.Allocated(idx))
	assert.Equal(t, BuildKey(0, 0, 0, 1), tb.Get(idx))

	again, created, err := tb.Lookup(BuildKey(0, 0, 0, 1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, idx, again)
}
