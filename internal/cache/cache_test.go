// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreThenLookupHits(t *testing.T) {
	c := New(1024, 0)
	_, ok := c.Lookup(1, 2, 3, 7)
	assert.False(t, ok)

	c.Store(1, 2, 3, 7, 42)
	res, ok := c.Lookup(1, 2, 3, 7)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), res)
}

func TestDistinctOpDoesNotAlias(t *testing.T) {
	c := New(1024, 0)
	c.Store(1, 2, 3, 7, 42)
	_, ok := c.Lookup(1, 2, 3, 8)
	assert.False(t, ok)
}

func TestResetClearsEntries(t *testing.T) {
	c := New(16, 0)
	c.Store(1, 2, 3, 7, 42)
	c.Reset()
	_, ok := c.Lookup(1, 2, 3, 7)
	assert.False(t, ok)
}

func TestResizeWithRatio(t *testing.T) {
	c := New(16, 50)
	c.Store(1, 2, 3, 7, 42)
	c.Resize(1000)
	assert.Equal(t, 500, len(c.buckets))
	_, ok := c.Lookup(1, 2, 3, 7)
	assert.False(t, ok)
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	c := New(1024, 0)
	c.Store(1, 2, 3, 7, 42)
	c.Lookup(1, 2, 3, 7)
	c.Lookup(9, 9, 9, 9)
	s := c.Stats()
	assert.Equal(t, int64(1), s.Hit)
	assert.Equal(t, int64(1), s.Miss)
}
