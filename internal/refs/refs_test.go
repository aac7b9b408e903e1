// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package refs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalRefDeref(t *testing.T) {
	e := NewExternal(4)
	e.Ref(10)
	e.Ref(10)
	e.Ref(20)
	assert.Equal(t, uint64(2), e.Count(10))
	assert.Equal(t, uint64(1), e.Count(20))

	e.Deref(10)
	assert.Equal(t, uint64(1), e.Count(10))

	live := map[uint64]bool{}
	e.ForEachLive(func(idx uint64) { live[idx] = true })
	assert.True(t, live[10])
	assert.True(t, live[20])
}

func TestExternalDerefToZeroStopsBeingLive(t *testing.T) {
	e := NewExternal(4)
	e.Ref(5)
	e.Deref(5)
	assert.Equal(t, uint64(0), e.Count(5))
	live := map[uint64]bool{}
	e.ForEachLive(func(idx uint64) { live[idx] = true })
	assert.False(t, live[5])
}

func TestExternalGrowsPastCapacity(t *testing.T) {
	e := NewExternal(4)
	for i := uint64(0); i < 200; i++ {
		e.Ref(i)
	}
	for i := uint64(0); i < 200; i++ {
		assert.Equal(t, uint64(1), e.Count(i))
	}
}

func TestExternalConcurrentRef(t *testing.T) {
	e := NewExternal(4)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Ref(42)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), e.Count(42))
}

func TestProtectedRegisterDeref(t *testing.T) {
	p := NewProtected()
	h := uint64(7)
	p.Register(&h)

	seen := []uint64{}
	p.ForEachLive(func(handle uint64) { seen = append(seen, handle) })
	assert.Equal(t, []uint64{7}, seen)

	h = 9
	seen = nil
	p.ForEachLive(func(handle uint64) { seen = append(seen, handle) })
	assert.Equal(t, []uint64{9}, seen)

	p.Unregister(&h)
	seen = nil
	p.ForEachLive(func(handle uint64) { seen = append(seen, handle) })
	assert.Empty(t, seen)
}

type fakeTask struct {
	done   bool
	result uint64
}

func (f *fakeTask) Done() bool     { return f.done }
func (f *fakeTask) Result() uint64 { return f.result }

func TestStacksForEachLive(t *testing.T) {
	s := NewStacks()
	s.PushPtr(1)
	s.PushPtr(2)
	s.PushTask(&fakeTask{done: true, result: 3})
	s.PushTask(&fakeTask{done: false, result: 999})

	seen := map[uint64]bool{}
	s.ForEachLive(func(h uint64) { seen[h] = true })
	assert.True(t, seen[1])
	assert.True(t, seen[2])
	assert.True(t, seen[3])
	assert.False(t, seen[999])

	s.PopPtr(2)
	s.PopTask(2)
	assert.Empty(t, s.ptr)
	assert.Empty(t, s.task)
}
