// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package task

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
)

// Worker owns one deque and is the unit of ownership Spawn/Sync operate
// against. Worker slots are shared: a "client" goroutine entering the pool
// through Pool.Worker borrows a slot for the lifetime of its top-level call, and the
// pool's own background stealers continuously attempt to steal from every
// slot's deque, including slots currently borrowed by a client.
type Worker struct {
	id   int
	pool *Pool
	dq   *deque
}

// ID returns the worker's slot index, stable for the lifetime of the pool.
// Used by internal/refs to index per-worker local stacks.
func (w *Worker) ID() int { return w.id }

// Spawn pushes a closure onto this worker's deque for possible execution by a
// thief, and returns a handle to join it with Sync. If the deque is at
// capacity the closure runs inline immediately (graceful degradation to
// sequential execution, matching the "bounded deque" note in spec 4.A).
func (w *Worker) Spawn(fn func(*Worker) any) *Task {
	t := newTask(fn)
	if !w.dq.pushBottom(t) {
		t.run(w)
	}
	return t
}

// Sync joins a task spawned from this same worker. If nobody has stolen it
// yet, popBottom hands it straight back and we run it here (no parallelism
// was actually exploited); otherwise we block until the thief that stole it
// finishes.
func (w *Worker) Sync(t *Task) any {
	if got, ok := w.dq.popBottom(); ok && got == t {
		t.run(w)
	}
	return t.Wait()
}

// YieldToGCIfRequested is the suspension point embedded at the top of every
// recursive DD operation (spec 4.E step 9 / 5 "Suspension points"). A task
// that observes a pending stop-the-world frame parks until the frame
// completes instead of continuing to allocate or read the shared tables.
func (w *Worker) YieldToGCIfRequested() {
	w.pool.parkIfFramePending()
}

// Pool is the fixed-size work-stealing runtime, one per Forest.
type Pool struct {
	workers []*Worker
	ctx     context.Context
	cancel  context.CancelFunc

	framePending atomic.Bool
	frameArrive  sync.WaitGroup
	frameMu      sync.Mutex   // guards frameRelease swap and NewFrame serialization
	frameRelease atomic.Value // chan struct{}, closed to release parked goroutines

	stopStealers chan struct{}
	stealersDone sync.WaitGroup
}

// New creates a pool of numWorkers worker slots and starts numWorkers
// background stealer goroutines. Call Close when the owning Forest is torn
// down (mirrors rudd's quit()).
func New(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		ctx:          ctx,
		cancel:       cancel,
		stopStealers: make(chan struct{}),
	}
	p.frameRelease.Store(make(chan struct{}))
	p.workers = make([]*Worker, numWorkers)
	for i := range p.workers {
		p.workers[i] = &Worker{id: i, pool: p, dq: newDeque(1024)}
	}
	p.stealersDone.Add(numWorkers)
	for i := range p.workers {
		go p.stealerLoop(p.workers[i])
	}
	return p
}

// NumWorkers returns the number of worker slots.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// Worker returns the worker slot at index i, for entry points that pin a
// specific slot (e.g. one slot per external goroutine, round-robin assigned
// by the Forest).
func (p *Pool) Worker(i int) *Worker { return p.workers[i%len(p.workers)] }

// Context returns a context that Close cancels.
func (p *Pool) Context() context.Context { return p.ctx }

// Close stops the background stealers. Safe to call once.
func (p *Pool) Close() {
	p.cancel()
	close(p.stopStealers)
	p.stealersDone.Wait()
}

func (p *Pool) stealerLoop(self *Worker) {
	defer p.stealersDone.Done()
	r := rand.New(rand.NewSource(int64(self.id) + 1))
	for {
		select {
		case <-p.stopStealers:
			return
		default:
		}
		if p.framePending.Load() {
			p.arriveAndPark()
			continue
		}
		victim := p.workers[r.Intn(len(p.workers))]
		if victim == self {
			runtime.Gosched()
			continue
		}
		if t, ok := victim.dq.steal(); ok {
			t.run(self)
			continue
		}
		runtime.Gosched()
	}
}

// NewFrame is the stop-the-world barrier (spec 4.A). It suspends every
// background stealer, runs barrier exclusively, then resumes normal
// stealing. Concurrent client goroutines cooperate by calling
// YieldToGCIfRequested at their own suspension points; NewFrame does not wait
// on them directly; it is the caller's responsibility (GC/reorder) to only
// call NewFrame from a context where it already holds whatever locks make
// that safe (the table/cache "full" condition, or the reorder precondition
// of no other operations in flight).
func (p *Pool) NewFrame(barrier func()) {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	p.frameArrive.Add(len(p.workers))
	p.framePending.Store(true)
	p.frameArrive.Wait()

	barrier()

	release := make(chan struct{})
	old := p.frameRelease.Swap(release).(chan struct{})
	p.framePending.Store(false)
	close(old)
}

func (p *Pool) arriveAndPark() {
	release := p.frameRelease.Load().(chan struct{})
	p.frameArrive.Done()
	<-release
}

// parkIfFramePending lets a client goroutine (one running a top-level Forest
// operation, not one of the background stealers) cooperate with a frame in
// progress without counting toward frameArrive, since frameArrive's count is
// fixed to the number of background stealers.
func (p *Pool) parkIfFramePending() {
	if !p.framePending.Load() {
		return
	}
	release := p.frameRelease.Load().(chan struct{})
	<-release
}
