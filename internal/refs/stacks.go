// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package refs

// Task is the minimal view Stacks needs of an in-flight spawned
// computation: whether it has finished, and if so, the node handle it
// produced. internal/task.Task satisfies this implicitly through the
// adapter the root package installs (see taskHandle in operations.go).
type Task interface {
	Done() bool
	Result() uint64
}

// Stacks holds the three per-worker, unshared structures spec 4.F
// describes: a pointer stack of node handles kept alive across recursive
// calls (pushptr/popptr), a value stack for opaque kind-specific payloads
// that are not themselves node handles (push/pop), and a stack of in-flight
// spawned tasks whose eventual handle result must be treated as a root
// until the caller has synced it (so a stop-the-world frame landing between
// Spawn and Sync cannot reclaim a child result the parent hasn't retrieved
// yet).
type Stacks struct {
	ptr  []uint64
	val  []uint64
	task []Task
}

// NewStacks returns an empty set of stacks for one worker.
func NewStacks() *Stacks {
	return &Stacks{}
}

// PushPtr keeps handle alive until a matching PopPtr. Returns handle so
// calls can be chained the way rudd's pushref does.
func (s *Stacks) PushPtr(handle uint64) uint64 {
	s.ptr = append(s.ptr, handle)
	return handle
}

// PopPtr discards the last n entries pushed with PushPtr.
func (s *Stacks) PopPtr(n int) {
	s.ptr = s.ptr[:len(s.ptr)-n]
}

// PushVal/PopVal manage the opaque value stack (e.g. MTBDD leaf payloads
// under construction).
func (s *Stacks) PushVal(v uint64) { s.val = append(s.val, v) }
func (s *Stacks) PopVal(n int)     { s.val = s.val[:len(s.val)-n] }

// PushTask/PopTask manage the in-flight task stack.
func (s *Stacks) PushTask(t Task) { s.task = append(s.task, t) }
func (s *Stacks) PopTask(n int)   { s.task = s.task[:len(s.task)-n] }

// ForEachLive walks every root this worker is currently holding: the
// pointer stack directly, plus the handle result of any task that has
// already completed but not yet been popped.
func (s *Stacks) ForEachLive(fn func(handle uint64)) {
	for _, h := range s.ptr {
		fn(h)
	}
	for _, t := range s.task {
		if t.Done() {
			fn(t.Result())
		}
	}
}
