// Package futex is the one concrete implementation of the out-of-scope
// "futex engine" collaborator (poll.Engine): lock/condvar subscriptions
// are handed to it first, and it reports whether it fully handled them
// before the multiplexer falls back to a general host poll.
//
// CapABI's core never implements a futex engine itself — the futex/
// condvar engine and its memory-word wait/wake semantics are out of
// scope. This package exists so poll.Multiplexer has a real poll.Engine
// to call in the demo: a goroutine per parked waiter, woken over a
// per-address wait queue rather than a real futex(2) syscall.
package futex

import (
	"sync"

	"github.com/neveragainde/cloudabi-utils/poll"
)

// waiter is one parked goroutine, woken by closing ready.
type waiter struct {
	ready chan struct{}
}

// LocalEngine is a process-private futex engine: addresses are Go
// uint64s (the guest's view of its own address space). Waiting parks a
// goroutine on a channel rather than the host's real futex(2), since
// CapABI subscriptions never need to interoperate with non-CapABI
// processes.
type LocalEngine struct {
	mu      sync.Mutex
	waiters map[uint64][]*waiter
}

// NewLocalEngine returns a ready-to-use poll.Engine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{waiters: make(map[uint64][]*waiter)}
}

// Wait parks the calling goroutine on addr until a matching
// CondvarSignal/LockUnlock wakes it. Not part of the poll.Engine
// contract: the multiplexer never calls it; callers park on it directly.
func (e *LocalEngine) Wait(addr uint64) {
	e.mu.Lock()
	w := &waiter{ready: make(chan struct{})}
	e.waiters[addr] = append(e.waiters[addr], w)
	e.mu.Unlock()

	<-w.ready
}

// CondvarSignal wakes up to n waiters parked on addr.
func (e *LocalEngine) CondvarSignal(addr uint64, scope poll.Scope, n uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.waiters[addr]
	woken := uint32(0)
	for len(q) > 0 && woken < n {
		w := q[0]
		q = q[1:]
		close(w.ready)
		woken++
	}
	if len(q) == 0 {
		delete(e.waiters, addr)
	} else {
		e.waiters[addr] = q
	}
	return nil
}

// LockUnlock releases a lock held by tid at addr, waking exactly one
// waiter (hand-off semantics, as opposed to condvar's signal-n-waiters).
func (e *LocalEngine) LockUnlock(tid uint32, addr uint64, scope poll.Scope) error {
	return e.CondvarSignal(addr, scope, 1)
}

// Poll always declines: LocalEngine's Wait/CondvarSignal/LockUnlock cover
// lock and condvar subscriptions directly, but poll.SubscriptionKind (the
// vector the multiplexer offers here) only enumerates clock and fd-ready
// subscriptions — the futex engine's own lock-wait/condvar-wait
// subscription shape stays private to it, exposing only the
// three-operation poll.Engine contract. Any real lock/condvar wait
// therefore goes directly through Wait, and this always returns
// handled=false so the multiplexer's general poll path runs for the
// vector it was given.
func (e *LocalEngine) Poll(tid uint32, in []poll.Subscription) ([]poll.Event, bool, error) {
	return nil, false, nil
}

var _ poll.Engine = (*LocalEngine)(nil)
