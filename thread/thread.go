// Package thread implements the out-of-scope "thread-id pool" collaborator
// (allocate() → tid) and the worker-lifecycle half of the thread-create/
// thread-exit syscall contracts.
//
// Each emulated thread runs on its own detached goroutine, which Exit
// ends by a panic sentinel that Spawn recovers; the goroutine is handed an Entry/argument/
// handle-table triple across that boundary the way a worker consumes a
// request object handed to it.
package thread

import (
	"context"
	"sync/atomic"

	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/tlsboot"
)

// Pool allocates monotonically increasing thread ids, starting at 1 (0 is
// reserved for "no thread" in contexts that need a sentinel).
type Pool struct {
	next uint32 // atomic
}

// NewPool returns a ready-to-use id pool.
func NewPool() *Pool {
	return &Pool{next: 0}
}

// Allocate returns the next unused thread id.
func (p *Pool) Allocate() uint32 {
	return atomic.AddUint32(&p.next, 1)
}

// Entry is a thread's guest entry point: the address the ABI's
// thread-create was given, and the caller-supplied argument. Real guest
// code would be invoked through a trampoline; this type is that
// trampoline's Go-side signature.
type Entry func(ctx context.Context, argument uint64)

// Spawn allocates a thread id, installs the parent's handle-table pointer
// and the new id as this worker's thread-local block — newly spawned
// worker threads inherit their parent's handle-table pointer at creation
// and install it before running guest code — and runs entry on a
// detached goroutine.
//
// entry must never return normally: "the worker thread returned" is one
// of four internal-invariant-violation cases that abort the process,
// alongside double-free of a table slot, detach of an empty slot, and a
// handle-number query on a virtual object. A well-behaved entry calls
// Exit instead.
func Spawn(pool *Pool, table *handle.Table, entry Entry, argument uint64) uint32 {
	tid := pool.Allocate()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(exitSentinel); ok {
					return
				}
				panic(r)
			}
		}()

		ctx := tlsboot.Install(context.Background(), tlsboot.Bootstrap{
			Table:    table,
			ThreadID: tid,
		})
		entry(ctx, argument)
		panic("thread: worker entry point returned")
	}()

	return tid
}

// TableFromContext recovers the handle table installed by Spawn, for use
// by the syscall surface when dispatching a call made on this thread.
func TableFromContext(ctx context.Context) (*handle.Table, uint32, bool) {
	b, ok := tlsboot.From(ctx)
	if !ok {
		return nil, 0, false
	}
	tbl, ok := b.Table.(*handle.Table)
	if !ok {
		return nil, 0, false
	}
	return tbl, b.ThreadID, true
}

// Exit is the thread-exit entry point: release the supplied lock (so
// joiners parked on it wake) and terminate the worker by panicking with
// a recoverable sentinel that Spawn's goroutine wrapper catches instead
// of letting it propagate as a crash.
func Exit(release func()) {
	if release != nil {
		release()
	}
	panic(exitSentinel{})
}

// exitSentinel is recovered by the goroutine wrapper Spawn installs,
// distinguishing a clean thread-exit from an entry point that actually
// returned (which is the invariant violation Spawn's closing panic
// reports).
type exitSentinel struct{}
