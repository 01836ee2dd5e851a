// Package tlsboot is the out-of-scope "TLS bootstrap" collaborator:
// init(thread_local_block, syscall_table). The ABI's source models this
// as two genuine thread-locals (a handle-table pointer and a thread id);
// this package treats them as explicit context threaded through calls
// rather than reach for real TLS, wrapping them in a context.Context
// value instead of package-level or goroutine-keyed state.
package tlsboot

import "context"

type key struct{}

// Bootstrap is the thread-local block the threads install at
// creation: a pointer to the process-wide handle table shared by every
// thread, and this thread's 32-bit id.
type Bootstrap struct {
	Table    TableRef
	ThreadID uint32
}

// TableRef is satisfied by *handle.Table. Declared as an interface here
// instead of importing the handle package directly, so tlsboot — a
// leaf collaborator — has no dependency on the core's concrete types.
type TableRef interface{}

// Install returns a context carrying b, the way a newly spawned worker
// installs its inherited handle-table pointer and thread id before
// running guest code: newly spawned worker threads inherit their
// parent's handle-table pointer at creation and install it before
// running guest code.
func Install(ctx context.Context, b Bootstrap) context.Context {
	return context.WithValue(ctx, key{}, b)
}

// From retrieves the Bootstrap installed by Install, if any.
func From(ctx context.Context) (Bootstrap, bool) {
	b, ok := ctx.Value(key{}).(Bootstrap)
	return b, ok
}
