// Package handle implements the handle object and handle table: a
// per-process registry mapping small integers to reference-counted
// kernel objects, each carrying an immutable type tag and a mutable
// pair of right-sets.
//
// An Object wraps a host fd the way a thin fd-wrapper type does; the
// table itself is an RWMutex-guarded registry.
package handle

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/rights"
)

// VirtualFD is the host-descriptor value an Object carries when it has no
// backing host descriptor at all (e.g. a future anonymous-shared-memory
// object type not yet backed by a real fd).
const VirtualFD int32 = -1

// dirCursorStart is the ABI's "start of directory" cookie sentinel.
const dirCursorStart uint64 = 0

// Object is the reference-counted kernel-object record. Type is
// immutable once created. hostFD, the directory stream, and the cursor
// are the only mutable fields: refcount via atomics, directory
// stream/cursor via the object's own mutex.
type Object struct {
	typ    rights.Type
	hostFD int32

	refcount int32 // atomic

	mu        sync.Mutex // protects dirStream/dirCursor below
	dirStream *dirstream
	dirCursor uint64
}

// New creates an Object with refcount 1.
func New(typ rights.Type, hostFD int32) *Object {
	return &Object{
		typ:       typ,
		hostFD:    hostFD,
		refcount:  1,
		dirCursor: dirCursorStart,
	}
}

// Type returns the object's immutable ABI type.
func (o *Object) Type() rights.Type { return o.typ }

// Acquire increments the reference count. Called by every lookup that
// hands the object reference to a new owner.
func (o *Object) Acquire() {
	atomic.AddInt32(&o.refcount, 1)
}

// Release decrements the reference count and, on the transition to zero,
// tears down the object: closes the directory stream if one was opened
// (which subsumes closing the host descriptor), or closes the host
// descriptor directly otherwise.
func (o *Object) Release() {
	if atomic.AddInt32(&o.refcount, -1) != 0 {
		return
	}

	o.mu.Lock()
	stream := o.dirStream
	o.mu.Unlock()

	if stream != nil {
		if err := stream.close(); err != nil {
			logrus.Debugf("handle: closing directory stream for fd %d: %v", o.hostFD, err)
		}
		return
	}

	if o.hostFD >= 0 {
		if err := unix.Close(int(o.hostFD)); err != nil {
			logrus.Debugf("handle: closing fd %d: %v", o.hostFD, err)
		}
	}
}

// HostFD asserts the object is not virtual and returns its host
// descriptor. Querying a virtual object's descriptor is an internal
// invariant violation and panics rather than returning an error.
func (o *Object) HostFD() int32 {
	if o.hostFD < 0 {
		panic("handle: host_fd() called on virtual object")
	}
	return o.hostFD
}

// IsVirtual reports whether the object has no backing host descriptor.
func (o *Object) IsVirtual() bool { return o.hostFD < 0 }

// RefCount returns the current reference count. Exposed for tests and the
// diagnostic introspection surface only; never used for correctness
// decisions outside Acquire/Release.
func (o *Object) RefCount() int32 {
	return atomic.LoadInt32(&o.refcount)
}
