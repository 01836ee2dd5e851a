package handle

import (
	"sync"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/rand"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// FD is a handle-table slot index: a small non-negative integer naming a
// kernel object within one emulated process (glossary).
type FD uint32

// slot is one entry of the table: either empty (object == nil) or holding
// an object reference plus the two right-sets authorized for this handle.
type slot struct {
	object     *Object
	base       rights.Rights
	inheriting rights.Rights
}

// Table is the sparse, reference-counted handle table. Its RWMutex
// protects the slot array and size/used counters only — object refcounts
// and per-object state are protected by the object's own primitives, and
// object Release is always invoked outside the table lock.
type Table struct {
	mu      sync.RWMutex
	entries []slot
	used    uint32
	rng     rand.Source
}

// NewTable constructs an empty table. rng backs pick_unused's randomized
// free-slot selection; pass rand.New() in production, a deterministic
// fake in tests.
func NewTable(rng rand.Source) *Table {
	return &Table{rng: rng}
}

// Size returns the table's current capacity (number of slots, occupied or
// not).
func (t *Table) Size() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint32(len(t.entries))
}

// Used returns the number of occupied slots.
func (t *Table) Used() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.used
}

// Get looks up fd and validates that its right-sets are supersets of
// needBase/needInheriting. On success it acquires a reference on the
// returned object — the caller owns that reference and must Release it
// (or hand it on, e.g. into a lease) when done. The reference remains
// valid even if the slot is concurrently replaced or closed.
func (t *Table) Get(fd FD, needBase, needInheriting rights.Rights) (*Object, rights.Rights, rights.Rights, errmap.Errno) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if uint32(fd) >= uint32(len(t.entries)) {
		return nil, 0, 0, errmap.EBADF
	}
	s := &t.entries[fd]
	if s.object == nil {
		return nil, 0, 0, errmap.EBADF
	}
	if (^s.base&needBase) != 0 || (^s.inheriting&needInheriting) != 0 {
		return nil, 0, 0, errmap.ENOTCAPABLE
	}

	s.object.Acquire()
	return s.object, s.base, s.inheriting, errmap.ESUCCESS
}

// grow doubles capacity until size > min and size >= 2*(used+incr).
// Caller must hold the write lock. Allocation can't meaningfully fail in
// Go (append panics instead of returning an error on OOM), but the shape
// mirrors a grow-that-can-fail contract so callers still check a boolean.
func (t *Table) grow(min, incr uint32) bool {
	size := uint32(len(t.entries))
	if size == 0 {
		size = 1
	}
	for size <= min || size < (t.used+incr)*2 {
		size *= 2
	}
	if size == uint32(len(t.entries)) {
		return true
	}
	grown := make([]slot, size)
	copy(grown, t.entries)
	t.entries = grown
	return true
}

// pickUnused returns a uniformly random empty slot index. Caller must hold
// the write lock. Termination is guaranteed by the table's invariant that
// at least half its slots are empty after any grow.
func (t *Table) pickUnused() FD {
	size := uint32(len(t.entries))
	for {
		idx := t.rng.Uniform(size)
		if t.entries[idx].object == nil {
			return FD(idx)
		}
	}
}

// attach installs object/base/inheriting at fd. Precondition: slot empty,
// fd < size. Consumes one reference from the caller (does not Acquire).
// Caller must hold the write lock.
func (t *Table) attach(fd FD, object *Object, base, inheriting rights.Rights) {
	if t.entries[fd].object != nil {
		panic("handle: attach of already-occupied slot")
	}
	t.entries[fd] = slot{object: object, base: base, inheriting: inheriting}
	t.used++
}

// detach removes and returns the object at fd without releasing it.
// Precondition: slot occupied. Caller must hold the write lock.
func (t *Table) detach(fd FD) *Object {
	s := &t.entries[fd]
	if s.object == nil {
		panic("handle: detach of empty slot")
	}
	obj := s.object
	*s = slot{}
	t.used--
	return obj
}

// Insert grows by one slot if needed, picks a free slot, and attaches
// object there, consuming the caller's reference. On grow failure the
// reference is released and ENOMEM is returned.
func (t *Table) Insert(object *Object, base, inheriting rights.Rights) (FD, errmap.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.grow(0, 1) {
		t.mu.Unlock()
		object.Release()
		t.mu.Lock()
		return 0, errmap.ENOMEM
	}
	fd := t.pickUnused()
	t.attach(fd, object, base, inheriting)
	return fd, errmap.ESUCCESS
}

// InsertPair inserts two objects atomically under one exclusive-lock
// section, as required for operations (e.g. pipe, socketpair)
// that must not let another thread observe only one half installed.
func (t *Table) InsertPair(o1 *Object, b1, i1 rights.Rights, o2 *Object, b2, i2 rights.Rights) (FD, FD, errmap.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.grow(0, 2) {
		t.mu.Unlock()
		o1.Release()
		o2.Release()
		t.mu.Lock()
		return 0, 0, errmap.ENOMEM
	}
	fd1 := t.pickUnused()
	t.attach(fd1, o1, b1, i1)
	fd2 := t.pickUnused()
	t.attach(fd2, o2, b2, i2)
	return fd1, fd2, errmap.ESUCCESS
}

// Close detaches fd and releases the detached object's reference outside
// the table lock, per the lock-discipline note. Returns only after
// the slot is detached; the underlying resource may still be open if
// another holder retains a reference ).
func (t *Table) Close(fd FD) errmap.Errno {
	t.mu.Lock()
	if uint32(fd) >= uint32(len(t.entries)) || t.entries[fd].object == nil {
		t.mu.Unlock()
		return errmap.EBADF
	}
	obj := t.detach(fd)
	t.mu.Unlock()

	obj.Release()
	return errmap.ESUCCESS
}

// Replace detaches whatever is at "to", acquires one reference on
// from's object, and attaches it at "to". The detached object's release
// happens outside the lock.
func (t *Table) Replace(to FD, from FD) errmap.Errno {
	t.mu.Lock()
	if uint32(from) >= uint32(len(t.entries)) || t.entries[from].object == nil {
		t.mu.Unlock()
		return errmap.EBADF
	}
	if uint32(to) >= uint32(len(t.entries)) {
		t.mu.Unlock()
		return errmap.EBADF
	}

	fromSlot := t.entries[from]
	fromSlot.object.Acquire()

	var detached *Object
	if t.entries[to].object != nil {
		detached = t.detach(to)
	}
	t.entries[to] = fromSlot
	if detached == nil {
		t.used++
	}
	t.mu.Unlock()

	if detached != nil {
		detached.Release()
	}
	return errmap.ESUCCESS
}

// Duplicate is Replace into a freshly selected free slot: rights are
// copied, a new reference is acquired on the source object.
func (t *Table) Duplicate(from FD) (FD, errmap.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint32(from) >= uint32(len(t.entries)) || t.entries[from].object == nil {
		return 0, errmap.EBADF
	}

	if !t.grow(0, 1) {
		return 0, errmap.ENOMEM
	}

	src := t.entries[from]
	src.object.Acquire()
	to := t.pickUnused()
	t.attach(to, src.object, src.base, src.inheriting)
	return to, errmap.ESUCCESS
}

// Restrict validates that (base, inheriting) are subsets of the slot's
// current masks and, if so, overwrites them. Widening is rejected with
// ENOTCAPABLE and the slot is left unchanged.
func (t *Table) Restrict(fd FD, base, inheriting rights.Rights) errmap.Errno {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint32(fd) >= uint32(len(t.entries)) {
		return errmap.EBADF
	}
	s := &t.entries[fd]
	if s.object == nil {
		return errmap.EBADF
	}
	if (^s.base&base) != 0 || (^s.inheriting&inheriting) != 0 {
		return errmap.ENOTCAPABLE
	}
	s.base = base
	s.inheriting = inheriting
	return errmap.ESUCCESS
}

// Entry is one occupied slot's metadata, as reported by Snapshot. It
// carries no Object reference: a diagnostic consumer (package diagfs)
// can observe type/rights/refcount without being able to forge a
// capability over the underlying resource.
type Entry struct {
	FD         FD
	Type       rights.Type
	Base       rights.Rights
	Inheriting rights.Rights
	RefCount   int32
}

// Snapshot returns metadata for every occupied slot, in ascending fd
// order, taken under one read-lock acquisition. Used only by the
// read-only diagnostic surface (package diagfs); ordinary
// syscall handling never needs a whole-table view.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, t.used)
	for fd, s := range t.entries {
		if s.object == nil {
			continue
		}
		entries = append(entries, Entry{
			FD:         FD(fd),
			Type:       s.object.Type(),
			Base:       s.base,
			Inheriting: s.inheriting,
			RefCount:   s.object.RefCount(),
		})
	}
	return entries
}
