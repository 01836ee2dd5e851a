package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// sequentialRNG makes pickUnused deterministic for tests: each call
// advances a counter so repeated calls sweep the whole slot range instead
// of proposing the same index forever (pickUnused loops until it sees an
// empty slot, so a constant proposal would spin forever once slot 0 is
// occupied).
type sequentialRNG struct {
	next uint32
}

func (r *sequentialRNG) Uniform(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	v := r.next % bound
	r.next++
	return v
}

func (r *sequentialRNG) Buf(dst []byte) {}

func newTestTable() *Table {
	return NewTable(&sequentialRNG{})
}

func newVirtualObject() *Object {
	return New(rights.TypeSharedMemory, VirtualFD)
}

func TestInsertThenGetRoundTrips(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()

	fd, errno := tbl.Insert(obj, rights.RightFdRead, rights.MaxInheriting)
	require.Equal(t, errmap.ESUCCESS, errno)

	got, base, inh, errno := tbl.Get(fd, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Same(t, obj, got)
	assert.Equal(t, rights.Rights(rights.RightFdRead), base)
	assert.Equal(t, rights.MaxInheriting, inh)
	got.Release()
}

func TestGetMissingRightsIsNotCapable(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()
	fd, _ := tbl.Insert(obj, rights.RightFdRead, 0)

	_, _, _, errno := tbl.Get(fd, rights.RightFdWrite, 0)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)
}

func TestGetUnknownFDIsBadF(t *testing.T) {
	tbl := newTestTable()
	_, _, _, errno := tbl.Get(FD(17), 0, 0)
	assert.Equal(t, errmap.EBADF, errno)
}

func TestCloseThenGetFails(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()
	fd, _ := tbl.Insert(obj, rights.RightFdRead, 0)

	require.Equal(t, errmap.ESUCCESS, tbl.Close(fd))

	_, _, _, errno := tbl.Get(fd, 0, 0)
	assert.Equal(t, errmap.EBADF, errno)

	// Double close is a caller error, surfaced as EBADF, not a panic.
	assert.Equal(t, errmap.EBADF, tbl.Close(fd))
}

func TestUsedNeverExceedsHalfSize(t *testing.T) {
	tbl := newTestTable()
	var fds []FD
	for i := 0; i < 37; i++ {
		fd, errno := tbl.Insert(newVirtualObject(), rights.RightFdRead, 0)
		require.Equal(t, errmap.ESUCCESS, errno)
		fds = append(fds, fd)
		assert.LessOrEqualf(t, tbl.Used()*2, tbl.Size(), "after inserting %d entries", i+1)
	}
	for _, fd := range fds {
		require.Equal(t, errmap.ESUCCESS, tbl.Close(fd))
		assert.LessOrEqual(t, tbl.Used()*2, tbl.Size())
	}
}

func TestInsertPairAtomic(t *testing.T) {
	tbl := newTestTable()
	o1, o2 := newVirtualObject(), newVirtualObject()

	fd1, fd2, errno := tbl.InsertPair(o1, rights.RightFdRead, 0, o2, rights.RightFdWrite, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.NotEqual(t, fd1, fd2)

	got1, _, _, _ := tbl.Get(fd1, rights.RightFdRead, 0)
	assert.Same(t, o1, got1)
	got1.Release()

	got2, _, _, _ := tbl.Get(fd2, rights.RightFdWrite, 0)
	assert.Same(t, o2, got2)
	got2.Release()
}

func TestRestrictNarrowingSucceeds(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()
	fd, _ := tbl.Insert(obj, rights.RightFdRead|rights.RightFdWrite, rights.MaxInheriting)

	errno := tbl.Restrict(fd, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)

	_, _, _, errno = tbl.Get(fd, rights.RightFdWrite, 0)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)

	got, base, inh, errno := tbl.Get(fd, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Equal(t, rights.Rights(rights.RightFdRead), base)
	assert.Equal(t, rights.Rights(0), inh)
	got.Release()
}

func TestRestrictWideningRejected(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()
	fd, _ := tbl.Insert(obj, rights.RightFdRead, 0)

	errno := tbl.Restrict(fd, rights.RightFdRead|rights.RightFdWrite, 0)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)

	// Unchanged on rejection.
	_, base, _, _ := tbl.Get(fd, rights.RightFdRead, 0)
	assert.Equal(t, rights.Rights(rights.RightFdRead), base)
}

func TestDuplicateSharesObjectAndRights(t *testing.T) {
	tbl := newTestTable()
	obj := newVirtualObject()
	fd, _ := tbl.Insert(obj, rights.RightFdRead, rights.MaxInheriting)

	dupFD, errno := tbl.Duplicate(fd)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.NotEqual(t, fd, dupFD)

	got, base, _, _ := tbl.Get(dupFD, rights.RightFdRead, 0)
	assert.Same(t, obj, got)
	assert.Equal(t, rights.Rights(rights.RightFdRead), base)
	got.Release()

	require.Equal(t, errmap.ESUCCESS, tbl.Close(fd))
	// Closing one duplicate must not invalidate the other: the object
	// had two references.
	got2, _, _, errno := tbl.Get(dupFD, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	got2.Release()
}

func TestReplaceOverwritesDestination(t *testing.T) {
	tbl := newTestTable()
	src := newVirtualObject()
	dst := newVirtualObject()

	srcFD, _ := tbl.Insert(src, rights.RightFdRead, 0)
	dstFD, _ := tbl.Insert(dst, rights.RightFdWrite, 0)

	require.Equal(t, errmap.ESUCCESS, tbl.Replace(dstFD, srcFD))

	got, base, _, errno := tbl.Get(dstFD, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Same(t, src, got)
	assert.Equal(t, rights.Rights(rights.RightFdRead), base)
	got.Release()

	// srcFD slot is untouched by replace.
	got2, _, _, errno := tbl.Get(srcFD, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)
	got2.Release()
}
