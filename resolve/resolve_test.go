package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/mount"
	"github.com/neveragainde/cloudabi-utils/rights"
)

type seqRNG struct{ next uint32 }

func (r *seqRNG) Uniform(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	v := r.next % bound
	r.next++
	return v
}
func (r *seqRNG) Buf(dst []byte) {}

func openDirObject(t *testing.T, path string) (*handle.Object, handle.FD, *handle.Table) {
	t.Helper()
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	require.NoError(t, err)

	tbl := handle.NewTable(&seqRNG{})
	obj := handle.New(rights.TypeDirectory, int32(fd))
	tblFD, errno := tbl.Insert(obj, rights.RightFilePath|rights.RightFileOpen, rights.MaxInheriting)
	require.Equal(t, errmap.ESUCCESS, errno)
	return obj, tblFD, tbl
}

func TestEmulatedConfinementBlocksEscape(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "ok"), []byte("hi"), 0o644))

	_, dirFD, tbl := openDirObject(t, root)
	r := New(false)

	lease, errno := r.PathGet(tbl, dirFD, "sub/ok", rights.RightFileOpen, 0, false, false)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Equal(t, "ok", lease.ResidualPath)
	lease.Release()

	_, errno = r.PathGet(tbl, dirFD, "../etc/passwd", rights.RightFileOpen, 0, false, false)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)

	_, errno = r.PathGet(tbl, dirFD, "sub/../..", rights.RightFileOpen, 0, false, false)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)
}

func TestEmulatedSymlinkNoFollowReturnsLinkItself(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Symlink("/etc", filepath.Join(root, "bad")))

	_, dirFD, tbl := openDirObject(t, root)
	r := New(false)

	lease, errno := r.PathGet(tbl, dirFD, "bad", rights.RightFileOpen, 0, false, false)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Equal(t, "bad", lease.ResidualPath)

	buf := make([]byte, 4096)
	n, err := unix.Readlinkat(int(lease.HostDirFD), lease.ResidualPath, buf)
	require.NoError(t, err)
	assert.Equal(t, "/etc", string(buf[:n]))
	lease.Release()
}

func TestEmulatedSymlinkEscapeWithFollowRejected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Symlink("/etc", filepath.Join(root, "bad")))

	_, dirFD, tbl := openDirObject(t, root)
	r := New(false)

	_, errno := r.PathGet(tbl, dirFD, "bad/passwd", rights.RightFileOpen, 0, false, true)
	assert.Equal(t, errmap.ENOTCAPABLE, errno)
}

// TestMountTrackerAllowsSameDeviceDescent is a regression guard for
// wiring a mount.Tracker into the resolver: ordinary descent within one
// filesystem (the common case in any test sandbox, since creating a real
// second mount needs root) must keep working once the boundary check is
// enabled.
func TestMountTrackerAllowsSameDeviceDescent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "f"), []byte("x"), 0o644))

	_, dirFD, tbl := openDirObject(t, root)
	r := New(false)
	tr, err := mount.NewTracker()
	require.NoError(t, err)
	r.SetMountTracker(tr, false)

	lease, errno := r.PathGet(tbl, dirFD, "a/b/f", rights.RightFileOpen, 0, false, false)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Equal(t, "f", lease.ResidualPath)
	lease.Release()
}

func TestEmulatedDotComponentsNormalize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "f"), []byte("x"), 0o644))

	_, dirFD, tbl := openDirObject(t, root)
	r := New(false)

	lease, errno := r.PathGet(tbl, dirFD, "./a/./b/../b/f", rights.RightFileOpen, 0, false, false)
	require.Equal(t, errmap.ESUCCESS, errno)
	assert.Equal(t, "f", lease.ResidualPath)
	lease.Release()
}
