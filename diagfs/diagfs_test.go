package diagfs

import (
	"context"
	"os"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rand"
	"github.com/neveragainde/cloudabi-utils/rights"
	"github.com/neveragainde/cloudabi-utils/state"
)

func newPopulatedRegistry(t *testing.T) *state.Registry {
	t.Helper()
	registry := state.NewRegistry()
	p, err := registry.Create(7, rand.New())
	require.NoError(t, err)

	fd, err := unix.Open("/dev/null", unix.O_RDONLY, 0)
	require.NoError(t, err)
	obj := handle.New(rights.TypeRegularFile, int32(fd))
	_, errno := p.Table.Insert(obj, rights.RightFdRead, 0)
	require.Equal(t, errmap.ESUCCESS, errno)

	return registry
}

func TestRootDirListsRegisteredProcesses(t *testing.T) {
	registry := newPopulatedRegistry(t)
	root := &rootDir{registry: registry}

	entries, err := root.ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7", entries[0].Name)
}

func TestRootDirLookupUnknownPidReturnsENOENT(t *testing.T) {
	root := &rootDir{registry: state.NewRegistry()}
	_, err := root.Lookup(context.Background(), "999")
	assert.Equal(t, fuse.ENOENT, err)
}

func TestProcessDirListsOccupiedSlots(t *testing.T) {
	registry := newPopulatedRegistry(t)
	p, ok := registry.Lookup(7)
	require.True(t, ok)

	dir := &processDir{process: p}
	entries, err := dir.ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestHandleFileRendersSlotMetadata(t *testing.T) {
	registry := newPopulatedRegistry(t)
	p, ok := registry.Lookup(7)
	require.True(t, ok)

	dir := &processDir{process: p}
	entries, err := dir.ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	node, err := dir.Lookup(context.Background(), entries[0].Name)
	require.NoError(t, err)
	hf, ok := node.(*handleFile)
	require.True(t, ok)

	data, err := hf.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "type=regular-file")
	assert.Contains(t, string(data), "refcount=1")

	var a fuse.Attr
	require.NoError(t, hf.Attr(context.Background(), &a))
	assert.Equal(t, os.FileMode(0o444), a.Mode)
	assert.Equal(t, uint64(len(data)), a.Size)
}
