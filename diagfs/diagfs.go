// Package diagfs is an optional, read-only FUSE mount rendering the live
// state of package state's process registry: one directory per registered
// process, one file per occupied handle-table slot, each file's content a
// short line of the slot's type/rights/refcount. No file in this tree can
// be opened for anything but reading, and none of it grants a capability
// over the handles it describes — handle.Table.Snapshot hands back
// metadata only, never an Object reference.
//
// Nodes render state.Registry/handle.Table entries directly: a Dir/File
// node split with no handler-lookup indirection, since there's only one
// kind of content to show. The filesystem root wraps one fs.FS node.
package diagfs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/state"
)

// attrCacheTimeout bounds how long the kernel can cache a node's attrs
// before re-stating it. This tree's shape only changes when a process
// registers/unregisters or a handle is inserted/closed, but unlike a
// procfs/sysfs mirror, diagfs content is expected to actually change
// within a session, so the timeout is kept short rather than effectively
// infinite.
const attrCacheTimeout = time.Second

// FS is the bazil.org/fuse filesystem root: it wraps the process registry
// the introspect gRPC service also reads, so both surfaces stay
// consistent.
type FS struct {
	registry *state.Registry
}

// New returns an FS rendering registry's current contents.
func New(registry *state.Registry) *FS {
	return &FS{registry: registry}
}

// Root implements fs.FS.
func (f *FS) Root() (fs.Node, error) {
	return &rootDir{registry: f.registry}, nil
}

// rootDir is "/": one subdirectory per registered process, named by its
// decimal pid.
type rootDir struct {
	registry *state.Registry
}

func (d *rootDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0o555
	a.Valid = attrCacheTimeout
	return nil
}

func (d *rootDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	var entries []fuse.Dirent
	d.registry.Each(func(p *state.Process) {
		entries = append(entries, fuse.Dirent{
			Name: strconv.FormatUint(uint64(p.ID), 10),
			Type: fuse.DT_Dir,
		})
	})
	return entries, nil
}

func (d *rootDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	id, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return nil, fuse.ENOENT
	}
	p, ok := d.registry.Lookup(uint32(id))
	if !ok {
		return nil, fuse.ENOENT
	}
	return &processDir{process: p}, nil
}

// processDir is "/<pid>/": one file per occupied slot of that process's
// handle table, named by its decimal fd.
type processDir struct {
	process *state.Process
}

func (d *processDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0o555
	a.Valid = attrCacheTimeout
	return nil
}

func (d *processDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	snap := d.process.Table.Snapshot()
	entries := make([]fuse.Dirent, 0, len(snap))
	for _, e := range snap {
		entries = append(entries, fuse.Dirent{
			Name: strconv.FormatUint(uint64(e.FD), 10),
			Type: fuse.DT_File,
		})
	}
	return entries, nil
}

func (d *processDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	fd, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return nil, fuse.ENOENT
	}
	for _, e := range d.process.Table.Snapshot() {
		if uint64(e.FD) == fd {
			return &handleFile{entry: e}, nil
		}
	}
	return nil, fuse.ENOENT
}

// handleFile is "/<pid>/<fd>": a synthetic, read-only file whose content
// summarizes one handle-table slot. It is regenerated from a fresh
// Snapshot on every Lookup, so its content always reflects the slot's
// state at open time rather than a value cached across the slot's
// lifetime (handles can be restricted or closed between opens).
type handleFile struct {
	entry handle.Entry
}

func (f *handleFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0o444
	a.Size = uint64(len(f.render()))
	a.Valid = attrCacheTimeout
	return nil
}

func (f *handleFile) ReadAll(ctx context.Context) ([]byte, error) {
	return []byte(f.render()), nil
}

func (f *handleFile) render() string {
	return fmt.Sprintf("fd=%d type=%s base=%#x inheriting=%#x refcount=%d\n",
		f.entry.FD, f.entry.Type, uint64(f.entry.Base), uint64(f.entry.Inheriting), f.entry.RefCount)
}
