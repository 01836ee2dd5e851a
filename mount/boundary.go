// Package mount detects host mount-point boundaries crossed while the
// resolver's emulated-mode walk descends through a directory handle's
// subtree: whether a resolve should be allowed to cross into a different
// host filesystem is a policy decision left to the embedder, and this
// package is the one concrete policy the demo wires in.
//
// Parses /proc/self/mountinfo via github.com/moby/sys/mountinfo rather
// than a hand-rolled parser, to answer "is this directory's device the
// same as the subtree root's".
package mount

import (
	"sync"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// Tracker maps a mounted filesystem's device number to the path it's
// mounted at, refreshed from a single /proc/self/mountinfo read.
type Tracker struct {
	mu    sync.RWMutex
	byDev map[uint64]string
}

// NewTracker builds a Tracker from the calling process's current mount
// table.
func NewTracker() (*Tracker, error) {
	t := &Tracker{}
	if err := t.Refresh(); err != nil {
		return nil, err
	}
	return t, nil
}

// Refresh re-reads the mount table, replacing the tracker's view
// atomically. Callers that hold a Tracker across a long-lived resolver
// should call this periodically — mount tables change outside the
// resolver's control.
func (t *Tracker) Refresh() error {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return err
	}
	byDev := make(map[uint64]string, len(infos))
	for _, info := range infos {
		dev := unix.Mkdev(uint32(info.Major), uint32(info.Minor))
		byDev[dev] = info.Mountpoint
	}
	t.mu.Lock()
	t.byDev = byDev
	t.mu.Unlock()
	return nil
}

// MountpointFor returns the path dev is mounted at, if known.
func (t *Tracker) MountpointFor(dev uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mp, ok := t.byDev[dev]
	return mp, ok
}

// CrossesBoundary reports whether descending from a directory on
// parentDev into one on childDev crosses a mount boundary. Device equality
// is authoritative here; the tracker's mountpoint lookup only supplies a
// human-readable path for the caller's diagnostics.
func (t *Tracker) CrossesBoundary(parentDev, childDev uint64) bool {
	return parentDev != childDev
}
