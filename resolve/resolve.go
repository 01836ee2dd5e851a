// Package resolve implements a confined path resolver: given a directory
// handle and a caller-supplied path, it produces a lease — a host
// directory descriptor plus residual name — guaranteed (modulo the
// documented TOCTOU hazard) to stay inside the handle's subtree.
//
// Paths resolve relative to a directory fd the way openat2-style
// dirfd-relative resolution does; subtree-boundary detection is
// generalized from "container mount namespace" to "directory handle
// subtree" and backed by package mount's live mount.Tracker instead of a
// per-container mountinfo snapshot.
package resolve

import (
	"fmt"
	"os"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/mount"
	"github.com/neveragainde/cloudabi-utils/rights"
)

const (
	maxDirStackDepth = 128
	maxSymlinkPushes = 32
	maxSymlinkTotal  = 128
)

// Resolver resolves paths against handle-table directory entries, either
// trusting the host's own confinement primitives (native mode) or walking
// the path by hand (emulated mode). native is a capability probed once at
// startup, when the host provides per-descriptor confinement, not
// re-checked per call.
type Resolver struct {
	native bool

	mounts      *mount.Tracker
	crossMounts bool
}

// New returns a resolver. native should be true only on hosts new enough
// to support openat2(RESOLVE_IN_ROOT); callers typically probe this once
// (e.g. by attempting an openat2 call with RESOLVE_IN_ROOT at startup) and
// pass the result here.
func New(native bool) *Resolver {
	return &Resolver{native: native}
}

// SetMountTracker installs a mount.Tracker the emulated-mode walk consults
// when descending into an intermediate directory: crossing onto a
// different device is rejected with ENOTCAPABLE unless allowCrossing is
// true. A nil tracker (the default) disables the check entirely — native
// mode never consults it, since the host's own RESOLVE_IN_ROOT confinement
// already decides this.
func (r *Resolver) SetMountTracker(t *mount.Tracker, allowCrossing bool) {
	r.mounts = t
	r.crossMounts = allowCrossing
}

// Lease is the resolved result of PathGet: a host directory descriptor and
// the residual path component(s) still to be acted on by the syscall that
// requested the lookup, plus the object reference the lease is borrowing
// from (so stat_fget-style calls can still reach the directory handle's
// rights/type).
type Lease struct {
	HostDirFD      int32
	ResidualPath   string
	FollowSymlinks bool

	dirObject *handle.Object // the handle.Table entry this lease was resolved from
	ownedFD   bool           // true if HostDirFD must be closed on Release
}

// Release closes the owned descriptor, if any, and releases the
// directory-handle reference the lease was holding.
func (l *Lease) Release() {
	if l.ownedFD && l.HostDirFD >= 0 {
		_ = unix.Close(int(l.HostDirFD))
	}
	if l.dirObject != nil {
		l.dirObject.Release()
	}
}

// PathGet resolves path against the directory named by dirFD in tbl,
// requiring needBase/needInheriting on the directory handle itself.
// requireFinalName makes a last component with trailing slashes be
// returned as a name rather than opened as an intermediate directory.
// A final component that IS a symlink is expanded when followSymlinks is
// set or the component has trailing slashes, whatever requireFinalName
// says; otherwise (e.g. unlink without trailing slash) the symlink
// itself is named.
func (r *Resolver) PathGet(
	tbl *handle.Table,
	dirFD handle.FD,
	path string,
	needBase, needInheriting rights.Rights,
	requireFinalName bool,
	followSymlinks bool,
) (*Lease, errmap.Errno) {
	dirObj, _, _, errno := tbl.Get(dirFD, needBase|rights.RightFilePath, needInheriting)
	if errno != errmap.ESUCCESS {
		return nil, errno
	}

	if r.native {
		return r.resolveNative(dirObj, path, followSymlinks)
	}
	return r.resolveEmulated(dirObj, path, requireFinalName, followSymlinks)
}

// resolveNative trusts the host to refuse escapes: the lease carries the
// directory handle's own descriptor verbatim and the raw input path, and
// the syscall issues its host call with RESOLVE_IN_ROOT-equivalent
// confinement (here, securejoin.OpenInRoot at the call site).
func (r *Resolver) resolveNative(dirObj *handle.Object, path string, followSymlinks bool) (*Lease, errmap.Errno) {
	return &Lease{
		HostDirFD:      dirObj.HostFD(),
		ResidualPath:   path,
		FollowSymlinks: followSymlinks,
		dirObject:      dirObj,
		ownedFD:        false,
	}, errmap.ESUCCESS
}

// OpenInRootFile is a convenience used by native-mode callers that want a
// securejoin-confined host descriptor (a dup the caller owns) instead of manually replaying the
// lease's residual path with RESOLVE_IN_ROOT. Kept thin: it exists so the
// syscall package has exactly one place that imports securejoin.
func OpenInRootFile(rootFD int32, residual string) (int, error) {
	// os.File.Close() closes the underlying fd, but rootFD is borrowed from
	// the caller's lease/handle — duplicate it first so wrapping it in an
	// *os.File (required by the securejoin API) doesn't close the original.
	dupRoot, err := unix.Dup(int(rootFD))
	if err != nil {
		return -1, err
	}
	root := os.NewFile(uintptr(dupRoot), fmt.Sprintf("/proc/self/fd/%d", rootFD))
	defer root.Close()

	f, err := securejoin.OpenInRoot(root, residual)
	if err != nil {
		return -1, err
	}
	defer f.Close()

	dup, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return -1, err
	}
	return dup, nil
}

// checkMountBoundary rejects descending from parentFD into childFD when
// doing so crosses a host mount boundary and the resolver wasn't
// configured to allow it.
func (r *Resolver) checkMountBoundary(parentFD, childFD int32) errmap.Errno {
	var parentSt, childSt unix.Stat_t
	if err := unix.Fstat(int(parentFD), &parentSt); err != nil {
		return errmap.FromHost(err)
	}
	if err := unix.Fstat(int(childFD), &childSt); err != nil {
		return errmap.FromHost(err)
	}
	if !r.mounts.CrossesBoundary(parentSt.Dev, childSt.Dev) {
		return errmap.ESUCCESS
	}
	if mp, ok := r.mounts.MountpointFor(childSt.Dev); ok {
		logrus.Debugf("resolve: rejecting descent across mount boundary at %s", mp)
	}
	return errmap.ENOTCAPABLE
}

// resolveEmulated performs the manual directory-stack / path-stack walk
// that backs confinement on hosts without openat2(RESOLVE_IN_ROOT).
func (r *Resolver) resolveEmulated(dirObj *handle.Object, path string, requireFinalName, followSymlinks bool) (*Lease, errmap.Errno) {
	dirStack := []int32{dirObj.HostFD()}
	pathStack := []string{path}
	symlinkTotal := 0

	cleanup := func(failDepth int) {
		for i := len(dirStack) - 1; i > 0 && i >= failDepth; i-- {
			_ = unix.Close(int(dirStack[i]))
		}
	}

	fail := func(e errmap.Errno) (*Lease, errmap.Errno) {
		cleanup(1)
		dirObj.Release()
		return nil, e
	}

	for {
		if len(pathStack) == 0 {
			break
		}
		cur := pathStack[len(pathStack)-1]
		pathStack = pathStack[:len(pathStack)-1]

		slash := strings.IndexByte(cur, '/')
		var name, rest string
		endsWithSlashes := false
		if slash < 0 {
			name = cur
		} else {
			name = cur[:slash]
			rest = strings.TrimLeft(cur[slash:], "/")
			endsWithSlashes = true
		}

		switch {
		case name == "" && endsWithSlashes:
			return fail(errmap.ENOTCAPABLE)
		case name == "":
			return fail(errmap.ENOENT)
		case name == ".":
			if rest != "" {
				pathStack = append(pathStack, rest)
			}
			continue
		case name == "..":
			if len(dirStack) == 1 {
				return fail(errmap.ENOTCAPABLE)
			}
			top := dirStack[len(dirStack)-1]
			dirStack = dirStack[:len(dirStack)-1]
			_ = unix.Close(int(top))
			if rest != "" {
				pathStack = append(pathStack, rest)
			}
			continue
		}

		isIntermediate := rest != "" || (endsWithSlashes && !requireFinalName)

		if isIntermediate {
			childFD, err := unix.Openat(int(dirStack[len(dirStack)-1]), name,
				unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
			if err == nil {
				if len(dirStack) >= maxDirStackDepth {
					_ = unix.Close(childFD)
					return fail(errmap.ENAMETOOLONG)
				}
				if r.mounts != nil && !r.crossMounts {
					if e := r.checkMountBoundary(dirStack[len(dirStack)-1], int32(childFD)); e != errmap.ESUCCESS {
						_ = unix.Close(childFD)
						return fail(e)
					}
				}
				dirStack = append(dirStack, int32(childFD))
				if rest != "" {
					pathStack = append(pathStack, rest)
				}
				continue
			}
			if err == unix.ELOOP || err == unix.EMLINK {
				buf := make([]byte, 4096)
				n, rerr := unix.Readlinkat(int(dirStack[len(dirStack)-1]), name, buf)
				if rerr != nil {
					return fail(errmap.FromHost(rerr))
				}
				target := string(buf[:n])
				symlinkTotal++
				if symlinkTotal > maxSymlinkTotal || len(pathStack) >= maxSymlinkPushes {
					return fail(errmap.ELOOP)
				}
				if endsWithSlashes {
					target += "/"
				}
				// rest must resolve through the symlink target, so target
				// goes on top of the stack (popped first); rest underneath.
				if rest != "" {
					pathStack = append(pathStack, rest)
				}
				pathStack = append(pathStack, target)
				continue
			}
			return fail(errmap.FromHost(err))
		}

		// Final component.
		if endsWithSlashes || followSymlinks {
			buf := make([]byte, 4096)
			n, rerr := unix.Readlinkat(int(dirStack[len(dirStack)-1]), name, buf)
			if rerr == nil {
				target := string(buf[:n])
				symlinkTotal++
				if symlinkTotal > maxSymlinkTotal || len(pathStack) >= maxSymlinkPushes {
					return fail(errmap.ELOOP)
				}
				if endsWithSlashes {
					target += "/"
				}
				pathStack = append(pathStack, target)
				continue
			}
			if rerr != unix.EINVAL && rerr != unix.ENOENT {
				return fail(errmap.FromHost(rerr))
			}
			// Not a symlink (or missing): fall through, returning name.
		}

		top := dirStack[len(dirStack)-1]
		for i := len(dirStack) - 2; i >= 1; i-- {
			_ = unix.Close(int(dirStack[i]))
		}
		residual := name
		if endsWithSlashes {
			residual += "/"
		}
		return &Lease{
			HostDirFD:      top,
			ResidualPath:   residual,
			FollowSymlinks: false,
			dirObject:      dirObj,
			ownedFD:        top != dirObj.HostFD(),
		}, errmap.ESUCCESS
	}

	// Path normalized down to nothing (e.g. "." or "a/.."): the directory
	// itself is the target.
	top := dirStack[len(dirStack)-1]
	for i := len(dirStack) - 2; i >= 1; i-- {
		_ = unix.Close(int(dirStack[i]))
	}
	return &Lease{
		HostDirFD:      top,
		ResidualPath:   ".",
		FollowSymlinks: false,
		dirObject:      dirObj,
		ownedFD:        top != dirObj.HostFD(),
	}, errmap.ESUCCESS
}
