package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// OpenFlags mirrors the ABI's open-flag bits : create,
// directory-required, exclusive, truncate.
type OpenFlags uint16

const (
	OpenCreate OpenFlags = 1 << iota
	OpenDirectory
	OpenExclusive
	OpenTruncate
)

// PathOpen computes a host open-flag word from requested rights, open
// flags, and fd flags; if the resolver ran in emulated mode it forces
// no-follow on the host call (the resolver has already performed any
// symlink expansion the caller requested). On success it infers the new
// descriptor's maximal type/rights and installs it with
// rights_base := requested_base ∩ max_base (same for inheriting).
func (s *Surface) PathOpen(dirFD handle.FD, path string, openFlags OpenFlags, fdFlags FDFlags, reqBase, reqInheriting rights.Rights, followSymlinks bool) (handle.FD, errmap.Errno) {
	needBase := rights.Rights(rights.RightFileOpen)
	if openFlags&OpenCreate != 0 {
		needBase |= rights.RightFileCreateFile
	}

	lease, errno := s.Resolver.PathGet(s.Table, dirFD, path, needBase, 0, false, followSymlinks)
	if errno != errmap.ESUCCESS {
		return 0, errno
	}
	defer lease.Release()

	hostFlags := unix.O_CLOEXEC
	switch {
	case reqBase&rights.RightFdRead != 0 && reqBase&rights.RightFdWrite != 0:
		hostFlags |= unix.O_RDWR
	case reqBase&rights.RightFdWrite != 0:
		hostFlags |= unix.O_WRONLY
	default:
		hostFlags |= unix.O_RDONLY
	}
	if openFlags&OpenCreate != 0 {
		hostFlags |= unix.O_CREAT
	}
	if openFlags&OpenDirectory != 0 {
		hostFlags |= unix.O_DIRECTORY
	}
	if openFlags&OpenExclusive != 0 {
		hostFlags |= unix.O_EXCL
	}
	if openFlags&OpenTruncate != 0 {
		hostFlags |= unix.O_TRUNC
	}
	if fdFlags&FDFlagAppend != 0 {
		hostFlags |= unix.O_APPEND
	}
	if fdFlags&FDFlagDsync != 0 {
		hostFlags |= unix.O_DSYNC
	}
	if fdFlags&FDFlagNonblock != 0 {
		hostFlags |= unix.O_NONBLOCK
	}
	if fdFlags&FDFlagSync != 0 {
		hostFlags |= unix.O_SYNC
	}
	if !lease.FollowSymlinks {
		hostFlags |= unix.O_NOFOLLOW
	}

	hfd, err := unix.Openat(int(lease.HostDirFD), lease.ResidualPath, hostFlags, 0o666)
	if err != nil {
		if err == unix.ENXIO {
			// "device has no address" on a socket: matches native
			// open(2) semantics for a path naming a listening socket.
			return 0, errmap.ENOTSUP
		}
		return 0, errmap.FromHost(err)
	}

	typ, maxBase, maxInh, err := rights.Infer(hfd)
	if err != nil {
		_ = unix.Close(hfd)
		return 0, errmap.FromHost(err)
	}

	obj := handle.New(typ, int32(hfd))
	newFD, errno := s.Table.Insert(obj, reqBase&maxBase, reqInheriting&maxInh)
	return newFD, errno
}

// PathUnlink removes a name. removeDirectory requests rmdir semantics
// instead of unlink; the host's "is a directory" error is re-mapped to
// "not permitted" when removeDirectory is false.
func (s *Surface) PathUnlink(dirFD handle.FD, path string, removeDirectory bool) errmap.Errno {
	lease, errno := s.Resolver.PathGet(s.Table, dirFD, path, rights.RightFileUnlink, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer lease.Release()

	flags := 0
	if removeDirectory {
		flags = unix.AT_REMOVEDIR
	}
	err := unix.Unlinkat(int(lease.HostDirFD), lease.ResidualPath, flags)
	if err == unix.EISDIR && !removeDirectory {
		return errmap.EPERM
	}
	return errmap.FromHost(err)
}

// PathCreateDirectory creates a directory; directories are the only file
// type this surface has a create entry point for.
func (s *Surface) PathCreateDirectory(dirFD handle.FD, path string) errmap.Errno {
	lease, errno := s.Resolver.PathGet(s.Table, dirFD, path, rights.RightFileCreateDirectory, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer lease.Release()
	return errmap.FromHost(unix.Mkdirat(int(lease.HostDirFD), lease.ResidualPath, 0o777))
}

// PathRename holds leases on both paths for the duration of the call,
// releasing both regardless of outcome. The host's "busy" error is
// re-mapped to "invalid".
func (s *Surface) PathRename(oldDirFD handle.FD, oldPath string, newDirFD handle.FD, newPath string) errmap.Errno {
	oldLease, errno := s.Resolver.PathGet(s.Table, oldDirFD, oldPath, rights.RightFileRenameSource, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer oldLease.Release()

	newLease, errno := s.Resolver.PathGet(s.Table, newDirFD, newPath, rights.RightFileRenameTarget, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer newLease.Release()

	err := unix.Renameat(int(oldLease.HostDirFD), oldLease.ResidualPath, int(newLease.HostDirFD), newLease.ResidualPath)
	if err == unix.EBUSY {
		return errmap.EINVAL
	}
	return errmap.FromHost(err)
}

// PathLink creates a hard link; leases are held on both paths for the
// duration, released regardless of outcome.
func (s *Surface) PathLink(srcDirFD handle.FD, srcPath string, followSymlinks bool, dstDirFD handle.FD, dstPath string) errmap.Errno {
	srcLease, errno := s.Resolver.PathGet(s.Table, srcDirFD, srcPath, rights.RightFileLinkSource, 0, true, followSymlinks)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer srcLease.Release()

	dstLease, errno := s.Resolver.PathGet(s.Table, dstDirFD, dstPath, rights.RightFileLinkTarget, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer dstLease.Release()

	flags := 0
	if srcLease.FollowSymlinks {
		flags = unix.AT_SYMLINK_FOLLOW
	}
	err := unix.Linkat(int(srcLease.HostDirFD), srcLease.ResidualPath, int(dstLease.HostDirFD), dstLease.ResidualPath, flags)
	return errmap.FromHost(err)
}

// PathSymlink creates a symlink at dirFD/path pointing at target (target
// is stored verbatim, never resolved).
func (s *Surface) PathSymlink(target string, dirFD handle.FD, path string) errmap.Errno {
	lease, errno := s.Resolver.PathGet(s.Table, dirFD, path, rights.RightFileSymlink, 0, true, false)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer lease.Release()
	return errmap.FromHost(unix.Symlinkat(target, int(lease.HostDirFD), lease.ResidualPath))
}

// PathReadlink requires the readlink right and truncates (does not
// error) if buf is too small, returning the number of bytes written.
func (s *Surface) PathReadlink(dirFD handle.FD, path string, buf []byte) (uint64, errmap.Errno) {
	lease, errno := s.Resolver.PathGet(s.Table, dirFD, path, rights.RightFileReadlink, 0, true, false)
	if errno != errmap.ESUCCESS {
		return 0, errno
	}
	defer lease.Release()

	n, err := unix.Readlinkat(int(lease.HostDirFD), lease.ResidualPath, buf)
	if err != nil {
		return 0, errmap.FromHost(err)
	}
	return uint64(n), errmap.ESUCCESS
}
