package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// Prot is the ABI's three memory-map/protect/sync/unmap protection bits:
// write∧exec is rejected outright, matching W^X policy rather than
// trusting the host to reject it.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

func (p Prot) valid() bool {
	return p&ProtWrite == 0 || p&ProtExec == 0
}

func (p Prot) toHost() int {
	h := unix.PROT_NONE
	if p&ProtRead != 0 {
		h |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		h |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		h |= unix.PROT_EXEC
	}
	return h
}

func (p Prot) requiredRights() rights.Rights {
	var need rights.Rights
	if p&ProtRead != 0 {
		need |= rights.RightMemMapRead
	}
	if p&ProtWrite != 0 {
		need |= rights.RightMemMapWrite
	}
	if p&ProtExec != 0 {
		need |= rights.RightMemMapExec
	}
	return need
}

// AnonymousFD is the reserved handle value memory-map flags use to
// request an anonymous mapping.
const AnonymousFD handle.FD = 0xFFFFFFFF

// MemMap maps AnonymousFD (requiring offset 0) or a file-backed handle's
// descriptor. A file-backed mapping requires the memory-map rights that
// match prot (see prot.requiredRights).
func (s *Surface) MemMap(fd handle.FD, offset uint64, length uint64, prot Prot, shared bool) (uintptr, errmap.Errno) {
	if !prot.valid() {
		return 0, errmap.EINVAL
	}

	mapFlags := unix.MAP_PRIVATE
	if shared {
		mapFlags = unix.MAP_SHARED
	}

	if fd == AnonymousFD {
		if offset != 0 {
			return 0, errmap.EINVAL
		}
		data, err := unix.Mmap(-1, 0, int(length), prot.toHost(), mapFlags|unix.MAP_ANONYMOUS)
		if err != nil {
			return 0, errmap.FromHost(err)
		}
		return memAddr(data), errmap.ESUCCESS
	}

	obj, _, _, errno := s.Table.Get(fd, prot.requiredRights(), 0)
	if errno != errmap.ESUCCESS {
		return 0, errno
	}
	defer obj.Release()

	data, err := unix.Mmap(int(obj.HostFD()), int64(offset), int(length), prot.toHost(), mapFlags)
	if err != nil {
		return 0, errmap.FromHost(err)
	}
	return memAddr(data), errmap.ESUCCESS
}

// MemProtect changes protection on a previously mapped region.
func (s *Surface) MemProtect(addr uintptr, length uint64, prot Prot) errmap.Errno {
	if !prot.valid() {
		return errmap.EINVAL
	}
	return errmap.FromHost(unix.Mprotect(memSlice(addr, length), prot.toHost()))
}

// SyncFlags selects msync's semantics.
type SyncFlags uint8

const (
	SyncASync SyncFlags = 1 << iota
	SyncSync
	SyncInvalidate
)

// MemSync translates the ABI's flag bits to the host's MS_* flags
// explicitly rather than passing the raw bits through — see DESIGN.md's
// Open Question decision on this.
func (s *Surface) MemSync(addr uintptr, length uint64, flags SyncFlags) errmap.Errno {
	hostFlags := 0
	if flags&SyncASync != 0 {
		hostFlags |= unix.MS_ASYNC
	}
	if flags&SyncSync != 0 {
		hostFlags |= unix.MS_SYNC
	}
	if flags&SyncInvalidate != 0 {
		hostFlags |= unix.MS_INVALIDATE
	}
	return errmap.FromHost(unix.Msync(memSlice(addr, length), hostFlags))
}

// MemUnmap tears down a mapping.
func (s *Surface) MemUnmap(addr uintptr, length uint64) errmap.Errno {
	return errmap.FromHost(unix.Munmap(memSlice(addr, length)))
}
