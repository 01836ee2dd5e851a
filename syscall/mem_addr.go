package syscall

import "unsafe"

// memAddr and memSlice convert between the []byte unix.Mmap returns and
// the raw address the ABI's memory-map operations hand back to guest
// code. The backing memory is host-mmap'd, not Go-heap-managed, so
// reconstructing a slice header from a remembered address for a later
// mprotect/msync/munmap call is safe as long as length matches the
// original mapping (the ABI's own contract, not something this package
// can verify).
func memAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func memSlice(addr uintptr, length uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length))
}
