// Package errmap translates between host errno values and the closed ABI
// error enumeration that CapABI syscalls return. The map is pure, total,
// and side-effect free.
package errmap

import (
	"golang.org/x/sys/unix"
)

// Errno is one member of the ABI's closed error enumeration. It carries the
// same names as the host's POSIX errno set plus NOTCAPABLE, mirroring
// cloudabi_errno_t in the original C emulator (see
// original_source/src/libemulator/posix.c).
type Errno uint16

const (
	ESUCCESS Errno = iota
	E2BIG
	EACCES
	EADDRINUSE
	EADDRNOTAVAIL
	EAFNOSUPPORT
	EAGAIN
	EALREADY
	EBADF
	EBADMSG
	EBUSY
	ECANCELED
	ECHILD
	ECONNABORTED
	ECONNREFUSED
	ECONNRESET
	EDEADLK
	EDESTADDRREQ
	EDOM
	EDQUOT
	EEXIST
	EFAULT
	EFBIG
	EHOSTUNREACH
	EIDRM
	EILSEQ
	EINPROGRESS
	EINTR
	EINVAL
	EIO
	EISCONN
	EISDIR
	ELOOP
	EMFILE
	EMLINK
	EMSGSIZE
	EMULTIHOP
	ENAMETOOLONG
	ENETDOWN
	ENETRESET
	ENETUNREACH
	ENFILE
	ENOBUFS
	ENODEV
	ENOENT
	ENOEXEC
	ENOLCK
	ENOLINK
	ENOMEM
	ENOMSG
	ENOPROTOOPT
	ENOSPC
	ENOSYS
	ENOTCAPABLE
	ENOTCONN
	ENOTDIR
	ENOTEMPTY
	ENOTRECOVERABLE
	ENOTSOCK
	ENOTSUP
	ENOTTY
	ENXIO
	EOVERFLOW
	EOWNERDEAD
	EPERM
	EPIPE
	EPROTO
	EPROTONOSUPPORT
	EPROTOTYPE
	ERANGE
	EROFS
	ESPIPE
	ESRCH
	ESTALE
	ETIMEDOUT
	ETXTBSY
	EXDEV
)

// EOPNOTSUPP and ENOTSUP are the same ABI error; same for EWOULDBLOCK/EAGAIN.
// These aliases exist so callers can use whichever host spelling they hit.
const (
	EOPNOTSUPP  = ENOTSUP
	EWOULDBLOCK = EAGAIN
)

func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "unknown errno"
}

// table maps a host unix.Errno to its ABI equivalent. Built once at init
// time; never mutated afterward, so lookups need no locking.
var table = map[unix.Errno]Errno{
	unix.E2BIG:           E2BIG,
	unix.EACCES:          EACCES,
	unix.EADDRINUSE:      EADDRINUSE,
	unix.EADDRNOTAVAIL:   EADDRNOTAVAIL,
	unix.EAFNOSUPPORT:    EAFNOSUPPORT,
	unix.EAGAIN:          EAGAIN,
	unix.EALREADY:        EALREADY,
	unix.EBADF:           EBADF,
	unix.EBADMSG:         EBADMSG,
	unix.EBUSY:           EBUSY,
	unix.ECANCELED:       ECANCELED,
	unix.ECHILD:          ECHILD,
	unix.ECONNABORTED:    ECONNABORTED,
	unix.ECONNREFUSED:    ECONNREFUSED,
	unix.ECONNRESET:      ECONNRESET,
	unix.EDEADLK:         EDEADLK,
	unix.EDESTADDRREQ:    EDESTADDRREQ,
	unix.EDOM:            EDOM,
	unix.EDQUOT:          EDQUOT,
	unix.EEXIST:          EEXIST,
	unix.EFAULT:          EFAULT,
	unix.EFBIG:           EFBIG,
	unix.EHOSTUNREACH:    EHOSTUNREACH,
	unix.EIDRM:           EIDRM,
	unix.EILSEQ:          EILSEQ,
	unix.EINPROGRESS:     EINPROGRESS,
	unix.EINTR:           EINTR,
	unix.EINVAL:          EINVAL,
	unix.EIO:             EIO,
	unix.EISCONN:         EISCONN,
	unix.EISDIR:          EISDIR,
	unix.ELOOP:           ELOOP,
	unix.EMFILE:          EMFILE,
	unix.EMLINK:          EMLINK,
	unix.EMSGSIZE:        EMSGSIZE,
	unix.EMULTIHOP:       EMULTIHOP,
	unix.ENAMETOOLONG:    ENAMETOOLONG,
	unix.ENETDOWN:        ENETDOWN,
	unix.ENETRESET:       ENETRESET,
	unix.ENETUNREACH:     ENETUNREACH,
	unix.ENFILE:          ENFILE,
	unix.ENOBUFS:         ENOBUFS,
	unix.ENODEV:          ENODEV,
	unix.ENOENT:          ENOENT,
	unix.ENOEXEC:         ENOEXEC,
	unix.ENOLCK:          ENOLCK,
	unix.ENOLINK:         ENOLINK,
	unix.ENOMEM:          ENOMEM,
	unix.ENOMSG:          ENOMSG,
	unix.ENOPROTOOPT:     ENOPROTOOPT,
	unix.ENOSPC:          ENOSPC,
	unix.ENOSYS:          ENOSYS,
	unix.ENOTCONN:        ENOTCONN,
	unix.ENOTDIR:         ENOTDIR,
	unix.ENOTEMPTY:       ENOTEMPTY,
	unix.ENOTRECOVERABLE: ENOTRECOVERABLE,
	unix.ENOTSOCK:        ENOTSOCK,
	unix.ENOTSUP:         ENOTSUP,
	unix.ENOTTY:          ENOTTY,
	unix.ENXIO:           ENXIO,
	unix.EOVERFLOW:       EOVERFLOW,
	unix.EOWNERDEAD:      EOWNERDEAD,
	unix.EPERM:           EPERM,
	unix.EPIPE:           EPIPE,
	unix.EPROTO:          EPROTO,
	unix.EPROTONOSUPPORT: EPROTONOSUPPORT,
	unix.EPROTOTYPE:      EPROTOTYPE,
	unix.ERANGE:          ERANGE,
	unix.EROFS:           EROFS,
	unix.ESPIPE:          ESPIPE,
	unix.ESRCH:           ESRCH,
	unix.ESTALE:          ESTALE,
	unix.ETIMEDOUT:       ETIMEDOUT,
	unix.ETXTBSY:         ETXTBSY,
	unix.EXDEV:           EXDEV,

	// EOPNOTSUPP/ENOTSUP and EWOULDBLOCK/EAGAIN are numerically identical
	// on Linux, so they'd collide as map keys here; FromHost handles the
	// alias explicitly for hosts where the two diverge.
}

var names = buildNames()

func buildNames() map[Errno]string {
	return map[Errno]string{
		ESUCCESS: "success", E2BIG: "E2BIG", EACCES: "EACCES",
		EADDRINUSE: "EADDRINUSE", EADDRNOTAVAIL: "EADDRNOTAVAIL",
		EAFNOSUPPORT: "EAFNOSUPPORT", EAGAIN: "EAGAIN", EALREADY: "EALREADY",
		EBADF: "EBADF", EBADMSG: "EBADMSG", EBUSY: "EBUSY",
		ECANCELED: "ECANCELED", ECHILD: "ECHILD", ECONNABORTED: "ECONNABORTED",
		ECONNREFUSED: "ECONNREFUSED", ECONNRESET: "ECONNRESET", EDEADLK: "EDEADLK",
		EDESTADDRREQ: "EDESTADDRREQ", EDOM: "EDOM", EDQUOT: "EDQUOT",
		EEXIST: "EEXIST", EFAULT: "EFAULT", EFBIG: "EFBIG",
		EHOSTUNREACH: "EHOSTUNREACH", EIDRM: "EIDRM", EILSEQ: "EILSEQ",
		EINPROGRESS: "EINPROGRESS", EINTR: "EINTR", EINVAL: "EINVAL",
		EIO: "EIO", EISCONN: "EISCONN", EISDIR: "EISDIR", ELOOP: "ELOOP",
		EMFILE: "EMFILE", EMLINK: "EMLINK", EMSGSIZE: "EMSGSIZE",
		EMULTIHOP: "EMULTIHOP", ENAMETOOLONG: "ENAMETOOLONG", ENETDOWN: "ENETDOWN",
		ENETRESET: "ENETRESET", ENETUNREACH: "ENETUNREACH", ENFILE: "ENFILE",
		ENOBUFS: "ENOBUFS", ENODEV: "ENODEV", ENOENT: "ENOENT",
		ENOEXEC: "ENOEXEC", ENOLCK: "ENOLCK", ENOLINK: "ENOLINK",
		ENOMEM: "ENOMEM", ENOMSG: "ENOMSG", ENOPROTOOPT: "ENOPROTOOPT",
		ENOSPC: "ENOSPC", ENOSYS: "ENOSYS", ENOTCAPABLE: "ENOTCAPABLE",
		ENOTCONN: "ENOTCONN", ENOTDIR: "ENOTDIR", ENOTEMPTY: "ENOTEMPTY",
		ENOTRECOVERABLE: "ENOTRECOVERABLE", ENOTSOCK: "ENOTSOCK", ENOTSUP: "ENOTSUP",
		ENOTTY: "ENOTTY", ENXIO: "ENXIO", EOVERFLOW: "EOVERFLOW",
		EOWNERDEAD: "EOWNERDEAD", EPERM: "EPERM", EPIPE: "EPIPE",
		EPROTO: "EPROTO", EPROTONOSUPPORT: "EPROTONOSUPPORT", EPROTOTYPE: "EPROTOTYPE",
		ERANGE: "ERANGE", EROFS: "EROFS", ESPIPE: "ESPIPE", ESRCH: "ESRCH",
		ESTALE: "ESTALE", ETIMEDOUT: "ETIMEDOUT", ETXTBSY: "ETXTBSY", EXDEV: "EXDEV",
	}
}

// FromHost converts a host error into its ABI equivalent. Any error that
// isn't a unix.Errno, and any errno this table doesn't recognize, maps to
// ENOSYS ("not implemented" sentinel) rather than panicking.
func FromHost(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	errno, ok := err.(unix.Errno)
	if !ok {
		return ENOSYS
	}
	switch errno {
	case unix.EOPNOTSUPP:
		return ENOTSUP
	case unix.EWOULDBLOCK:
		return EAGAIN
	}
	if abi, ok := table[errno]; ok {
		return abi
	}
	return ENOSYS
}

// ToHost converts an ABI error back into the closest host errno, for the
// rare case a component needs to hand one to a host API (e.g. constructing
// a synthetic os.SyscallError in a test fixture). Not every ABI error has a
// unique host inverse (NOTCAPABLE has none); those return unix.ENOSYS.
func ToHost(e Errno) unix.Errno {
	for h, abi := range table {
		if abi == e {
			return h
		}
	}
	return unix.ENOSYS
}
