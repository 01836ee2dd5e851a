package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// maxRecvFDs bounds the inline "fds" vector sock_recv translates from a
// host SCM_RIGHTS control message (it sizes the control buffer); sock_send
// does not apply it.
const maxRecvFDs = 128

// RecvResult carries sock_recv's triple output: bytes read, received
// handle ids (−1 for any that failed to insert), and the truncation
// flags that must be preserved and reported.
type RecvResult struct {
	NRead            uint64
	FDs              []int32
	DataTruncated    bool
	ControlTruncated bool
}

// SockRecv receives into dst, decoding any SCM_RIGHTS ancillary data into
// fds: for each delivered host descriptor, infers its type/maximal
// rights and inserts it into the table; on insertion failure the
// descriptor is closed and −1 is recorded in its slot instead of
// aborting the whole call.
func (s *Surface) SockRecv(fd handle.FD, dst [][]byte) (RecvResult, errmap.Errno) {
	obj, _, _, errno := s.Table.Get(fd, rights.RightSockRecv, 0)
	if errno != errmap.ESUCCESS {
		return RecvResult{}, errno
	}
	defer obj.Release()

	oob := make([]byte, unix.CmsgSpace(maxRecvFDs*4))
	buf := make([]byte, bufLen(dst))
	n, oobn, flags, _, err := unix.Recvmsg(int(obj.HostFD()), buf, oob, 0)
	if err != nil {
		return RecvResult{}, errmap.FromHost(err)
	}
	scatter(dst, buf[:n])

	result := RecvResult{
		NRead:            uint64(n),
		DataTruncated:    flags&unix.MSG_TRUNC != 0,
		ControlTruncated: flags&unix.MSG_CTRUNC != 0,
	}

	if oobn > 0 {
		cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
		if perr == nil {
			for _, cmsg := range cmsgs {
				hostFDs, rerr := unix.ParseUnixRights(&cmsg)
				if rerr != nil {
					continue
				}
				for _, hfd := range hostFDs {
					typ, maxBase, maxInh, ierr := rights.Infer(hfd)
					if ierr != nil {
						_ = unix.Close(hfd)
						result.FDs = append(result.FDs, -1)
						continue
					}
					obj := handle.New(typ, int32(hfd))
					newFD, ierrno := s.Table.Insert(obj, maxBase, maxInh)
					if ierrno != errmap.ESUCCESS {
						result.FDs = append(result.FDs, -1)
						continue
					}
					result.FDs = append(result.FDs, int32(newFD))
				}
			}
		}
	}

	return result, errmap.ESUCCESS
}

// SockSend acquires table locks (via Get) on every handle referenced in
// fds, writes their host descriptor numbers into a single SCM_RIGHTS
// control message, sends, and releases all references regardless of
// outcome.
func (s *Surface) SockSend(fd handle.FD, src [][]byte, sendFDs []handle.FD) (uint64, errmap.Errno) {
	obj, _, _, errno := s.Table.Get(fd, rights.RightSockSend, 0)
	if errno != errmap.ESUCCESS {
		return 0, errno
	}
	defer obj.Release()

	var refs []*handle.Object
	var hostFDs []int
	defer func() {
		for _, r := range refs {
			r.Release()
		}
	}()

	for _, sfd := range sendFDs {
		fdObj, _, _, ferrno := s.Table.Get(sfd, 0, 0)
		if ferrno != errmap.ESUCCESS {
			return 0, ferrno
		}
		refs = append(refs, fdObj)
		hostFDs = append(hostFDs, int(fdObj.HostFD()))
	}

	var oob []byte
	if len(hostFDs) > 0 {
		oob = unix.UnixRights(hostFDs...)
	}

	n, err := unix.SendmsgN(int(obj.HostFD()), concatBuf(src), oob, nil, 0)
	if err != nil {
		return 0, errmap.FromHost(err)
	}
	return uint64(n), errmap.ESUCCESS
}

// ShutdownDirection is the ABI's two-bit shutdown-direction flag.
type ShutdownDirection uint8

const (
	ShutdownRead ShutdownDirection = 1 << iota
	ShutdownWrite
)

// SockShutdown maps the ABI's direction flag to the host enum, rejecting
// any value outside {read, write, read|write}.
func (s *Surface) SockShutdown(fd handle.FD, dir ShutdownDirection) errmap.Errno {
	obj, _, _, errno := s.Table.Get(fd, rights.RightSockShutdown, 0)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer obj.Release()

	var how int
	switch dir {
	case ShutdownRead:
		how = unix.SHUT_RD
	case ShutdownWrite:
		how = unix.SHUT_WR
	case ShutdownRead | ShutdownWrite:
		how = unix.SHUT_RDWR
	default:
		return errmap.EINVAL
	}
	return errmap.FromHost(unix.Shutdown(int(obj.HostFD()), how))
}

// concatBuf flattens a scatter/gather vector into one buffer for
// SendmsgN, which (unlike Writev) takes a single []byte.
func concatBuf(bufs [][]byte) []byte {
	out := make([]byte, bufLen(bufs))
	off := 0
	for _, b := range bufs {
		off += copy(out[off:], b)
	}
	return out
}

func bufLen(bufs [][]byte) int {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	return total
}

// scatter distributes a flat received buffer back across the caller's
// original vector, gather's inverse — needed because Recvmsg (unlike
// Readv) has no vectored form.
func scatter(dst [][]byte, data []byte) {
	off := 0
	for _, b := range dst {
		if off >= len(data) {
			return
		}
		n := copy(b, data[off:])
		off += n
	}
}
