package syscall

import (
	"github.com/neveragainde/cloudabi-utils/errmap"
	"github.com/neveragainde/cloudabi-utils/handle"
	"github.com/neveragainde/cloudabi-utils/rights"
)

// DirEntry is one fixed-layout readdir record: {next_cookie, inode,
// name_length, type} followed by the name bytes.
type DirEntry struct {
	NextCookie uint64
	Inode      uint64
	Type       uint8
	Name       string
}

// hostDtypeToABI maps a host d_type value to the ABI's file-type
// enumeration; unknown host types become TypeUnknown.
func hostDtypeToABI(hostType uint8) rights.Type {
	switch hostType {
	case handle.HostDtypeUnknown:
		return rights.TypeUnknown
	default:
		// Every other host d_type is looked up in dtypeTable; no Stat
		// is done here, so host types missing from the table (e.g.
		// DT_FIFO) are reported as TypeUnknown.
		if t, ok := dtypeTable[hostType]; ok {
			return t
		}
		return rights.TypeUnknown
	}
}

var dtypeTable = map[uint8]rights.Type{
	4:  rights.TypeDirectory,       // DT_DIR
	8:  rights.TypeRegularFile,     // DT_REG
	10: rights.TypeSymbolicLink,    // DT_LNK
	2:  rights.TypeCharacterDevice, // DT_CHR
	6:  rights.TypeBlockDevice,     // DT_BLK
	12: rights.TypeSocketStream,    // DT_SOCK
}

// FDReaddir lazily installs a directory stream on the handle object and
// emits entries starting at cookie, truncating (not erroring) when the
// caller's buffer fills — emit's return value is that signal.
func (s *Surface) FDReaddir(fd handle.FD, cookie uint64, emit func(DirEntry) bool) errmap.Errno {
	obj, _, _, errno := s.Table.Get(fd, rights.RightFileReaddir, 0)
	if errno != errmap.ESUCCESS {
		return errno
	}
	defer obj.Release()

	err := obj.Readdir(cookie, func(ino, nextCookie uint64, hostType uint8, name string) bool {
		return emit(DirEntry{
			NextCookie: nextCookie,
			Inode:      ino,
			Type:       uint8(hostDtypeToABI(hostType)),
			Name:       name,
		})
	})
	if err != nil {
		return errmap.FromHost(err)
	}
	return errmap.ESUCCESS
}
