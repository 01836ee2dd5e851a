package handle

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// dirstream wraps a host directory stream opened over an object's
// descriptor. Closing it closes the underlying fd too: a directory
// stream, once installed, is closed exactly once, and that close also
// closes the underlying host descriptor.
//
// Go's unix package exposes directory reads as repeated unix.ReadDirent
// calls directly on the fd rather than a separate DIR* handle, so
// "opening the stream" here just means the object now owns the fd's seek
// offset and buffers raw getdents64 records between readdir calls. Each
// linux_dirent64 record carries the kernel's own d_off field, which is
// exactly the opaque "position of the next entry" cookie the
// readdir wants — the same value glibc's telldir()/seekdir() round-trip.
type dirstream struct {
	fd             int
	buf            []byte
	bufOff, bufLen int
}

func newDirstream(fd int) *dirstream {
	return &dirstream{fd: fd, buf: make([]byte, 8192)}
}

func (d *dirstream) close() error {
	return unix.Close(d.fd)
}

// rewind seeks the underlying fd back to the directory's start (the ABI's
// dirCursorStart sentinel) and drops any buffered entries.
func (d *dirstream) rewind() error {
	return d.seek(dirCursorStart)
}

// seek repositions to a previously returned cookie (or dirCursorStart).
func (d *dirstream) seek(cookie uint64) error {
	if _, err := unix.Seek(d.fd, int64(cookie), unix.SEEK_SET); err != nil {
		return err
	}
	d.bufOff, d.bufLen = 0, 0
	return nil
}

// dirent is one parsed host directory entry.
type dirent struct {
	ino        uint64
	nextCookie uint64
	hostType   uint8 // unix.DT_* value, or unix.DT_UNKNOWN
	name       string
}

func (d *dirstream) fill() (more bool, err error) {
	n, err := unix.ReadDirent(d.fd, d.buf)
	if err != nil {
		return false, err
	}
	d.bufOff, d.bufLen = 0, n
	return n > 0, nil
}

// next returns the next entry, reading more from the host as needed. ok is
// false (with nil error) at end of stream.
func (d *dirstream) next() (de dirent, ok bool, err error) {
	for {
		if d.bufOff >= d.bufLen {
			more, ferr := d.fill()
			if ferr != nil {
				return dirent{}, false, ferr
			}
			if !more {
				return dirent{}, false, nil
			}
		}

		raw := (*unix.Dirent)(unsafe.Pointer(&d.buf[d.bufOff]))
		reclen := int(raw.Reclen)
		if reclen <= 0 || d.bufOff+reclen > d.bufLen {
			return dirent{}, false, unix.EIO
		}

		ino := raw.Ino
		off := raw.Off
		typ := raw.Type
		name := direntName(raw)
		d.bufOff += reclen

		// "." and ".." are host bookkeeping, not ABI-visible entries.
		if name == "." || name == ".." {
			continue
		}

		return dirent{
			ino:        ino,
			nextCookie: uint64(off),
			hostType:   typ,
			name:       name,
		}, true, nil
	}
}

func direntName(raw *unix.Dirent) string {
	// raw.Name is a fixed-size byte array; the name is NUL-terminated
	// within it.
	n := 0
	for n < len(raw.Name) && raw.Name[n] != 0 {
		n++
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(raw.Name[i])
	}
	return string(b)
}
