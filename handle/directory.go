package handle

import "golang.org/x/sys/unix"

// EnsureStream lazily installs a directory stream on a directory-typed
// object: opened under the object's own lock on first call, with the
// cursor initialized to the ABI's "start" sentinel. The object's type is
// not checked here.
func (o *Object) EnsureStream() (*dirstream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.dirStream != nil {
		return o.dirStream, nil
	}

	o.dirStream = newDirstream(int(o.hostFD))
	o.dirCursor = dirCursorStart
	return o.dirStream, nil
}

// Readdir reads directory entries starting at cookie (or resuming from the
// cached cursor if cookie matches it), emitting entries to emit until it
// returns false (buffer full) or the stream ends. Implements the cursor
// rewind/seek/cache logic of this surface's readdir contract.
func (o *Object) Readdir(cookie uint64, emit func(ino uint64, nextCookie uint64, hostType uint8, name string) bool) error {
	stream, err := o.EnsureStream()
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if cookie != o.dirCursor {
		if cookie == dirCursorStart {
			if err := stream.rewind(); err != nil {
				return err
			}
		} else if err := stream.seek(cookie); err != nil {
			return err
		}
	}

	for {
		de, ok, err := stream.next()
		if err != nil {
			return err
		}
		if !ok {
			o.dirCursor = cookie
			return nil
		}

		o.dirCursor = de.nextCookie
		if !emit(de.ino, de.nextCookie, de.hostType, de.name) {
			return nil
		}
		cookie = de.nextCookie
	}
}

// HostDtypeUnknown mirrors unix.DT_UNKNOWN for callers outside this
// package that need to recognize it (e.g. the syscall surface's type
// translation table).
const HostDtypeUnknown = unix.DT_UNKNOWN
