package diagfs

import (
	"errors"

	"bazil.org/fuse"
	bazilfs "bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"

	"github.com/neveragainde/cloudabi-utils/state"
)

// Server owns the FUSE mount lifecycle: NewServer records the
// mountpoint (without checking it), Run mounts and blocks serving
// requests, Destroy unmounts.
type Server struct {
	mountpoint string
	fs         *FS
	conn       *fuse.Conn
}

// NewServer returns a Server rendering registry at mountpoint. The
// mountpoint must already exist on the host; diagfs never creates it.
func NewServer(mountpoint string, registry *state.Registry) *Server {
	return &Server{
		mountpoint: mountpoint,
		fs:         New(registry),
	}
}

// Run mounts diagfs read-only at the configured mountpoint and serves
// requests until the mount is torn down (by Destroy, or externally via
// fusermount -u). diagfs carries no per-uid/gid remapping logic, so it
// is mounted for the invoking user only — no AllowOther/
// DefaultPermissions pairing to reason about.
func (s *Server) Run() error {
	c, err := fuse.Mount(
		s.mountpoint,
		fuse.FSName("diagfs"),
		fuse.Subtype("capabi"),
		fuse.ReadOnly(),
	)
	if err != nil {
		return err
	}
	s.conn = c
	defer c.Close()

	if p := c.Protocol(); !p.HasInvalidate() {
		return errors.New("diagfs: kernel FUSE support is too old to have invalidations")
	}

	logrus.Infof("diagfs: mounted at %s", s.mountpoint)

	if err := bazilfs.Serve(c, s.fs); err != nil {
		return err
	}

	<-c.Ready
	return c.MountError
}

// Destroy unmounts diagfs from its mountpoint.
func (s *Server) Destroy() error {
	return fuse.Unmount(s.mountpoint)
}
