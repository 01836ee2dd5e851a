package errmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFromHostKnown(t *testing.T) {
	require.Equal(t, EBADF, FromHost(unix.EBADF))
	require.Equal(t, ENOENT, FromHost(unix.ENOENT))
	require.Equal(t, ENOTCONN, FromHost(unix.ENOTCONN))
}

func TestFromHostAliases(t *testing.T) {
	require.Equal(t, EAGAIN, FromHost(unix.EWOULDBLOCK))
	require.Equal(t, ENOTSUP, FromHost(unix.EOPNOTSUPP))
}

func TestFromHostSuccessAndUnknown(t *testing.T) {
	require.Equal(t, ESUCCESS, FromHost(nil))
	require.Equal(t, ENOSYS, FromHost(errors.New("not an errno")))
}

func TestToHostRoundTrip(t *testing.T) {
	require.Equal(t, unix.EBADF, ToHost(EBADF))
	// NOTCAPABLE has no host inverse.
	require.Equal(t, unix.ENOSYS, ToHost(ENOTCAPABLE))
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "ENOTCAPABLE", ENOTCAPABLE.Error())
}
