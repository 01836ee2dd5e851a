package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerReadsCurrentMounts(t *testing.T) {
	tr, err := NewTracker()
	require.NoError(t, err)
	// The host always has at least a root mount.
	assert.NotEmpty(t, tr.byDev)
}

func TestCrossesBoundaryComparesDevices(t *testing.T) {
	tr := &Tracker{}
	assert.False(t, tr.CrossesBoundary(1, 1))
	assert.True(t, tr.CrossesBoundary(1, 2))
}

func TestMountpointForUnknownDevice(t *testing.T) {
	tr := &Tracker{byDev: map[uint64]string{}}
	_, ok := tr.MountpointFor(999)
	assert.False(t, ok)
}

func TestRefreshReplacesView(t *testing.T) {
	tr := &Tracker{byDev: map[uint64]string{1: "/stale"}}
	require.NoError(t, tr.Refresh())
	_, ok := tr.MountpointFor(1)
	// The stale synthetic entry is gone after a real refresh (device 1
	// almost certainly isn't a live mount's dev number).
	assert.False(t, ok)
}
