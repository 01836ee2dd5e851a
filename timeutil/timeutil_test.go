package timeutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromPartsBasic(t *testing.T) {
	require.Equal(t, uint64(5*nsPerSec+123), FromParts(5, 123))
}

func TestFromPartsNegativeSecClampsZero(t *testing.T) {
	require.Equal(t, uint64(0), FromParts(-1, 999))
}

func TestFromPartsOverflowClampsMax(t *testing.T) {
	require.Equal(t, ^uint64(0), FromParts(1<<62, 0))
}

func TestRoundTrip(t *testing.T) {
	ns := FromParts(1000, 42)
	ts := ToTimespec(ns)
	require.Equal(t, int64(1000), ts.Sec)
	require.Equal(t, int64(42), ts.Nsec)
}

func TestToTimespecMaxTimestampFitsTimeT(t *testing.T) {
	ts := ToTimespec(^uint64(0))
	require.Equal(t, int64(^uint64(0)/nsPerSec), ts.Sec)
	require.Equal(t, int64(^uint64(0)%nsPerSec), ts.Nsec)
}
