package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neveragainde/cloudabi-utils/rand"
)

func TestCreateThenLookupRoundTrips(t *testing.T) {
	r := NewRegistry()
	p, err := r.Create(1, rand.New())
	require.NoError(t, err)
	require.NotNil(t, p.Table)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestCreateDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(1, rand.New())
	require.NoError(t, err)

	_, err = r.Create(1, rand.New())
	assert.Error(t, err)
}

func TestDestroyRemovesEntry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(1, rand.New())
	require.NoError(t, err)

	require.NoError(t, r.Destroy(1))
	_, ok := r.Lookup(1)
	assert.False(t, ok)
}

func TestDestroyMissingErrors(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Destroy(42))
}

func TestSizeTracksRegistrations(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Size())

	_, err := r.Create(1, rand.New())
	require.NoError(t, err)
	_, err = r.Create(2, rand.New())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Size())

	require.NoError(t, r.Destroy(1))
	assert.Equal(t, 1, r.Size())
}

func TestEachVisitsAllProcesses(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(1, rand.New())
	require.NoError(t, err)
	_, err = r.Create(2, rand.New())
	require.NoError(t, err)

	seen := map[uint32]bool{}
	r.Each(func(p *Process) { seen[p.ID] = true })
	assert.Equal(t, map[uint32]bool{1: true, 2: true}, seen)
}
