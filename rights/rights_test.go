package rights

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rights-*")
	require.NoError(t, err)
	defer f.Close()

	typ, base, _, err := Infer(int(f.Fd()))
	require.NoError(t, err)
	require.Equal(t, TypeRegularFile, typ)
	require.NotZero(t, base&RightFdRead)
	require.NotZero(t, base&RightFdWrite)
}

func TestInferDirectory(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Open(dir)
	require.NoError(t, err)
	defer f.Close()

	typ, base, inheriting, err := Infer(int(f.Fd()))
	require.NoError(t, err)
	require.Equal(t, TypeDirectory, typ)
	require.NotZero(t, base&RightFileOpen)
	require.NotZero(t, inheriting&RightFdRead)
}

func TestInferReadOnlyStripsWrite(t *testing.T) {
	path := t.TempDir() + "/ro"
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	f, err := os.Open(path) // O_RDONLY
	require.NoError(t, err)
	defer f.Close()

	_, base, _, err := Infer(int(f.Fd()))
	require.NoError(t, err)
	require.Zero(t, base&RightFdWrite)
	require.NotZero(t, base&RightFdRead)
}

func TestTypeString(t *testing.T) {
	require.Equal(t, "directory", TypeDirectory.String())
	require.Equal(t, "unknown", Type(255).String())
}
