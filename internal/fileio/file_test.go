package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, contents []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(p, contents, 0644))
	return p
}

func TestOpen_ReturnsErrorForMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}

func TestReadAt_ReadsFromGivenOffset(t *testing.T) {
	path := writeTestFile(t, []byte("hello world"))
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func TestReadExact_FailsOnShortRead(t *testing.T) {
	path := writeTestFile(t, []byte("abc"))
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 10)
	err = f.ReadExact(buf, 0)
	assert.Error(t, err)
}

func TestReadExact_SucceedsWhenBufferFits(t *testing.T) {
	path := writeTestFile(t, []byte("abcdef"))
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 3)
	require.NoError(t, f.ReadExact(buf, 2))
	assert.Equal(t, "cde", string(buf))
}

func TestSize_ReportsFileLength(t *testing.T) {
	path := writeTestFile(t, make([]byte, 42))
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	size, err := f.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 42, size)
}

func TestClose_IsIdempotent(t *testing.T) {
	path := writeTestFile(t, []byte("x"))
	f, err := Open(path)
	require.NoError(t, err)

	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

func TestPath_ReturnsOpenedPath(t *testing.T) {
	path := writeTestFile(t, []byte("x"))
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, path, f.Path())
}
