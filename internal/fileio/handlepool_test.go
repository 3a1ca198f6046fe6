package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePoolTestFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "slide.bin")
	require.NoError(t, os.WriteFile(p, []byte("some bytes"), 0644))
	return p
}

func TestHandlePool_TakeOpensFreshCursorWhenIdleIsEmpty(t *testing.T) {
	path := writePoolTestFile(t)
	p := NewHandlePool(path)
	defer p.Close()

	f, err := p.Take()
	require.NoError(t, err)
	require.NotNil(t, f)

	outstanding, idle := p.Stats()
	assert.Equal(t, 1, outstanding)
	assert.Equal(t, 0, idle)
}

func TestHandlePool_GiveMakesCursorReusableOnNextTake(t *testing.T) {
	path := writePoolTestFile(t)
	p := NewHandlePool(path)
	defer p.Close()

	f1, err := p.Take()
	require.NoError(t, err)
	p.Give(f1)

	outstanding, idle := p.Stats()
	assert.Equal(t, 0, outstanding)
	assert.Equal(t, 1, idle)

	f2, err := p.Take()
	require.NoError(t, err)
	assert.Same(t, f1, f2)
}

func TestHandlePool_EvictsOldestIdleCursorPastCapacity(t *testing.T) {
	path := writePoolTestFile(t)
	p := NewHandlePoolSize(path, 2)
	defer p.Close()

	f1, err := p.Take()
	require.NoError(t, err)
	f2, err := p.Take()
	require.NoError(t, err)
	f3, err := p.Take()
	require.NoError(t, err)

	p.Give(f1) // oldest idle entry
	p.Give(f2)
	p.Give(f3) // pushes idle set past capacity 2, evicting f1

	_, idle := p.Stats()
	assert.Equal(t, 2, idle)

	// f1 should now be closed by the evict callback; a read through it
	// must fail.
	buf := make([]byte, 1)
	_, err = f1.ReadAt(buf, 0)
	assert.Error(t, err)
}

func TestHandlePool_CloseClosesAllIdleCursors(t *testing.T) {
	path := writePoolTestFile(t)
	p := NewHandlePool(path)

	f1, err := p.Take()
	require.NoError(t, err)
	p.Give(f1)

	require.NoError(t, p.Close())

	buf := make([]byte, 1)
	_, err = f1.ReadAt(buf, 0)
	assert.Error(t, err)
}

func TestHandlePool_TakeAfterFailedOpenDecrementsGivenCount(t *testing.T) {
	p := NewHandlePool(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	defer p.Close()

	_, err := p.Take()
	assert.Error(t, err)

	outstanding, _ := p.Stats()
	assert.Equal(t, 0, outstanding)
}
