package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, totalSize int) *Stack {
	t.Helper()
	a := NewStack(totalSize, WithReserver(&pageReserver{}))
	require.NoError(t, a.Init())
	t.Cleanup(func() { require.NoError(t, a.Release()) })
	return a
}

func TestStackLayout(t *testing.T) {
	a := newTestStack(t, 1024)

	// Header at 7, payload at 8.
	b1, err := a.Allocate(10, 8)
	require.NoError(t, err)
	assert.Equal(t, a.Start()+8, addr(b1))
	assert.Equal(t, 18, a.UsedMemory())
	assert.Equal(t, uint8(7), a.buf[7])

	// Cursor at 18; header at 31, payload at 32.
	b2, err := a.Allocate(4, 16)
	require.NoError(t, err)
	assert.Equal(t, a.Start()+32, addr(b2))
	assert.Equal(t, 36, a.UsedMemory())
	assert.Equal(t, uint8(13), a.buf[31])
}

func TestStackLIFO(t *testing.T) {
	a := newTestStack(t, 1024)

	_, err := a.Allocate(5, 1)
	require.NoError(t, err)
	before := a.UsedMemory()

	first, err := a.Allocate(100, 16)
	require.NoError(t, err)
	second, err := a.Allocate(33, 64)
	require.NoError(t, err)
	require.Equal(t, 3, a.NumAllocations())

	a.Deallocate(second)
	assert.Equal(t, 2, a.NumAllocations())
	a.Deallocate(first)
	assert.Equal(t, before, a.UsedMemory())
	assert.Equal(t, 1, a.NumAllocations())

	again, err := a.Allocate(100, 16)
	require.NoError(t, err)
	assert.Equal(t, addr(first), addr(again), "popped space is reused")
}

func TestStackOutOfSpace(t *testing.T) {
	a := newTestStack(t, 64)

	b, err := a.Allocate(62, 1)
	require.NoError(t, err)
	assert.Equal(t, 63, a.UsedMemory())

	_, err = a.Allocate(1, 1)
	require.ErrorIs(t, err, ErrOutOfSpace)

	a.Deallocate(b)
	assert.Zero(t, a.UsedMemory())

	_, err = a.Allocate(63, 1)
	require.NoError(t, err)
	assert.Equal(t, 64, a.UsedMemory())
}

func TestStackPaddingOverflow(t *testing.T) {
	a := newTestStack(t, 4096)

	// Cursor 0: the payload must land on 512, which needs 511 bytes of padding.
	_, err := a.Allocate(8, 512)
	require.ErrorIs(t, err, ErrPaddingOverflow)
	assert.Zero(t, a.NumAllocations())

	// Large alignments work while the padding stays within one byte.
	_, err = a.Allocate(511-256, 1)
	require.NoError(t, err)
	b, err := a.Allocate(8, 512)
	require.NoError(t, err)
	assert.Zero(t, addr(b)%512)
	assert.Equal(t, uint8(255), a.buf[511])

	a.Deallocate(b)
	assert.Equal(t, 256, a.UsedMemory())
}

func TestStackReset(t *testing.T) {
	a := newTestStack(t, 128)

	for i := 0; i < 3; i++ {
		_, err := a.Allocate(20, 8)
		require.NoError(t, err)
	}
	a.Reset()
	assert.Zero(t, a.UsedMemory())
	assert.Zero(t, a.NumAllocations())

	b, err := a.Allocate(20, 8)
	require.NoError(t, err)
	assert.Equal(t, a.Start()+8, addr(b))
}
