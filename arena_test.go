package arena

import (
	"errors"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pageReserver hands out page-aligned heap buffers so tests can assert exact offsets.
type pageReserver struct {
	reserved, released int
}

func (r *pageReserver) Reserve(n int) ([]byte, error) {
	const page = 4096
	raw := make([]byte, n+page)
	off := padding(uintptr(unsafe.Pointer(unsafe.SliceData(raw))), page)
	r.reserved++
	return raw[off : off+n : off+n], nil
}

func (r *pageReserver) Release([]byte) error {
	r.released++
	return nil
}

type failingReserver struct{}

func (failingReserver) Reserve(int) ([]byte, error) { return nil, errors.New("no memory") }
func (failingReserver) Release([]byte) error        { return nil }

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// newTestAllocators returns one initialized allocator per strategy over totalSize bytes.
func newTestAllocators(t *testing.T, totalSize int) map[string]Allocator {
	t.Helper()
	all := map[string]Allocator{
		"bump":     NewBump(totalSize, WithReserver(&pageReserver{})),
		"stack":    NewStack(totalSize, WithReserver(&pageReserver{})),
		"pool":     NewPool(totalSize, 64, WithReserver(&pageReserver{})),
		"freelist": NewFreeList(totalSize, WithReserver(&pageReserver{})),
	}
	for name, a := range all {
		require.NoError(t, a.Init(), name)
		t.Cleanup(func() { require.NoError(t, a.Release()) })
	}
	return all
}

func TestNewAllocatorDefaults(t *testing.T) {
	tests := []struct {
		name      string
		totalSize int
		expected  int
	}{
		{"default arena size", 0, DefaultArenaSize},
		{"negative arena size", -1, DefaultArenaSize},
		{"custom arena size", 8192, 8192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range []Allocator{
				NewBump(tt.totalSize),
				NewStack(tt.totalSize),
				NewPool(tt.totalSize, 64),
				NewFreeList(tt.totalSize),
			} {
				assert.Equal(t, tt.expected, a.Capacity())
				assert.Zero(t, a.Start(), "no arena before Init")
			}
		})
	}
}

func TestAllocatorContract(t *testing.T) {
	for name, a := range newTestAllocators(t, 4096) {
		t.Run(name, func(t *testing.T) {
			start := a.Start()
			require.NotZero(t, start)

			var live [][]byte
			for _, align := range []int{1, 8, 16, 32, 8, 4} {
				b, err := a.Allocate(24, align)
				require.NoError(t, err)
				require.Len(t, b, 24)
				require.Zero(t, addr(b)%uintptr(align), "alignment %d", align)
				require.GreaterOrEqual(t, addr(b), start)
				require.LessOrEqual(t, addr(b)+24, start+uintptr(a.Capacity()))
				live = append(live, b)
			}
			assert.Equal(t, len(live), a.NumAllocations())
			assert.LessOrEqual(t, a.UsedMemory(), a.Capacity())
			assertDisjoint(t, live)

			a.Reset()
			assert.Zero(t, a.UsedMemory())
			assert.Zero(t, a.NumAllocations())
			assert.Equal(t, start, a.Start(), "Reset keeps the arena")
		})
	}
}

func TestAllocatorRejectsBadRequests(t *testing.T) {
	for name, a := range newTestAllocators(t, 1024) {
		t.Run(name, func(t *testing.T) {
			_, err := a.Allocate(0, 8)
			assert.ErrorIs(t, err, ErrInvalidSize)

			_, err = a.Allocate(-5, 8)
			assert.ErrorIs(t, err, ErrInvalidSize)

			if name != "pool" {
				_, err = a.Allocate(8, 3)
				assert.ErrorIs(t, err, ErrInvalidAlignment)
			}

			_, err = a.Allocate(a.Capacity()+1, 8)
			assert.ErrorIs(t, err, ErrOutOfSpace)
			assert.Zero(t, a.NumAllocations())
			assert.Zero(t, a.UsedMemory())
		})
	}
}

func TestAllocatorCountsTrackAllocateAndDeallocate(t *testing.T) {
	for name, a := range newTestAllocators(t, 2048) {
		t.Run(name, func(t *testing.T) {
			var live [][]byte
			for i := 0; i < 10; i++ {
				b, err := a.Allocate(32, 8)
				require.NoError(t, err)
				live = append(live, b)
				require.LessOrEqual(t, a.UsedMemory(), a.Capacity())
			}
			require.Equal(t, 10, a.NumAllocations())

			// Reverse order keeps the stack allocator within its contract.
			for i := len(live) - 1; i >= 0; i-- {
				a.Deallocate(live[i])
			}

			if name == "bump" {
				assert.Equal(t, 10, a.NumAllocations())
				return
			}
			assert.Zero(t, a.NumAllocations())
			assert.Zero(t, a.UsedMemory())
		})
	}
}

func TestAllocatorReinit(t *testing.T) {
	r := &pageReserver{}
	a := NewFreeList(512, WithReserver(r))
	require.NoError(t, a.Init())

	_, err := a.Allocate(100, 8)
	require.NoError(t, err)
	require.Equal(t, 1, a.NumAllocations())

	require.NoError(t, a.Init())
	assert.Zero(t, a.NumAllocations())
	assert.Zero(t, a.UsedMemory())
	assert.Equal(t, 1, a.FreeBlocks())
	assert.Equal(t, 2, r.reserved)
	assert.Equal(t, 1, r.released, "Init releases the previous arena")

	require.NoError(t, a.Release())
	assert.Equal(t, 2, r.released)
	assert.Zero(t, a.Start())
	require.NoError(t, a.Release(), "double release is a no-op")
}

func TestAllocatorInitFailure(t *testing.T) {
	a := NewBump(128, WithReserver(failingReserver{}))
	err := a.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserve 128 B arena")
}

func TestUseBeforeInitPanics(t *testing.T) {
	for _, a := range []Allocator{NewBump(64), NewStack(64), NewPool(64, 8), NewFreeList(64)} {
		assert.PanicsWithValue(t, "arena: use of uninitialized or released allocator", func() {
			_, _ = a.Allocate(8, 8)
		})
		assert.Panics(t, a.Reset)
	}
}

func TestDeallocateOutsideArenaPanics(t *testing.T) {
	for name, a := range newTestAllocators(t, 256) {
		if name == "bump" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			foreign := make([]byte, 16)
			assert.PanicsWithValue(t, "arena: deallocate of memory outside the arena", func() {
				a.Deallocate(foreign)
			})
		})
	}
}

func TestDefaultAlignmentOption(t *testing.T) {
	a := NewBump(1024, WithAlignment(64), WithReserver(&pageReserver{}))
	require.NoError(t, a.Init())
	defer a.Release()

	_, err := a.Allocate(1, 0)
	require.NoError(t, err)
	b, err := a.Allocate(1, 0)
	require.NoError(t, err)
	assert.Zero(t, addr(b)%64)
	assert.Equal(t, 65, a.UsedMemory())
}

func TestInvalidAlignmentOptionFailsInit(t *testing.T) {
	for _, alignment := range []int{-8, 0, 12} {
		for _, a := range []Allocator{
			NewBump(64, WithAlignment(alignment)),
			NewStack(64, WithAlignment(alignment)),
			NewPool(64, 8, WithAlignment(alignment)),
			NewFreeList(64, WithAlignment(alignment)),
		} {
			err := a.Init()
			require.ErrorIs(t, err, ErrInvalidAlignment, "%s with alignment %d", StrategyOf(a), alignment)
			assert.Zero(t, a.Start())
		}
	}
}

func TestOversizedRequestsLeaveAllocatorUnchanged(t *testing.T) {
	sizes := []int{1025, 1 << 40, math.MaxInt / 2, math.MaxInt - 4, math.MaxInt}

	for name, a := range newTestAllocators(t, 1024) {
		t.Run(name, func(t *testing.T) {
			var live [][]byte
			for i := 0; i < 6; i++ {
				b, err := a.Allocate(40+i, 8)
				require.NoError(t, err)
				live = append(live, b)
			}
			switch name {
			case "pool", "freelist":
				a.Deallocate(live[1])
				a.Deallocate(live[3])
			case "stack":
				a.Deallocate(live[5])
			}

			before := Metrics(a)
			var spans []freeSpan
			if fl, ok := a.(*FreeList); ok {
				spans = fl.spans()
				require.Len(t, spans, 3, "fragmented")
			}

			for _, size := range sizes {
				for _, alignment := range []int{0, 1, 8, 64} {
					b, err := a.Allocate(size, alignment)
					require.ErrorIs(t, err, ErrOutOfSpace, "size %d alignment %d", size, alignment)
					require.Nil(t, b)
					require.Equal(t, before, Metrics(a), "size %d alignment %d", size, alignment)
					if fl, ok := a.(*FreeList); ok {
						require.Equal(t, spans, fl.spans())
					}
				}
			}

			b, err := a.Allocate(16, 8)
			require.NoError(t, err, "still usable")
			assert.Len(t, b, 16)
		})
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		addr, align uintptr
		want        int
	}{
		{0, 8, 0},
		{1, 8, 7},
		{8, 8, 0},
		{9, 16, 7},
		{17, 1, 0},
		{4097, 4096, 4095},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, padding(tt.addr, tt.align), "padding(%d, %d)", tt.addr, tt.align)
	}
}

func assertDisjoint(t *testing.T, regions [][]byte) {
	t.Helper()
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			a0, a1 := addr(regions[i]), addr(regions[i])+uintptr(len(regions[i]))
			b0, b1 := addr(regions[j]), addr(regions[j])+uintptr(len(regions[j]))
			assert.False(t, a0 < b1 && b0 < a1, "regions %d and %d overlap", i, j)
		}
	}
}
