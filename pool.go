package arena

import "encoding/binary"

var _ Allocator = (*Pool)(nil)

const (
	// poolLinkSize is the width of the next-link kept in every free chunk.
	poolLinkSize = 8

	// nilOffset terminates in-arena linked lists.
	nilOffset = -1
)

// Pool hands out fixed-size chunks. Free chunks form a singly linked list
// whose links live inside the chunks themselves, so Allocate and Deallocate
// are a pop and a push. A freed chunk is the next one handed out.
type Pool struct {
	region

	chunkSize int
	first     int // offset of the first aligned chunk
	chunks    int
	head      int
}

// NewPool creates a pool over totalSize bytes split into chunks of
// chunkSize bytes. The chunk size is raised to the link width and rounded
// up to a multiple of the pool alignment (see WithAlignment).
// If totalSize <= 0, DefaultArenaSize is used. Call Init before use.
func NewPool(totalSize, chunkSize int, opts ...Option) *Pool {
	r := newRegion(totalSize, opts)
	if chunkSize < poolLinkSize {
		chunkSize = poolLinkSize
	}
	if rem := chunkSize % r.alignment; rem != 0 {
		chunkSize += r.alignment - rem
	}
	return &Pool{region: r, chunkSize: chunkSize, head: nilOffset}
}

// Init reserves the arena and threads every chunk onto the free list.
func (a *Pool) Init() error {
	if err := a.acquire(); err != nil {
		return err
	}
	a.first = padding(a.base, uintptr(a.alignment))
	if a.first > a.capacity {
		a.first = a.capacity
	}
	a.chunks = (a.capacity - a.first) / a.chunkSize
	a.Reset()
	return nil
}

// Allocate pops a chunk. The alignment argument is ignored: every chunk is
// aligned to the pool alignment. Sizes above the chunk size fail with
// ErrChunkTooSmall, and sizes above the arena size with ErrOutOfSpace.
func (a *Pool) Allocate(size, _ int) ([]byte, error) {
	if _, err := a.checkRequest("pool", size, 0); err != nil {
		return nil, err
	}
	if size > a.chunkSize {
		return nil, ErrChunkTooSmall
	}
	if a.head == nilOffset {
		return nil, a.outOfSpace("pool", "pool exhausted", size, uintptr(a.alignment))
	}

	off := a.head
	a.head = a.link(off)
	a.used += a.chunkSize
	a.count++
	return a.carve(off, size), nil
}

// Deallocate pushes the chunk holding b back onto the free list.
func (a *Pool) Deallocate(b []byte) {
	off := a.offsetOf(b)
	a.setLink(off, a.head)
	a.head = off
	a.used -= a.chunkSize
	a.count--
}

// Reset rebuilds the free list in ascending address order.
func (a *Pool) Reset() {
	a.panicIfReleased()
	a.used, a.count = 0, 0
	a.head = nilOffset
	for i := a.chunks - 1; i >= 0; i-- {
		off := a.first + i*a.chunkSize
		a.setLink(off, a.head)
		a.head = off
	}
}

// ChunkSize returns the effective chunk size after rounding.
func (a *Pool) ChunkSize() int { return a.chunkSize }

// NumChunks returns how many chunks the arena holds.
func (a *Pool) NumChunks() int { return a.chunks }

// FreeChunks returns how many chunks are available.
func (a *Pool) FreeChunks() int { return a.chunks - a.count }

func (a *Pool) link(off int) int {
	return int(binary.LittleEndian.Uint64(a.buf[off : off+poolLinkSize]))
}

func (a *Pool) setLink(off, next int) {
	binary.LittleEndian.PutUint64(a.buf[off:off+poolLinkSize], uint64(next))
}
