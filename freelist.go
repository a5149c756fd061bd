package arena

import "encoding/binary"

var _ Allocator = (*FreeList)(nil)

const (
	// freeListHeaderSize is the {size, padding} header before each payload.
	freeListHeaderSize = 16

	// freeNodeSize is the {size, next} record at the start of each free block.
	freeNodeSize = 16
)

// FreeList serves variable-size allocations with first-fit search over a
// list of free blocks kept in ascending address order.
//
// An allocated block is laid out as [padding][header][payload], where the
// header records the whole block size and the padding in front of it. A
// free block starts with a node recording its size and the offset of the
// next free block. Keeping the list sorted makes coalescing a comparison
// with the two neighbours of the freed block.
type FreeList struct {
	region
	head int
}

// NewFreeList creates a free-list allocator over totalSize bytes.
// If totalSize <= 0, DefaultArenaSize is used. Call Init before use.
func NewFreeList(totalSize int, opts ...Option) *FreeList {
	return &FreeList{region: newRegion(totalSize, opts), head: nilOffset}
}

// Init reserves the arena and makes it a single free block.
func (a *FreeList) Init() error {
	if err := a.acquire(); err != nil {
		return err
	}
	a.Reset()
	return nil
}

// Allocate carves size bytes aligned to alignment out of the first free
// block large enough to hold the header, the padding and the payload.
//
// The remainder of the block stays free when it can hold a free node.
// Otherwise the whole block is charged to the allocation.
func (a *FreeList) Allocate(size, alignment int) ([]byte, error) {
	align, err := a.checkRequest("freelist", size, alignment)
	if err != nil {
		return nil, err
	}

	prev, cur := nilOffset, a.head
	for cur != nilOffset {
		nodeSize, next := a.node(cur)
		pad := padding(a.base+uintptr(cur+freeListHeaderSize), align)
		if size > nodeSize-freeListHeaderSize-pad {
			prev, cur = cur, next
			continue
		}
		required := freeListHeaderSize + pad + size

		if remaining := nodeSize - required; remaining > freeNodeSize {
			split := cur + required
			a.setNode(split, remaining, next)
			a.relink(prev, split)
		} else {
			a.relink(prev, next)
			required = nodeSize
		}

		header := cur + pad
		a.setHeader(header, required, pad)
		a.used += required
		a.count++
		return a.carve(header+freeListHeaderSize, size), nil
	}

	return nil, a.outOfSpace("freelist", "no free block big enough", size, align)
}

// Deallocate returns the block holding b to the free list and merges it
// with any free block directly before or after it.
func (a *FreeList) Deallocate(b []byte) {
	header := a.offsetOf(b) - freeListHeaderSize
	blockSize, pad := a.header(header)
	start := header - pad

	prev, cur := nilOffset, a.head
	for cur != nilOffset && cur < start {
		prev = cur
		_, cur = a.node(cur)
	}

	size, next := blockSize, cur
	if next != nilOffset && start+size == next {
		nextSize, nextNext := a.node(next)
		size += nextSize
		next = nextNext
	}
	a.setNode(start, size, next)
	a.relink(prev, start)

	if prev != nilOffset {
		prevSize, _ := a.node(prev)
		if prev+prevSize == start {
			a.setNode(prev, prevSize+size, next)
		}
	}

	a.used -= blockSize
	a.count--
}

// Reset makes the whole arena one free block.
func (a *FreeList) Reset() {
	a.panicIfReleased()
	a.used, a.count = 0, 0
	if a.capacity < freeNodeSize {
		a.head = nilOffset
		return
	}
	a.setNode(0, a.capacity, nilOffset)
	a.head = 0
}

// FreeBlocks returns the number of blocks on the free list.
func (a *FreeList) FreeBlocks() int {
	n := 0
	for cur := a.head; cur != nilOffset; _, cur = a.node(cur) {
		n++
	}
	return n
}

// LargestFreeBlock returns the size of the largest free block, headers included.
func (a *FreeList) LargestFreeBlock() int {
	largest := 0
	for cur := a.head; cur != nilOffset; {
		size, next := a.node(cur)
		largest = max(largest, size)
		cur = next
	}
	return largest
}

// freeSpan is a free block as seen by tests.
type freeSpan struct {
	off, size int
}

func (a *FreeList) spans() []freeSpan {
	var out []freeSpan
	for cur := a.head; cur != nilOffset; {
		size, next := a.node(cur)
		out = append(out, freeSpan{off: cur, size: size})
		cur = next
	}
	return out
}

// relink points prev (or the list head when prev is nil) at next.
func (a *FreeList) relink(prev, next int) {
	if prev == nilOffset {
		a.head = next
		return
	}
	size, _ := a.node(prev)
	a.setNode(prev, size, next)
}

func (a *FreeList) node(off int) (size, next int) {
	b := a.buf[off : off+freeNodeSize]
	return int(binary.LittleEndian.Uint64(b[0:8])), int(binary.LittleEndian.Uint64(b[8:16]))
}

func (a *FreeList) setNode(off, size, next int) {
	b := a.buf[off : off+freeNodeSize]
	binary.LittleEndian.PutUint64(b[0:8], uint64(size))
	binary.LittleEndian.PutUint64(b[8:16], uint64(next))
}

func (a *FreeList) header(off int) (size, pad int) {
	b := a.buf[off : off+freeListHeaderSize]
	return int(binary.LittleEndian.Uint64(b[0:8])), int(binary.LittleEndian.Uint64(b[8:16]))
}

func (a *FreeList) setHeader(off, size, pad int) {
	b := a.buf[off : off+freeListHeaderSize]
	binary.LittleEndian.PutUint64(b[0:8], uint64(size))
	binary.LittleEndian.PutUint64(b[8:16], uint64(pad))
}
