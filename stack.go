package arena

import "math"

var _ Allocator = (*Stack)(nil)

const (
	// stackHeaderSize is the single padding byte stored before each payload.
	stackHeaderSize = 1

	maxStackPadding = math.MaxUint8
)

// Stack is a LIFO allocator. Each allocation is preceded by a one-byte
// header holding the alignment padding inserted before it, which lets
// Deallocate move the cursor back to where the allocation began.
//
// Allocations must be released in exactly the reverse order they were made.
// Out-of-order deallocation is not detected and corrupts the cursor.
type Stack struct {
	region
	cursor int
}

// NewStack creates a stack allocator over totalSize bytes.
// If totalSize <= 0, DefaultArenaSize is used. Call Init before use.
func NewStack(totalSize int, opts ...Option) *Stack {
	return &Stack{region: newRegion(totalSize, opts)}
}

// Init reserves the arena and rewinds the cursor.
func (a *Stack) Init() error {
	if err := a.acquire(); err != nil {
		return err
	}
	a.cursor = 0
	return nil
}

// Allocate pushes a block of size bytes aligned to alignment.
// Layout: [padding][header][payload]. Returns ErrPaddingOverflow when the
// padding cannot be recorded in one byte, which needs alignment > 256.
func (a *Stack) Allocate(size, alignment int) ([]byte, error) {
	align, err := a.checkRequest("stack", size, alignment)
	if err != nil {
		return nil, err
	}

	pad := padding(a.base+uintptr(a.cursor+stackHeaderSize), align)
	if pad > maxStackPadding {
		return nil, ErrPaddingOverflow
	}
	if stackHeaderSize+pad > a.capacity-a.used-size {
		return nil, a.outOfSpace("stack", "stack arena full", size, align)
	}

	header := a.cursor + pad
	a.buf[header] = uint8(pad)
	data := header + stackHeaderSize

	a.cursor = data + size
	a.used += stackHeaderSize + pad + size
	a.count++
	return a.carve(data, size), nil
}

// Deallocate pops the block starting at b, which must be the most recent
// live allocation.
func (a *Stack) Deallocate(b []byte) {
	data := a.offsetOf(b)
	header := data - stackHeaderSize
	start := header - int(a.buf[header])

	a.used -= a.cursor - start
	a.cursor = start
	a.count--
}

// Reset rewinds the cursor to the start of the arena.
func (a *Stack) Reset() {
	a.panicIfReleased()
	a.cursor = 0
	a.used, a.count = 0, 0
}
