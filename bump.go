package arena

var _ Allocator = (*Bump)(nil)

// Bump is a linear allocator. Allocation advances a cursor through the
// arena; Deallocate does nothing and memory only comes back on Reset.
// Typical usage: one Bump per frame or message, Reset after each unit of work.
type Bump struct {
	region
	cursor int
}

// NewBump creates a bump allocator over totalSize bytes.
// If totalSize <= 0, DefaultArenaSize is used. Call Init before use.
func NewBump(totalSize int, opts ...Option) *Bump {
	return &Bump{region: newRegion(totalSize, opts)}
}

// Init reserves the arena and rewinds the cursor.
func (a *Bump) Init() error {
	if err := a.acquire(); err != nil {
		return err
	}
	a.cursor = 0
	return nil
}

// Allocate returns size bytes aligned to alignment from the cursor position.
func (a *Bump) Allocate(size, alignment int) ([]byte, error) {
	align, err := a.checkRequest("bump", size, alignment)
	if err != nil {
		return nil, err
	}

	pad := padding(a.base+uintptr(a.cursor), align)
	if pad > a.capacity-a.used-size {
		return nil, a.outOfSpace("bump", "bump arena full", size, align)
	}

	off := a.cursor + pad
	a.cursor = off + size
	a.used += pad + size
	a.count++
	return a.carve(off, size), nil
}

// Deallocate is a no-op. Use Reset to reclaim memory.
func (a *Bump) Deallocate([]byte) {}

// Reset rewinds the cursor to the start of the arena.
func (a *Bump) Reset() {
	a.panicIfReleased()
	a.cursor = 0
	a.used, a.count = 0, 0
}
