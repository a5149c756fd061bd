package arena

// Reserver obtains and returns the backing memory of an arena.
type Reserver interface {
	// Reserve returns a zeroed buffer of exactly n bytes.
	Reserve(n int) ([]byte, error)
	// Release gives back a buffer previously returned by Reserve.
	Release(b []byte) error
}

// HeapReserver reserves arenas from the Go heap. The Go collector does not
// move heap objects, so addresses inside the buffer stay stable for as long
// as the allocator references it.
var HeapReserver Reserver = heapReserver{}

type heapReserver struct{}

func (heapReserver) Reserve(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (heapReserver) Release([]byte) error { return nil }
