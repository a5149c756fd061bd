package arena

import "sync"

var _ Allocator = (*Synchronized)(nil)

// Synchronized is a mutex-protected wrapper around any Allocator for
// concurrent access. Every call takes the lock, so the usual strategy
// preconditions (LIFO order for Stack, no use after Reset) still apply
// across goroutines.
type Synchronized struct {
	mu sync.Mutex
	a  Allocator
}

// NewSynchronized wraps a for concurrent use. a must not be used directly afterwards.
func NewSynchronized(a Allocator) *Synchronized {
	return &Synchronized{a: a}
}

// Init thread-safely reserves the arena of the wrapped allocator.
func (s *Synchronized) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Init()
}

// Allocate thread-safely allocates size bytes aligned to alignment.
func (s *Synchronized) Allocate(size, alignment int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(size, alignment)
}

// Deallocate thread-safely returns b to the wrapped allocator.
func (s *Synchronized) Deallocate(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Deallocate(b)
}

// Reset thread-safely frees all allocations.
func (s *Synchronized) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Release thread-safely gives the arena back to its Reserver.
func (s *Synchronized) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Release()
}

// Start thread-safely returns the address of the first byte of the arena.
func (s *Synchronized) Start() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Start()
}

// UsedMemory thread-safely returns the bytes charged to live allocations.
func (s *Synchronized) UsedMemory() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.UsedMemory()
}

// NumAllocations thread-safely returns the number of live allocations.
func (s *Synchronized) NumAllocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.NumAllocations()
}

// Capacity thread-safely returns the arena size in bytes.
func (s *Synchronized) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Capacity()
}

// Metrics thread-safely returns a snapshot of the wrapped allocator's statistics.
func (s *Synchronized) Metrics() AllocatorMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Metrics(s.a)
}

// Unwrap returns the wrapped allocator.
func (s *Synchronized) Unwrap() Allocator {
	return s.a
}
