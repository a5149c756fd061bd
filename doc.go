// Package arena implements fixed-size memory arenas with four allocation
// strategies for Go.
//
// # Overview
//
// Each allocator reserves one contiguous buffer on Init and serves every
// allocation from it. All bookkeeping (headers, free lists) lives inside the
// buffer itself, so allocation never touches the Go heap and never triggers
// a garbage collection. This is useful for:
//
//   - Per-frame or per-message scratch memory
//   - Network packet buffers
//   - Fixed-shape records on latency-sensitive hot paths
//   - Workloads where fragmentation must stay bounded and predictable
//
// # Strategies
//
//   - Bump: advances a cursor. Deallocate is a no-op, Reset frees everything.
//   - Stack: like Bump, but releases the most recent allocation (strict LIFO).
//   - Pool: fixed-size chunks on an intrusive free list, O(1) both ways.
//   - FreeList: variable sizes, first-fit search over an address-ordered
//     free list, with splitting and coalescing of adjacent free blocks.
//
// All four implement Allocator, so callers can hold "an allocator" without
// knowing which one they have.
//
// # Basic Usage
//
//	a := arena.NewFreeList(1 << 20)
//	if err := a.Init(); err != nil {
//		return err
//	}
//	defer a.Release()
//
//	buf, err := a.Allocate(256, 16)
//	if errors.Is(err, arena.ErrOutOfSpace) {
//		// arena exhausted
//	}
//	a.Deallocate(buf)
//
//	// Typed values (must not contain Go pointers)
//	p, err := arena.New[Order](a)
//	arena.Delete(a, p)
//
// # Configuration
//
// Config selects a strategy, sizes and backing memory. It can be loaded from
// YAML with LoadConfig or registered on a flag.FlagSet, then turned into an
// allocator with NewFromConfig.
//
// # Thread Safety
//
// The strategies are not thread-safe. For concurrent access, wrap one in
// Synchronized.
//
// # Important Notes
//
//   - Slices returned by Allocate are valid until Deallocate, Reset, Init or Release
//   - Deallocating memory from another allocator is undefined behavior
//   - Stack deallocations must happen in reverse allocation order
//   - Allocations fail with ErrOutOfSpace, never by panicking
//
// # Metrics and Monitoring
//
//	fmt.Println(arena.Metrics(a))
//	prometheus.MustRegister(arena.NewCollector("orders", arena.NewSynchronized(a)))
package arena
