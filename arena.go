// Package arena implements fixed-size memory arenas with pluggable
// allocation strategies. Every allocator reserves one contiguous buffer on
// Init and keeps all of its bookkeeping inside that buffer.
package arena

import (
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// DefaultArenaSize is the arena size used when a non-positive size is requested (64 KiB).
	DefaultArenaSize = 1 << 16

	// DefaultAlignment is the alignment used when Allocate is called with alignment 0.
	DefaultAlignment = 8
)

// Allocator is the contract shared by every strategy.
//
// None of the implementations are goroutine-safe; wrap one in Synchronized
// for shared access. Slices returned by Allocate are only valid until the
// matching Deallocate, the next Reset, Init or Release. Deallocating a slice
// that did not come from the same allocator is undefined behavior.
type Allocator interface {
	// Init reserves a fresh arena, releasing any previously held one, and
	// restores the strategy's empty state.
	Init() error

	// Allocate returns size bytes whose address is a multiple of alignment.
	// An alignment of 0 selects the allocator's default alignment.
	// It returns ErrOutOfSpace when no suitable region is left.
	Allocate(size, alignment int) ([]byte, error)

	// Deallocate returns a slice obtained from Allocate.
	Deallocate(b []byte)

	// Reset frees all allocations at once without touching their contents.
	Reset()

	// Release gives the arena back to its Reserver. The allocator must be
	// re-initialized before further use.
	Release() error

	// Start returns the address of the first byte of the arena.
	Start() uintptr

	// UsedMemory returns the bytes charged to live allocations, including
	// headers and padding.
	UsedMemory() int

	// NumAllocations returns the number of live allocations.
	NumAllocations() int

	// Capacity returns the total size of the arena in bytes.
	Capacity() int
}

// Option configures an allocator.
type Option func(*options)

type options struct {
	alignment int
	reserver  Reserver
	logger    log.Logger

	// err is reported by Init.
	err error
}

// WithAlignment sets the default alignment. It must be a power of two;
// otherwise Init fails with ErrInvalidAlignment.
func WithAlignment(alignment int) Option {
	return func(o *options) { o.alignment = alignment }
}

// WithReserver sets where arena memory comes from. Defaults to HeapReserver.
func WithReserver(r Reserver) Option {
	return func(o *options) { o.reserver = r }
}

// WithLogger sets the logger used for diagnostics. Defaults to a no-op logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		alignment: DefaultAlignment,
		reserver:  HeapReserver,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !isPowerOfTwo(o.alignment) {
		o.err = errors.Wrapf(ErrInvalidAlignment, "default alignment %d", o.alignment)
		o.alignment = DefaultAlignment
	}
	return o
}

// region is the arena and the usage counters common to all strategies.
type region struct {
	options

	buf      []byte
	base     uintptr
	capacity int
	used     int
	count    int
}

func newRegion(totalSize int, opts []Option) region {
	if totalSize <= 0 {
		totalSize = DefaultArenaSize
	}
	return region{options: buildOptions(opts), capacity: totalSize}
}

// acquire swaps the current arena, if any, for a freshly reserved one.
func (r *region) acquire() error {
	if r.err != nil {
		return r.err
	}
	if err := r.Release(); err != nil {
		return err
	}
	buf, err := r.reserver.Reserve(r.capacity)
	if err != nil {
		return errors.Wrapf(err, "reserve %s arena", humanize.IBytes(uint64(r.capacity)))
	}
	if len(buf) != r.capacity {
		return errors.Errorf("reserver returned %d bytes, want %d", len(buf), r.capacity)
	}
	r.buf = buf
	r.base = uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	r.used, r.count = 0, 0
	level.Debug(r.logger).Log("msg", "arena reserved", "size", humanize.IBytes(uint64(r.capacity)), "start", r.base)
	return nil
}

// Release gives the arena back to its Reserver.
func (r *region) Release() error {
	if r.buf == nil {
		return nil
	}
	buf := r.buf
	r.buf, r.base = nil, 0
	r.used, r.count = 0, 0
	if err := r.reserver.Release(buf); err != nil {
		return errors.Wrap(err, "release arena")
	}
	level.Debug(r.logger).Log("msg", "arena released", "size", humanize.IBytes(uint64(len(buf))))
	return nil
}

// Start returns the address of the first byte of the arena, or 0 before Init.
func (r *region) Start() uintptr { return r.base }

// UsedMemory returns the bytes charged to live allocations.
func (r *region) UsedMemory() int { return r.used }

// NumAllocations returns the number of live allocations.
func (r *region) NumAllocations() int { return r.count }

// Capacity returns the arena size in bytes.
func (r *region) Capacity() int { return r.capacity }

func (r *region) panicIfReleased() {
	if r.buf == nil {
		panic("arena: use of uninitialized or released allocator")
	}
}

// checkRequest validates an allocation request and resolves the alignment.
// Sizes above the capacity fail here, so callers can add size to offsets
// without overflowing.
func (r *region) checkRequest(strategy string, size, alignment int) (uintptr, error) {
	r.panicIfReleased()
	if size <= 0 {
		return 0, ErrInvalidSize
	}
	if alignment == 0 {
		alignment = r.alignment
	}
	if !isPowerOfTwo(alignment) {
		return 0, ErrInvalidAlignment
	}
	if size > r.capacity {
		return 0, r.outOfSpace(strategy, "request larger than arena", size, uintptr(alignment))
	}
	return uintptr(alignment), nil
}

// offsetOf returns the arena offset of b's first byte.
func (r *region) offsetOf(b []byte) int {
	r.panicIfReleased()
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if p < r.base || p >= r.base+uintptr(len(r.buf)) {
		panic("arena: deallocate of memory outside the arena")
	}
	return int(p - r.base)
}

// carve returns the n bytes at off with capacity clipped to n.
func (r *region) carve(off, n int) []byte {
	return r.buf[off : off+n : off+n]
}

func (r *region) outOfSpace(strategy, msg string, size int, alignment uintptr) error {
	level.Debug(r.logger).Log(
		"msg", msg,
		"strategy", strategy,
		"size", size,
		"alignment", alignment,
		"used", r.used,
		"capacity", r.capacity,
	)
	return ErrOutOfSpace
}

// padding returns how many bytes must be added to addr to reach a multiple of align.
func padding(addr, align uintptr) int {
	mask := align - 1
	return int((align - addr&mask) & mask)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
