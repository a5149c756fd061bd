package arena

import (
	"math"
	"unsafe"
)

// New places a zeroed T in memory obtained from a.
//
// T must not contain Go pointers: the garbage collector does not scan arena
// memory, so anything referenced only from inside the arena may be freed.
// The value is valid until it is passed to Delete or the allocator is Reset.
func New[T any](a Allocator) (*T, error) {
	var zero T
	b, err := a.Allocate(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// Delete returns the memory of a value placed by New.
// Any cleanup of the value itself is the caller's business and must happen first.
func Delete[T any](a Allocator, p *T) {
	a.Deallocate(unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p)))
}

// NewSlice places a zeroed slice of n elements of T in memory obtained from a.
// The same restriction on Go pointers as for New applies. A slice whose byte
// size does not fit in an int fails with ErrOutOfSpace.
func NewSlice[T any](a Allocator, n int) ([]T, error) {
	var zero T
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	elem := int(unsafe.Sizeof(zero))
	if elem > 0 && n > math.MaxInt/elem {
		return nil, ErrOutOfSpace
	}
	b, err := a.Allocate(elem*n, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// DeleteSlice returns the memory of a slice placed by NewSlice.
func DeleteSlice[T any](a Allocator, s []T) {
	var zero T
	p := (*byte)(unsafe.Pointer(unsafe.SliceData(s)))
	a.Deallocate(unsafe.Slice(p, int(unsafe.Sizeof(zero))*len(s)))
}
