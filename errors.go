package arena

import "github.com/pkg/errors"

var (
	// ErrOutOfSpace indicates that no region of the requested size and
	// alignment fits in the arena.
	ErrOutOfSpace = errors.New("arena: out of space")

	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = errors.New("arena: size must be positive")

	// ErrInvalidAlignment indicates an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")

	// ErrPaddingOverflow indicates that a stack allocation would need more
	// padding than its one-byte header can record.
	ErrPaddingOverflow = errors.New("arena: stack padding exceeds 255 bytes")

	// ErrChunkTooSmall indicates a pool allocation larger than the pool's chunk size.
	ErrChunkTooSmall = errors.New("arena: size exceeds pool chunk size")
)
