//go:build unix

package arena

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapReserver reserves arenas as anonymous private mappings. Arenas are
// page aligned and live outside the Go heap.
var MmapReserver Reserver = mmapReserver{}

type mmapReserver struct{}

func (mmapReserver) Reserve(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", n)
	}
	return b, nil
}

func (mmapReserver) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil && !errors.Is(err, unix.EINVAL) {
		return errors.Wrap(err, "munmap arena")
	}
	return nil
}
