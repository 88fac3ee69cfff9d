//go:build unix

package disk

import (
	"github.com/hupe1980/toyfat/internal/fs"
	"golang.org/x/sys/unix"
)

// mapStore maps the Capacity bytes of f read-only.
func mapStore(f fs.File) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, Capacity, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	// Dumps and exports walk the blocks in order. The hint is advisory.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return data, func() error { return unix.Munmap(data) }, nil
}
