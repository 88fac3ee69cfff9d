//go:build windows

package disk

import (
	"unsafe"

	"github.com/hupe1980/toyfat/internal/fs"
	"golang.org/x/sys/windows"
)

// mapStore maps the Capacity bytes of f read-only.
func mapStore(f fs.File) ([]byte, func() error, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, Capacity, nil)
	if err != nil {
		return nil, nil, err
	}
	// The view keeps the mapping object alive.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, Capacity)
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), Capacity)
	return data, func() error { return windows.UnmapViewOfFile(addr) }, nil
}
