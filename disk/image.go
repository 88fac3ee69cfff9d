package disk

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/hupe1980/toyfat/internal/fs"
)

// Image is a read-only view of a store file mapped into memory. It does not
// take the store lock, so it can inspect a store another process has open.
type Image struct {
	data   []byte
	unmap  func() error
	closed atomic.Bool
}

// MapImage maps the store at path. It fails with ErrInvalid unless the file
// is exactly Capacity bytes long.
func MapImage(path string, opts ...Option) (*Image, error) {
	o := applyOptions(opts)

	f, err := o.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	size, err := fs.Size(f)
	if err != nil {
		return nil, err
	}
	if size != Capacity {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalid, path, size)
	}

	data, unmap, err := mapStore(f)
	if err != nil {
		return nil, fmt.Errorf("disk: map %s: %w", path, err)
	}
	return &Image{data: data, unmap: unmap}, nil
}

// Block returns the bytes of block b. The slice is valid until Close.
func (img *Image) Block(b int) ([]byte, error) {
	if img.closed.Load() {
		return nil, ErrClosed
	}
	if b < 0 || b >= NumBlocks {
		return nil, fmt.Errorf("%w: block %d", ErrOutOfRange, b)
	}
	off := Offset(b)
	return img.data[off : off+BlockSize], nil
}

// Bytes returns the whole image, or nil once closed. The slice is valid
// until Close.
func (img *Image) Bytes() []byte {
	if img.closed.Load() {
		return nil
	}
	return img.data
}

// ReadAt implements io.ReaderAt.
func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	if img.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	if off >= Capacity {
		return 0, io.EOF
	}
	n := copy(p, img.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the image size in bytes.
func (img *Image) Size() int64 {
	return Capacity
}

// Close unmaps the image. It is idempotent.
func (img *Image) Close() error {
	if img.closed.Swap(true) {
		return nil
	}
	return img.unmap()
}
