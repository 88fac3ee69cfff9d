package disk

import (
	"errors"
	"fmt"
)

const (
	// BlockSize is the size of one block (and one sector) in bytes.
	BlockSize = 64
	// NumBlocks is the number of blocks on a device.
	NumBlocks = 128
	// Capacity is the exact size of a device in bytes.
	Capacity = BlockSize * NumBlocks
)

var (
	// ErrExists is returned by Create when something already exists at the path.
	ErrExists = errors.New("disk: store already exists")
	// ErrInvalid is returned when a device is not attached or has the wrong size.
	ErrInvalid = errors.New("disk: store is not valid")
	// ErrLocked is returned when another handle already holds the store.
	ErrLocked = errors.New("disk: store is in use")
	// ErrOutOfRange is returned for negative lengths and transfers past the device end.
	ErrOutOfRange = errors.New("disk: transfer out of range")
	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("disk: device is closed")
)

// Device is a fixed-geometry block device.
//
// Read transfers up to length bytes starting at the first byte of block and
// returns the number of bytes transferred. Write transfers exactly length
// bytes or nothing at all when the range does not fit the device.
type Device interface {
	Read(buf []byte, block, length int) (int, error)
	Write(buf []byte, block, length int) (int, error)
	Sync() error
	Valid() bool
	Close() error
}

// Offset returns the byte offset of block.
func Offset(block int) int64 {
	return int64(block) * BlockSize
}

// readSpan validates a read request and clamps it to the device end and buf.
func readSpan(buf []byte, block, length int) (int64, int, error) {
	if length < 0 || block < 0 || block >= NumBlocks {
		return 0, 0, fmt.Errorf("%w: read %d bytes at block %d", ErrOutOfRange, length, block)
	}
	off := Offset(block)
	length = min(length, len(buf), int(Capacity-off))
	return off, length, nil
}

// writeSpan validates a write request; it never clamps.
func writeSpan(buf []byte, block, length int) (int64, error) {
	if length < 0 || block < 0 || length > len(buf) || Offset(block)+int64(length) > Capacity {
		return 0, fmt.Errorf("%w: write %d bytes at block %d", ErrOutOfRange, length, block)
	}
	return Offset(block), nil
}

// ReadImage copies the whole device into a new Capacity-sized slice.
func ReadImage(dev Device) ([]byte, error) {
	img := make([]byte, Capacity)
	for b := range NumBlocks {
		n, err := dev.Read(img[Offset(b):], b, BlockSize)
		if err != nil {
			return nil, err
		}
		if n != BlockSize {
			return nil, fmt.Errorf("disk: short read of block %d: %d bytes", b, n)
		}
	}
	return img, nil
}

// WriteImage overwrites the whole device with img and syncs it.
func WriteImage(dev Device, img []byte) error {
	if len(img) != Capacity {
		return fmt.Errorf("%w: image is %d bytes, want %d", ErrInvalid, len(img), Capacity)
	}
	for b := range NumBlocks {
		n, err := dev.Write(img[Offset(b):], b, BlockSize)
		if err != nil {
			return err
		}
		if n != BlockSize {
			return fmt.Errorf("disk: short write of block %d: %d bytes", b, n)
		}
	}
	return dev.Sync()
}
