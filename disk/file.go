package disk

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/hupe1980/toyfat/internal/fs"
)

type options struct {
	fsys   fs.FileSystem
	noLock bool
}

// Option configures Create and Open.
type Option func(*options)

// WithFileSystem routes host file access through fsys (fault injection in tests).
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithoutLock skips the exclusive advisory lock taken by Open.
func WithoutLock() Option {
	return func(o *options) {
		o.noLock = true
	}
}

func applyOptions(opts []Option) options {
	o := options{fsys: fs.Default}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Create allocates a new zero-filled store of Capacity bytes at path.
// It fails with ErrExists if anything already exists there.
func Create(path string, opts ...Option) error {
	o := applyOptions(opts)

	f, err := o.fsys.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return err
	}

	if _, err := f.Write(make([]byte, Capacity)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// File is a Device backed by a host file.
type File struct {
	path   string
	f      fs.File
	err    error
	locked bool
	closed atomic.Bool
}

var _ Device = (*File)(nil)

// Open attaches to an existing store for read/write.
// It never fails; check Valid before use.
func Open(path string, opts ...Option) *File {
	o := applyOptions(opts)
	d := &File{path: path}

	f, err := o.fsys.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		d.err = err
		return d
	}

	if !o.noLock {
		if err := lockFile(f); err != nil {
			_ = f.Close()
			d.err = fmt.Errorf("%w: %s: %w", ErrLocked, path, err)
			return d
		}
		d.locked = true
	}

	d.f = f
	return d
}

// Path returns the host path of the store.
func (d *File) Path() string {
	return d.path
}

// Err returns the attach error, if any.
func (d *File) Err() error {
	if d.err != nil {
		return d.err
	}
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Valid reports whether the store is attached and exactly Capacity bytes long.
func (d *File) Valid() bool {
	if d.f == nil || d.closed.Load() {
		return false
	}
	size, err := fs.Size(d.f)
	return err == nil && size == Capacity
}

// Read transfers up to length bytes from block into buf.
func (d *File) Read(buf []byte, block, length int) (int, error) {
	if d.f == nil || d.closed.Load() {
		return 0, ErrClosed
	}
	off, length, err := readSpan(buf, block, length)
	if err != nil {
		return 0, err
	}
	n, err := d.f.ReadAt(buf[:length], off)
	if n == length {
		// ReadAt may report io.EOF together with a full read at the device end.
		return n, nil
	}
	return n, err
}

// Write transfers length bytes from buf to block. Ranges that do not fit
// the device are rejected without writing anything.
func (d *File) Write(buf []byte, block, length int) (int, error) {
	if d.f == nil || d.closed.Load() {
		return 0, ErrClosed
	}
	off, err := writeSpan(buf, block, length)
	if err != nil {
		return 0, err
	}
	return d.f.WriteAt(buf[:length], off)
}

// Sync forces persistence of all prior writes.
func (d *File) Sync() error {
	if d.f == nil || d.closed.Load() {
		return ErrClosed
	}
	return d.f.Sync()
}

// Close releases the lock and the host file. It is idempotent.
func (d *File) Close() error {
	if d.f == nil || d.closed.Swap(true) {
		return nil
	}
	if d.locked {
		_ = unlockFile(d.f)
	}
	return d.f.Close()
}
