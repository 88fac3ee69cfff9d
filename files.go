package toyfat

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/fat"
)

// descriptor is an open file. mu serialises the cursors; dir and slot
// locate the file's record so that growing the chain can update its
// block count.
type descriptor struct {
	mu     sync.Mutex
	closed bool

	path  string
	attrs Attributes
	start int
	count int
	modes OpenMode
	get   int
	put   int

	dir  int
	slot int
}

// OpenFile opens a file. Opening a file that is already open succeeds
// without changing its modes or cursors. The read cursor starts at 0 and
// the write cursor at the end of the content.
func (fsys *FileSystem) OpenFile(path string, modes OpenMode) error {
	if fsys.IsOpen(path) {
		return nil
	}

	start := time.Now()
	length, err := fsys.open(path, modes)
	fsys.metrics.RecordOpen(time.Since(start), err)
	fsys.logger.LogOpen(context.Background(), path, modes, length, err)

	return err
}

func (fsys *FileSystem) open(path string, modes OpenMode) (int, error) {
	const op = "open"

	if modes == 0 || modes&^(Read|Write) != 0 {
		return 0, newError(op, path, ErrPermissionDenied, ErrModeMismatch)
	}
	if fsys.openCount() >= MaxOpenFiles {
		return 0, newError(op, path, ErrFull, ErrTooManyOpenFiles)
	}

	fsys.resetMu.RLock()
	defer fsys.resetMu.RUnlock()

	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	e, err := fsys.resolveLocked(op, path)
	if err != nil {
		return 0, err
	}
	if e.IsDir() {
		return 0, newError(op, path, ErrPermissionDenied, ErrIsDirectory)
	}
	if modes&Write != 0 && e.IsReadOnly() {
		return 0, newError(op, path, ErrPermissionDenied, ErrReadOnly)
	}

	length, err := fsys.lengthLocked(e.StartBlock())
	if err != nil {
		return 0, newError(op, path, ErrIO, err)
	}

	n := e.node()
	d := &descriptor{
		path:  path,
		attrs: n.rec.Attr,
		start: int(n.rec.Start),
		count: int(n.rec.Count),
		modes: modes,
		put:   length,
		dir:   n.dir,
		slot:  n.slot,
	}

	fsys.filesMu.Lock()
	defer fsys.filesMu.Unlock()

	if _, ok := fsys.files[path]; ok {
		return length, nil
	}
	if len(fsys.files) >= MaxOpenFiles || !fsys.resources.TryAcquireOpen() {
		return 0, newError(op, path, ErrFull, ErrTooManyOpenFiles)
	}
	fsys.files[path] = d

	return length, nil
}

// lengthLocked returns the logical length of the chain starting at start:
// the offset of the first sentinel in its last block.
func (fsys *FileSystem) lengthLocked(start int) (int, error) {
	last, hops := fsys.table.Last(start)
	block, err := fsys.readBlock(last)
	if err != nil {
		return 0, err
	}
	i := bytes.IndexByte(block, Sentinel)
	if i < 0 {
		return 0, ErrCorrupt
	}
	return hops*disk.BlockSize + i, nil
}

// CloseFile flushes and closes an open file.
func (fsys *FileSystem) CloseFile(path string) error {
	const op = "close"

	d := fsys.lookup(path)
	if d == nil {
		return newError(op, path, ErrNotFound, ErrNotOpen)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return newError(op, path, ErrNotFound, ErrNotOpen)
	}
	if err := fsys.flush(op, path); err != nil {
		return err
	}
	fsys.release(d)

	return nil
}

// release drops d from the open-file table. Callers hold d.mu.
func (fsys *FileSystem) release(d *descriptor) {
	d.closed = true

	fsys.filesMu.Lock()
	defer fsys.filesMu.Unlock()

	if fsys.files[d.path] == d {
		delete(fsys.files, d.path)
		fsys.resources.ReleaseOpen()
	}
}

func (fsys *FileSystem) closeAll() {
	fsys.filesMu.Lock()
	open := make([]*descriptor, 0, len(fsys.files))
	for _, d := range fsys.files {
		open = append(open, d)
	}
	fsys.filesMu.Unlock()

	for _, d := range open {
		d.mu.Lock()
		if !d.closed {
			fsys.release(d)
		}
		d.mu.Unlock()
	}
}

func (fsys *FileSystem) lookup(path string) *descriptor {
	fsys.filesMu.Lock()
	defer fsys.filesMu.Unlock()
	return fsys.files[path]
}

func (fsys *FileSystem) openCount() int {
	fsys.filesMu.Lock()
	defer fsys.filesMu.Unlock()
	return len(fsys.files)
}

// IsOpen reports whether path is open.
func (fsys *FileSystem) IsOpen(path string) bool {
	return fsys.lookup(path) != nil
}

// ListOpenFiles returns the paths of all open files, sorted.
func (fsys *FileSystem) ListOpenFiles() []string {
	fsys.filesMu.Lock()
	out := make([]string, 0, len(fsys.files))
	for path := range fsys.files {
		out = append(out, path)
	}
	fsys.filesMu.Unlock()

	slices.Sort(out)
	return out
}

// acquire returns the locked descriptor of path, opening it with modes
// first if needed. Callers unlock d.mu.
func (fsys *FileSystem) acquire(op, path string, modes OpenMode) (*descriptor, error) {
	d := fsys.lookup(path)
	if d == nil {
		if err := fsys.OpenFile(path, modes); err != nil {
			return nil, err
		}
		if d = fsys.lookup(path); d == nil {
			return nil, newError(op, path, ErrNotFound, ErrNotOpen)
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, newError(op, path, ErrNotFound, ErrNotOpen)
	}
	return d, nil
}

// ReadFile reads up to len(buf) bytes from the read cursor of path,
// opening it for Read if it is not open. Reading stops at the first
// sentinel, so the count is less than len(buf) at the end of the file.
func (fsys *FileSystem) ReadFile(path string, buf []byte) (int, error) {
	start := time.Now()
	n, err := fsys.read(path, buf)
	fsys.metrics.RecordRead(n, time.Since(start), err)
	return n, err
}

// ReadAll reads up to length bytes from the read cursor of path.
func (fsys *FileSystem) ReadAll(path string, length int) ([]byte, error) {
	buf := make([]byte, max(length, 0))
	n, err := fsys.ReadFile(path, buf)
	return buf[:n], err
}

func (fsys *FileSystem) read(path string, buf []byte) (int, error) {
	const op = "read"

	d, err := fsys.acquire(op, path, Read)
	if err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	if d.modes&Read == 0 {
		return 0, newError(op, path, ErrPermissionDenied, ErrModeMismatch)
	}

	if len(buf) == 0 {
		return 0, nil
	}

	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	cur, ok := fsys.table.Advance(d.start, d.get/disk.BlockSize)
	if !ok {
		return 0, newError(op, path, ErrIO, ErrCorrupt)
	}
	off := d.get % disk.BlockSize

	n := 0
	for {
		block, err := fsys.readBlock(cur)
		if err != nil {
			d.get += n
			return n, newError(op, path, ErrIO, err)
		}
		content := block[off:]
		end := bytes.IndexByte(content, Sentinel)
		if end >= 0 {
			content = content[:end]
		}
		n += copy(buf[n:], content)
		if n == len(buf) || end >= 0 {
			break
		}
		next := fsys.table.Get(cur)
		if !next.IsNext() {
			d.get += n
			return n, newError(op, path, ErrIO, ErrCorrupt)
		}
		cur, off = next.Target(), 0
	}

	d.get += n
	return n, nil
}

// WriteFile appends data at the write cursor of path, opening it for
// Read|Write if it is not open. The chain grows one block at a time as
// blocks fill up; the sentinel always follows the last written byte.
//
// A failure part way leaves the blocks already written in place.
func (fsys *FileSystem) WriteFile(path string, data []byte) error {
	start := time.Now()
	err := fsys.write(path, data)
	fsys.metrics.RecordWrite(len(data), time.Since(start), err)
	return err
}

func (fsys *FileSystem) write(path string, data []byte) error {
	const op = "write"

	d, err := fsys.acquire(op, path, Read|Write)
	if err != nil {
		return err
	}
	defer d.mu.Unlock()

	if d.modes&Write == 0 {
		return newError(op, path, ErrPermissionDenied, ErrModeMismatch)
	}

	fsys.mu.RLock()
	cur, ok := fsys.table.Advance(d.start, d.put/disk.BlockSize)
	fsys.mu.RUnlock()
	if !ok {
		return newError(op, path, ErrIO, ErrCorrupt)
	}

	buf, err := fsys.readBlock(cur)
	if err != nil {
		return newError(op, path, ErrIO, err)
	}
	off := d.put % disk.BlockSize

	rest := data
	for {
		c := copy(buf[off:], rest)
		off += c
		rest = rest[c:]

		if off < disk.BlockSize {
			buf[off] = Sentinel
			clear(buf[off+1:])
			if err := fsys.writeBlock(cur, buf); err != nil {
				return newError(op, path, ErrIO, err)
			}
			break
		}

		next, err := fsys.extend(op, d, cur)
		if err != nil {
			return err
		}
		if err := fsys.writeBlock(cur, buf); err != nil {
			return newError(op, path, ErrIO, err)
		}
		cur, off = next, 0
		buf = make([]byte, disk.BlockSize)
	}

	d.put += len(data)

	return fsys.flush(op, path)
}

// extend returns the block following cur, allocating and linking a new
// one and bumping the record's block count when cur ends the chain. A new
// block holds a lone sentinel before it joins the chain, so a write that
// stops here leaves the file ending at that block boundary.
func (fsys *FileSystem) extend(op string, d *descriptor, cur int) (int, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if s := fsys.table.Get(cur); s.IsNext() {
		return s.Target(), nil
	}

	next, ok := fsys.table.Allocate()
	if !ok {
		return 0, newError(op, d.path, ErrFull, ErrNoSpace)
	}
	tail := make([]byte, disk.BlockSize)
	tail[0] = Sentinel
	if err := fsys.writeBlock(next, tail); err != nil {
		_ = fsys.table.Set(next, fat.Free)
		return 0, newError(op, d.path, ErrIO, err)
	}
	if err := fsys.table.Link(cur, next); err != nil {
		return 0, newError(op, d.path, ErrIO, err)
	}
	if err := fsys.persistTable(); err != nil {
		return 0, newError(op, d.path, ErrIO, err)
	}

	block, err := fsys.readBlock(d.dir)
	if err != nil {
		return 0, newError(op, d.path, ErrIO, err)
	}
	rec, err := dirent.Get(block, d.slot)
	if err != nil || int(rec.Start) != d.start {
		return 0, newError(op, d.path, ErrIO, ErrCorrupt)
	}
	d.count++
	rec.Count = uint8(d.count)
	if err := dirent.Put(block, d.slot, rec); err != nil {
		return 0, newError(op, d.path, ErrIO, err)
	}
	if err := fsys.writeBlock(d.dir, block); err != nil {
		return 0, newError(op, d.path, ErrIO, err)
	}

	return next, nil
}

// Reader returns an io.Reader over the read cursor of path.
func (fsys *FileSystem) Reader(path string) io.Reader {
	return &fileReader{fsys: fsys, path: path}
}

// Writer returns an io.Writer appending at the write cursor of path.
func (fsys *FileSystem) Writer(path string) io.Writer {
	return &fileWriter{fsys: fsys, path: path}
}

type fileReader struct {
	fsys *FileSystem
	path string
}

func (r *fileReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.fsys.ReadFile(r.path, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

type fileWriter struct {
	fsys *FileSystem
	path string
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if err := w.fsys.WriteFile(w.path, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
