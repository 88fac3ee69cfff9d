package toyfat

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/fat"
)

// CreateDirectory creates an empty directory. A path without a separator
// is created in the root directory.
func (fsys *FileSystem) CreateDirectory(path string) error {
	_, err := fsys.create("mkdir", path, Directory, true)
	return err
}

// CreateFile creates an empty file and opens it for Read|Write. attrs must
// include File and exclude ReadOnly and Directory. A failure to open the
// new file is logged and does not fail the creation.
func (fsys *FileSystem) CreateFile(path string, attrs Attributes) error {
	full, err := fsys.create("create", path, attrs, false)
	if err != nil {
		return err
	}
	if err := fsys.OpenFile(full, Read|Write); err != nil {
		fsys.logger.Warn("cannot open new file", "path", full, "error", err)
	}
	return nil
}

func (fsys *FileSystem) create(op, path string, attrs Attributes, isDir bool) (full string, err error) {
	start := time.Now()
	block := -1
	defer func() {
		fsys.metrics.RecordCreate(time.Since(start), err)
		fsys.logger.LogCreate(context.Background(), path, block, err)
	}()

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if _, rerr := fsys.resolveLocked(op, path); rerr == nil {
		return "", newError(op, path, ErrAlreadyExists, nil)
	} else if KindOf(rerr) == ErrIO {
		return "", rerr
	}

	// An empty component never resolves, so it cannot name a parent.
	if strings.Contains(path, "//") {
		return "", newError(op, path, ErrNotFound, nil)
	}

	parentPath, leaf := splitPath(path)
	full = joinPath(parentPath, leaf)

	if verr := dirent.ValidName(leaf); verr != nil {
		return "", newError(op, path, ErrInvalidName, verr)
	}

	parent, perr := fsys.resolveLocked(op, parentPath)
	if perr != nil {
		return "", perr
	}
	if !parent.IsDir() {
		return "", newError(op, path, ErrNotFound, ErrNotDirectory)
	}

	dir := parent.StartBlock()
	pblock, rerr := fsys.readBlock(dir)
	if rerr != nil {
		return "", newError(op, path, ErrIO, rerr)
	}
	slot, ok := dirent.FirstFree(pblock)
	if !ok {
		return "", newError(op, path, ErrFull, ErrDirectoryFull)
	}

	if !isDir && (!attrs.Has(File) || attrs&(ReadOnly|Directory) != 0) {
		return "", newError(op, path, ErrInvalidAttributes, nil)
	}

	// A relative path skips the first lookup.
	if _, _, dup := dirent.Find(pblock, leaf); dup {
		return "", newError(op, full, ErrAlreadyExists, nil)
	}

	b, ok := fsys.table.Allocate()
	if !ok {
		return "", newError(op, path, ErrFull, ErrNoSpace)
	}

	var init []byte
	rec := dirent.Record{Name: leaf, Attr: attrs, Start: uint8(b)}
	if isDir {
		init = dirent.EmptyBlock()
	} else {
		init = make([]byte, disk.BlockSize)
		init[0] = Sentinel
		rec.Count = 1
	}

	if werr := fsys.writeBlock(b, init); werr != nil {
		_ = fsys.table.Set(b, fat.Free)
		return "", newError(op, path, ErrIO, werr)
	}
	if perr := dirent.Put(pblock, slot, rec); perr != nil {
		_ = fsys.table.Set(b, fat.Free)
		return "", newError(op, path, ErrIO, perr)
	}
	if werr := fsys.writeBlock(dir, pblock); werr != nil {
		_ = fsys.table.Set(b, fat.Free)
		return "", newError(op, path, ErrIO, werr)
	}
	if werr := fsys.persistTable(); werr != nil {
		return "", newError(op, path, ErrIO, werr)
	}

	block = b
	return full, fsys.flush(op, path)
}

// SetAttributes replaces the attributes of a closed file. Only ReadOnly,
// System and File are kept; File cannot be cleared.
func (fsys *FileSystem) SetAttributes(path string, attrs Attributes) error {
	const op = "chattr"

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	e, err := fsys.resolveLocked(op, path)
	if err != nil {
		return err
	}
	if e.IsRoot() || e.IsDir() {
		return newError(op, path, ErrPermissionDenied, ErrIsDirectory)
	}
	if fsys.IsOpen(path) {
		return newError(op, path, ErrPermissionDenied, ErrFileOpen)
	}

	attrs &= ReadOnly | System | File
	if !attrs.Has(File) {
		return newError(op, path, ErrInvalidAttributes, nil)
	}

	n := e.node()
	block, err := fsys.readBlock(n.dir)
	if err != nil {
		return newError(op, path, ErrIO, err)
	}
	rec, err := dirent.Get(block, n.slot)
	if err != nil {
		return newError(op, path, ErrIO, err)
	}
	rec.Attr = attrs
	if err := dirent.Put(block, n.slot, rec); err != nil {
		return newError(op, path, ErrIO, err)
	}
	if err := fsys.writeBlock(n.dir, block); err != nil {
		return newError(op, path, ErrIO, err)
	}

	fsys.logger.Debug("attributes changed", "path", path, "attributes", attrs)

	return fsys.flush(op, path)
}

// DeleteEntry removes a closed file or an empty directory and frees its
// blocks. The root cannot be deleted.
func (fsys *FileSystem) DeleteEntry(path string) (err error) {
	const op = "delete"

	start := time.Now()
	freed := 0
	defer func() {
		fsys.metrics.RecordDelete(time.Since(start), err)
		fsys.logger.LogDelete(context.Background(), path, freed, err)
	}()

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	e, err := fsys.resolveLocked(op, path)
	if err != nil {
		return err
	}
	if e.IsRoot() {
		return newError(op, path, ErrPermissionDenied, nil)
	}
	if fsys.IsOpen(path) {
		return newError(op, path, ErrPermissionDenied, ErrFileOpen)
	}
	if e.IsDir() {
		block, rerr := fsys.readBlock(e.StartBlock())
		if rerr != nil {
			return newError(op, path, ErrIO, rerr)
		}
		if dirent.Count(block) > 0 {
			return newError(op, path, ErrPermissionDenied, ErrNotEmpty)
		}
	}

	n := e.node()
	pblock, err := fsys.readBlock(n.dir)
	if err != nil {
		return newError(op, path, ErrIO, err)
	}
	if err := dirent.Clear(pblock, n.slot); err != nil {
		return newError(op, path, ErrIO, err)
	}
	if err := fsys.writeBlock(n.dir, pblock); err != nil {
		return newError(op, path, ErrIO, err)
	}

	freed = fsys.table.FreeChain(e.StartBlock())
	if err := fsys.persistTable(); err != nil {
		return newError(op, path, ErrIO, err)
	}

	return fsys.flush(op, path)
}
