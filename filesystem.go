package toyfat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/fat"
	"github.com/hupe1980/toyfat/resource"
)

const (
	// MaxOpenFiles is the number of files that may be open at once.
	MaxOpenFiles = resource.DefaultMaxOpenFiles

	// Sentinel marks the end of a file's content inside its last block.
	Sentinel = '#'

	tableBlocks = disk.NumBlocks / disk.BlockSize
	tableSize   = disk.NumBlocks

	// RootBlock is the block holding the root directory.
	RootBlock = tableBlocks
)

var reservedBlocks = [...]int{23, 49}

// Attributes is the attribute bitmask of an entry.
type Attributes = dirent.Attr

const (
	ReadOnly  = dirent.ReadOnly
	System    = dirent.System
	File      = dirent.File
	Directory = dirent.Directory
)

// OpenMode selects how a file is opened.
type OpenMode uint8

const (
	Read OpenMode = 1 << iota
	Write
)

func (m OpenMode) String() string {
	switch m {
	case Read:
		return "r"
	case Write:
		return "w"
	case Read | Write:
		return "rw"
	}
	return "-"
}

// FileSystem is a FAT filesystem on a disk.Device.
//
// It is safe for concurrent use. resetMu keeps files from being opened
// while Format or a restore replaces the contents; mu guards the allocation
// table mirror and every directory block; filesMu guards the open-file
// table; each open file serialises its own cursors. Locks are taken in the
// order resetMu, descriptor, mu, filesMu.
type FileSystem struct {
	dev disk.Device

	resetMu sync.RWMutex

	mu    sync.RWMutex
	table *fat.Table

	filesMu sync.Mutex
	files   map[string]*descriptor

	closed atomic.Bool

	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
}

// New attaches a filesystem to dev and loads its allocation table.
//
// A table that cannot be loaded is logged and leaves the mirror empty; call
// Format to initialise a fresh device. New fails only for a missing or
// invalid device.
func New(dev disk.Device, optFns ...Option) (*FileSystem, error) {
	if dev == nil || !dev.Valid() {
		return nil, newError("attach", "", ErrIO, disk.ErrInvalid)
	}

	o := applyOptions(optFns)

	fsys := &FileSystem{
		dev:       dev,
		table:     fat.New(tableSize),
		files:     make(map[string]*descriptor),
		logger:    o.logger,
		metrics:   o.metricsCollector,
		resources: o.resources,
	}

	if err := fsys.loadTable(); err != nil {
		fsys.logger.Warn("cannot load allocation table", "error", err)
	}

	return fsys, nil
}

func (fsys *FileSystem) loadTable() error {
	raw := make([]byte, tableSize)
	n, err := fsys.dev.Read(raw, 0, tableSize)
	if err != nil {
		return err
	}
	if n != tableSize {
		return io.ErrUnexpectedEOF
	}
	return fsys.table.Load(raw)
}

// persistTable writes the table mirror to its blocks. Callers hold mu.
func (fsys *FileSystem) persistTable() error {
	raw := fsys.table.Bytes()
	n, err := fsys.dev.Write(raw, 0, len(raw))
	if err == nil && n != len(raw) {
		err = io.ErrShortWrite
	}
	if err != nil {
		fsys.logger.LogIO(context.Background(), "write table", 0, err)
	}
	return err
}

func (fsys *FileSystem) readBlock(block int) ([]byte, error) {
	buf := make([]byte, disk.BlockSize)
	n, err := fsys.dev.Read(buf, block, disk.BlockSize)
	if err == nil && n != disk.BlockSize {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		fsys.logger.LogIO(context.Background(), "read", block, err)
		return nil, err
	}
	return buf, nil
}

func (fsys *FileSystem) writeBlock(block int, buf []byte) error {
	n, err := fsys.dev.Write(buf, block, disk.BlockSize)
	if err == nil && n != disk.BlockSize {
		err = io.ErrShortWrite
	}
	if err != nil {
		fsys.logger.LogIO(context.Background(), "write", block, err)
	}
	return err
}

// Format initialises an empty filesystem: table and root blocks in use,
// the reserved blocks marked, everything else free, the root directory
// empty. Every open file is closed first.
func (fsys *FileSystem) Format() error {
	const op = "format"

	fsys.resetMu.Lock()
	defer fsys.resetMu.Unlock()

	fsys.closeAll()

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	fsys.table.Format(RootBlock+1, reservedBlocks[:]...)
	if err := fsys.persistTable(); err != nil {
		return newError(op, "/", ErrIO, err)
	}
	if err := fsys.writeBlock(RootBlock, dirent.EmptyBlock()); err != nil {
		return newError(op, "/", ErrIO, err)
	}

	fsys.logger.Info("filesystem formatted", "free_blocks", fsys.table.FreeCount())

	return fsys.flush(op, "/")
}

// Flush forces every prior write to the device.
func (fsys *FileSystem) Flush() error {
	return fsys.flush("flush", "")
}

func (fsys *FileSystem) flush(op, path string) error {
	if err := fsys.dev.Sync(); err != nil {
		fsys.logger.LogIO(context.Background(), "sync", -1, err)
		return newError(op, path, ErrIO, err)
	}
	return nil
}

// Close closes every open file, flushes and closes the device.
// It is idempotent.
func (fsys *FileSystem) Close() error {
	if fsys.closed.Swap(true) {
		return nil
	}
	fsys.closeAll()
	return errors.Join(fsys.Flush(), fsys.dev.Close())
}

// Stats summarises block usage.
type Stats struct {
	TotalBlocks    int
	FreeBlocks     int
	ReservedBlocks int
	UsedBlocks     int
	OpenFiles      int
}

// Stat returns the current block usage.
func (fsys *FileSystem) Stat() Stats {
	fsys.mu.RLock()
	s := Stats{
		TotalBlocks: fsys.table.Len(),
		FreeBlocks:  fsys.table.FreeCount(),
	}
	for i := range fsys.table.Len() {
		if fsys.table.Get(i) == fat.Reserved {
			s.ReservedBlocks++
		}
	}
	fsys.mu.RUnlock()

	s.UsedBlocks = s.TotalBlocks - s.FreeBlocks - s.ReservedBlocks
	s.OpenFiles = len(fsys.ListOpenFiles())
	return s
}

// Root returns the root directory.
func (fsys *FileSystem) Root() *Entry {
	return &Entry{fsys: fsys, arena: []node{rootNode()}}
}

// Resolve looks up an absolute path. Only canonical paths resolve:
// "/a/b" does, "/a//b" and "/a/" do not.
func (fsys *FileSystem) Resolve(path string) (*Entry, error) {
	fsys.mu.RLock()
	defer fsys.mu.RUnlock()
	return fsys.resolveLocked("resolve", path)
}

// Exists reports whether path resolves.
func (fsys *FileSystem) Exists(path string) bool {
	_, err := fsys.Resolve(path)
	return err == nil
}

func (fsys *FileSystem) resolveLocked(op, path string) (*Entry, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, newError(op, path, ErrNotFound, ErrNotAbsolute)
	}

	e := fsys.Root()
	if path == "/" {
		return e, nil
	}

	for _, name := range strings.Split(path[1:], "/") {
		if !e.IsDir() {
			return nil, newError(op, path, ErrNotFound, ErrNotDirectory)
		}
		dir := e.StartBlock()
		block, err := fsys.readBlock(dir)
		if err != nil {
			return nil, newError(op, path, ErrIO, err)
		}
		slot, rec, ok := dirent.Find(block, name)
		if !ok {
			return nil, newError(op, path, ErrNotFound, nil)
		}
		e = e.child(node{rec: rec, dir: dir, slot: slot})
	}

	return e, nil
}

// splitPath returns the parent path and the leaf name. A path without a
// separator lives in the root directory.
func splitPath(path string) (string, string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "/", path
	}
	parent := path[:i]
	if parent == "" {
		parent = "/"
	}
	return parent, path[i+1:]
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
