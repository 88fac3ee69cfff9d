package toyfat

import (
	"strings"

	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/disk"
)

// node is one record on the path from the root. parent indexes the arena;
// the root is its own parent.
type node struct {
	rec    dirent.Record
	parent int
	dir    int // block holding the record, -1 for the root
	slot   int
}

func rootNode() node {
	return node{
		rec: dirent.Record{
			Attr:  Directory | System,
			Start: RootBlock,
			Count: 1,
		},
		parent: 0,
		dir:    -1,
		slot:   -1,
	}
}

// Entry is a resolved directory or file. It is a snapshot taken at lookup
// time and is not updated by later operations.
type Entry struct {
	fsys  *FileSystem
	arena []node
	idx   int
}

func (e *Entry) node() node {
	return e.arena[e.idx]
}

// child appends n below e without sharing the tail of e's arena.
func (e *Entry) child(n node) *Entry {
	n.parent = e.idx
	arena := append(e.arena[:e.idx+1:e.idx+1], n)
	return &Entry{fsys: e.fsys, arena: arena, idx: len(arena) - 1}
}

// IsRoot reports whether e is the root directory.
func (e *Entry) IsRoot() bool {
	return e.idx == 0
}

// Name returns the entry name; the root is named "/".
func (e *Entry) Name() string {
	if e.IsRoot() {
		return "/"
	}
	return e.node().rec.Name
}

// FullPath returns the absolute path of e.
func (e *Entry) FullPath() string {
	if e.IsRoot() {
		return "/"
	}
	var names []string
	for i := e.idx; i != 0; i = e.arena[i].parent {
		names = append(names, e.arena[i].rec.Name)
	}
	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(names[i])
	}
	return sb.String()
}

func (e *Entry) Attributes() Attributes { return e.node().rec.Attr }
func (e *Entry) IsDir() bool            { return e.Attributes().Has(Directory) }
func (e *Entry) IsFile() bool           { return e.Attributes().Has(File) }
func (e *Entry) IsReadOnly() bool       { return e.Attributes().Has(ReadOnly) }
func (e *Entry) IsSystem() bool         { return e.Attributes().Has(System) }
func (e *Entry) StartBlock() int        { return int(e.node().rec.Start) }
func (e *Entry) BlockCount() int        { return int(e.node().rec.Count) }

// Size returns the allocated size in bytes.
func (e *Entry) Size() int {
	return e.BlockCount() * disk.BlockSize
}

// Parent returns the directory holding e. The root is its own parent.
func (e *Entry) Parent() *Entry {
	p := e.node().parent
	return &Entry{fsys: e.fsys, arena: e.arena[:p+1], idx: p}
}

// Children lists the entries of a directory in slot order.
func (e *Entry) Children() ([]*Entry, error) {
	const op = "list"

	if !e.IsDir() {
		return nil, newError(op, e.FullPath(), ErrNotFound, ErrNotDirectory)
	}

	e.fsys.mu.RLock()
	block, err := e.fsys.readBlock(e.StartBlock())
	e.fsys.mu.RUnlock()
	if err != nil {
		return nil, newError(op, e.FullPath(), ErrIO, err)
	}

	slots := dirent.Records(block)
	out := make([]*Entry, 0, len(slots))
	for _, s := range slots {
		out = append(out, e.child(node{rec: s.Record, dir: e.StartBlock(), slot: s.Index}))
	}
	return out, nil
}

// FindChild looks up a direct child of a directory by name.
func (e *Entry) FindChild(name string) (*Entry, error) {
	const op = "lookup"

	path := joinPath(e.FullPath(), name)
	if !e.IsDir() {
		return nil, newError(op, path, ErrNotFound, ErrNotDirectory)
	}

	e.fsys.mu.RLock()
	block, err := e.fsys.readBlock(e.StartBlock())
	e.fsys.mu.RUnlock()
	if err != nil {
		return nil, newError(op, path, ErrIO, err)
	}

	slot, rec, ok := dirent.Find(block, name)
	if !ok {
		return nil, newError(op, path, ErrNotFound, nil)
	}
	return e.child(node{rec: rec, dir: e.StartBlock(), slot: slot}), nil
}

func (e *Entry) String() string {
	return e.FullPath()
}
