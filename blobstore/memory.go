package blobstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps blobs in process memory. Archives built on it live as
// long as the process, which suits tests and one-shot tools.
//
// Stored objects are immutable: Put and Create replace an object with a
// private copy, so open blobs keep reading the version they were opened on.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	writes  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Open opens a blob for reading.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &memoryBlob{data: data, r: bytes.NewReader(data)}, nil
}

// Create returns a blob that is stored under name on Close.
func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memoryWriter{store: m, name: name}, nil
}

// Put stores a copy of data under name.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.store(name, bytes.Clone(data))
	return nil
}

func (m *MemoryStore) store(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[name] = data
	m.writes++
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, name)
	return nil
}

// List returns the sorted names starting with prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Writes returns how many objects have been stored through Put or Create.
// Archives use it in tests to show that an unchanged image is not stored
// twice.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Usage returns the number of stored objects and their total size.
func (m *MemoryStore) Usage() (objects int, size int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, data := range m.objects {
		size += int64(len(data))
	}
	return len(m.objects), size
}

type memoryBlob struct {
	data []byte
	r    *bytes.Reader
}

func (b *memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.EOF
	}
	return b.r.ReadAt(p, off)
}

func (b *memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return sectionReader(b.r, b.Size(), off, length), nil
}

func (b *memoryBlob) Size() int64 {
	return b.r.Size()
}

func (b *memoryBlob) Bytes() ([]byte, error) {
	return b.data, nil
}

func (b *memoryBlob) Close() error {
	return nil
}

type memoryWriter struct {
	store  *MemoryStore
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

// Sync is a no-op; nothing is visible before Close.
func (w *memoryWriter) Sync() error {
	return nil
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true
	// The buffer is not touched after Close, so it becomes the object.
	w.store.store(w.name, w.buf.Bytes())
	return nil
}
