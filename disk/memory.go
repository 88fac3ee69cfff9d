package disk

import "sync"

// Memory is a Device held entirely in memory.
type Memory struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

var _ Device = (*Memory)(nil)

// NewMemory returns a zero-filled in-memory device.
func NewMemory() *Memory {
	return &Memory{data: make([]byte, Capacity)}
}

// NewMemoryFrom returns an in-memory device holding a copy of img.
// It returns ErrInvalid unless img is exactly Capacity bytes.
func NewMemoryFrom(img []byte) (*Memory, error) {
	if len(img) != Capacity {
		return nil, ErrInvalid
	}
	m := NewMemory()
	copy(m.data, img)
	return m, nil
}

func (m *Memory) Read(buf []byte, block, length int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	off, length, err := readSpan(buf, block, length)
	if err != nil {
		return 0, err
	}
	return copy(buf[:length], m.data[off:]), nil
}

func (m *Memory) Write(buf []byte, block, length int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	off, err := writeSpan(buf, block, length)
	if err != nil {
		return 0, err
	}
	return copy(m.data[off:], buf[:length]), nil
}

// Sync is a no-op.
func (m *Memory) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Valid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed && len(m.data) == Capacity
}

// Bytes returns a copy of the device contents.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
