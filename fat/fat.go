package fat

import (
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Slot is the persisted value of one table entry.
type Slot int8

const (
	// Free marks an unallocated block.
	Free Slot = 0
	// Terminal marks the last block of a chain.
	Terminal Slot = -1
	// Reserved marks a block that is never handed out.
	Reserved Slot = -2
)

// Next returns the slot pointing at block i.
func Next(i int) Slot {
	return Slot(i)
}

// IsNext reports whether s points at another block.
func (s Slot) IsNext() bool {
	return s > 0
}

// Target returns the block s points at. Only meaningful when IsNext.
func (s Slot) Target() int {
	return int(s)
}

func (s Slot) String() string {
	switch s {
	case Free:
		return "free"
	case Terminal:
		return "terminal"
	case Reserved:
		return "reserved"
	}
	if s.IsNext() {
		return fmt.Sprintf("next(%d)", int(s))
	}
	return fmt.Sprintf("invalid(%d)", int(s))
}

var (
	// ErrOutOfRange is returned for block indices outside the table.
	ErrOutOfRange = errors.New("fat: block out of range")
	// ErrShortTable is returned by Load when the raw image is too small.
	ErrShortTable = errors.New("fat: short table image")
)

// Table is the allocation table mirror.
type Table struct {
	slots []Slot
	free  *roaring.Bitmap
}

// New returns a table of n blocks, all Free.
func New(n int) *Table {
	t := &Table{
		slots: make([]Slot, n),
		free:  roaring.New(),
	}
	t.free.AddRange(0, uint64(n))
	return t
}

// Len returns the number of blocks covered by the table.
func (t *Table) Len() int {
	return len(t.slots)
}

// Load replaces the mirror with the first Len bytes of raw.
func (t *Table) Load(raw []byte) error {
	if len(raw) < len(t.slots) {
		return fmt.Errorf("%w: %d bytes, want %d", ErrShortTable, len(raw), len(t.slots))
	}
	t.free.Clear()
	for i := range t.slots {
		t.slots[i] = Slot(int8(raw[i]))
		if t.slots[i] == Free {
			t.free.Add(uint32(i))
		}
	}
	return nil
}

// Bytes returns the persisted image of the table.
func (t *Table) Bytes() []byte {
	out := make([]byte, len(t.slots))
	for i, s := range t.slots {
		out[i] = byte(s)
	}
	return out
}

// Format marks blocks 0..systemBlocks-1 Terminal, the given reserved blocks
// Reserved and everything else Free.
func (t *Table) Format(systemBlocks int, reserved ...int) {
	t.free.Clear()
	for i := range t.slots {
		t.slots[i] = Free
	}
	for i := 0; i < systemBlocks && i < len(t.slots); i++ {
		t.slots[i] = Terminal
	}
	for _, r := range reserved {
		if t.inRange(r) {
			t.slots[r] = Reserved
		}
	}
	for i, s := range t.slots {
		if s == Free {
			t.free.Add(uint32(i))
		}
	}
}

func (t *Table) inRange(i int) bool {
	return i >= 0 && i < len(t.slots)
}

// Get returns the slot of block i. Indices outside the table read as Reserved.
func (t *Table) Get(i int) Slot {
	if !t.inRange(i) {
		return Reserved
	}
	return t.slots[i]
}

// Set stores s for block i.
func (t *Table) Set(i int, s Slot) error {
	if !t.inRange(i) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	t.slots[i] = s
	if s == Free {
		t.free.Add(uint32(i))
	} else {
		t.free.Remove(uint32(i))
	}
	return nil
}

// Valid reports whether s is a legal slot value for this table.
func (t *Table) Valid(s Slot) bool {
	switch {
	case s == Free, s == Terminal, s == Reserved:
		return true
	case s.IsNext():
		return s.Target() < len(t.slots)
	}
	return false
}

// NextFree returns the lowest free block.
func (t *Table) NextFree() (int, bool) {
	if t.free.IsEmpty() {
		return 0, false
	}
	return int(t.free.Minimum()), true
}

// Allocate claims the lowest free block and marks it Terminal.
func (t *Table) Allocate() (int, bool) {
	b, ok := t.NextFree()
	if !ok {
		return 0, false
	}
	t.slots[b] = Terminal
	t.free.Remove(uint32(b))
	return b, true
}

// Link makes from point at to and marks to Terminal.
func (t *Table) Link(from, to int) error {
	if !t.inRange(from) || !t.inRange(to) || to == 0 {
		return fmt.Errorf("%w: link %d -> %d", ErrOutOfRange, from, to)
	}
	if err := t.Set(from, Next(to)); err != nil {
		return err
	}
	return t.Set(to, Terminal)
}

// Advance follows n hops from start. It returns false if the chain ends
// (or leaves the table) before n hops.
func (t *Table) Advance(start, n int) (int, bool) {
	b := start
	for range n {
		s := t.Get(b)
		if !s.IsNext() || !t.inRange(s.Target()) {
			return b, false
		}
		b = s.Target()
	}
	return b, true
}

// Last walks from start to the end of its chain and returns the last block
// and the number of hops taken.
func (t *Table) Last(start int) (block, hops int) {
	block = start
	for hops < len(t.slots) {
		s := t.Get(block)
		if !s.IsNext() || !t.inRange(s.Target()) {
			break
		}
		block = s.Target()
		hops++
	}
	return block, hops
}

// Walk yields the blocks of the chain starting at start, in order.
// The walk stops after Len blocks so that a cyclic chain terminates.
func (t *Table) Walk(start int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !t.inRange(start) {
			return
		}
		b := start
		for range len(t.slots) {
			if !yield(b) {
				return
			}
			s := t.slots[b]
			if !s.IsNext() || !t.inRange(s.Target()) {
				return
			}
			b = s.Target()
		}
	}
}

// Chain returns the blocks of the chain starting at start.
func (t *Table) Chain(start int) []int {
	var out []int
	for b := range t.Walk(start) {
		out = append(out, b)
	}
	return out
}

// FreeChain frees every block of the chain starting at start and returns
// the number of blocks freed. Reserved blocks are never freed.
func (t *Table) FreeChain(start int) int {
	n := 0
	for _, b := range t.Chain(start) {
		if t.slots[b] == Reserved || t.slots[b] == Free {
			break
		}
		t.slots[b] = Free
		t.free.Add(uint32(b))
		n++
	}
	return n
}

// FreeCount returns the number of free blocks.
func (t *Table) FreeCount() int {
	return int(t.free.GetCardinality())
}

// FreeSet returns a copy of the free block set.
func (t *Table) FreeSet() *roaring.Bitmap {
	return t.free.Clone()
}
