package dirent

import "fmt"

// Slot is a non-empty record together with its index in the block.
type Slot struct {
	Index int
	Record
}

// EmptyBlock returns a directory block with every record empty.
func EmptyBlock() []byte {
	b := make([]byte, BlockSize)
	for i := range PerBlock {
		b[i*RecordSize] = Terminator
	}
	return b
}

func record(block []byte, i int) []byte {
	return block[i*RecordSize : (i+1)*RecordSize]
}

// Records returns the non-empty records of block in slot order.
func Records(block []byte) []Slot {
	var out []Slot
	for i := range PerBlock {
		r := record(block, i)
		if IsEmpty(r) {
			continue
		}
		out = append(out, Slot{Index: i, Record: Decode(r)})
	}
	return out
}

// FirstFree returns the index of the first empty record.
func FirstFree(block []byte) (int, bool) {
	for i := range PerBlock {
		if IsEmpty(record(block, i)) {
			return i, true
		}
	}
	return 0, false
}

// Find returns the record named name.
func Find(block []byte, name string) (int, Record, bool) {
	for _, s := range Records(block) {
		if s.Name == name {
			return s.Index, s.Record, true
		}
	}
	return 0, Record{}, false
}

// Get decodes the record at index i, empty or not.
func Get(block []byte, i int) (Record, error) {
	if i < 0 || i >= PerBlock {
		return Record{}, fmt.Errorf("%w: %d", ErrSlot, i)
	}
	return Decode(record(block, i)), nil
}

// Put stores r at index i.
func Put(block []byte, i int, r Record) error {
	if i < 0 || i >= PerBlock {
		return fmt.Errorf("%w: %d", ErrSlot, i)
	}
	r.Encode(record(block, i))
	return nil
}

// Clear empties the record at index i.
func Clear(block []byte, i int) error {
	if i < 0 || i >= PerBlock {
		return fmt.Errorf("%w: %d", ErrSlot, i)
	}
	r := record(block, i)
	clear(r)
	r[0] = Terminator
	return nil
}

// Count returns the number of non-empty records in block.
func Count(block []byte) int {
	n := 0
	for i := range PerBlock {
		if !IsEmpty(record(block, i)) {
			n++
		}
	}
	return n
}
