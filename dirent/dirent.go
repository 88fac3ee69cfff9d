package dirent

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	// RecordSize is the encoded size of one record.
	RecordSize = 8
	// BlockSize is the size of a directory block.
	BlockSize = 64
	// PerBlock is the number of records in a directory block.
	PerBlock = BlockSize / RecordSize
	// MaxNameLen is the longest name a record can hold.
	MaxNameLen = 4

	nameField = 5
	// Terminator ends short names and marks empty records.
	Terminator = '$'
	// Separator splits path components and is never part of a name.
	Separator = '/'
)

// Attr is the attribute byte of a record.
type Attr uint8

const (
	ReadOnly  Attr = 1
	System    Attr = 2
	File      Attr = 4
	Directory Attr = 8
)

// Has reports whether every bit of flag is set.
func (a Attr) Has(flag Attr) bool {
	return a&flag == flag
}

func (a Attr) String() string {
	var parts []string
	for _, f := range []struct {
		bit  Attr
		name string
	}{{ReadOnly, "ro"}, {System, "sys"}, {File, "file"}, {Directory, "dir"}} {
		if a.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}

var (
	ErrNameEmpty   = errors.New("dirent: empty name")
	ErrNameTooLong = errors.New("dirent: name longer than 4 bytes")
	ErrNameInvalid = errors.New("dirent: name contains '$' or '/'")
	ErrSlot        = errors.New("dirent: record index out of range")
)

// ValidName checks that name fits a record.
func ValidName(name string) error {
	switch {
	case name == "":
		return ErrNameEmpty
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	case strings.ContainsAny(name, string([]byte{Terminator, Separator})):
		return fmt.Errorf("%w: %q", ErrNameInvalid, name)
	}
	return nil
}

// Record is one decoded directory record.
type Record struct {
	Name  string
	Attr  Attr
	Start uint8
	Count uint8
}

// Encode writes r into dst[:RecordSize].
func (r Record) Encode(dst []byte) {
	_ = dst[RecordSize-1]
	n := copy(dst[:MaxNameLen], r.Name)
	for i := n; i < nameField; i++ {
		dst[i] = 0
	}
	if n < nameField {
		dst[n] = Terminator
	}
	dst[5] = byte(r.Attr)
	dst[6] = r.Start
	dst[7] = r.Count
}

// Decode reads a record from src[:RecordSize].
func Decode(src []byte) Record {
	_ = src[RecordSize-1]
	name := src[:nameField]
	if i := bytes.IndexByte(name, Terminator); i >= 0 {
		name = name[:i]
	}
	return Record{
		Name:  string(name),
		Attr:  Attr(src[5]),
		Start: src[6],
		Count: src[7],
	}
}

// IsEmpty reports whether the encoded record in src is unused.
func IsEmpty(src []byte) bool {
	return len(src) == 0 || src[0] == Terminator
}
