package toyfat

import (
	"errors"
	"fmt"

	"github.com/hupe1980/toyfat/dirent"
)

// Error kinds. Every error returned by a FileSystem operation matches
// exactly one of them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidAttributes = errors.New("invalid attributes")
	ErrFull              = errors.New("full")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrIO                = errors.New("i/o failure")
)

// Error details, carried in PathError.Err next to the kind.
var (
	ErrNotAbsolute      = errors.New("path is not absolute")
	ErrNotDirectory     = errors.New("not a directory")
	ErrIsDirectory      = errors.New("is a directory")
	ErrNotEmpty         = errors.New("directory not empty")
	ErrNotOpen          = errors.New("file not open")
	ErrFileOpen         = errors.New("file is open")
	ErrDirectoryFull    = errors.New("directory full")
	ErrNoSpace          = errors.New("no free block")
	ErrTooManyOpenFiles = errors.New("too many open files")
	ErrReadOnly         = errors.New("file is read-only")
	ErrModeMismatch     = errors.New("file not opened in this mode")
	ErrCorrupt          = errors.New("corrupt file chain")
)

var kinds = []error{
	ErrNotFound,
	ErrAlreadyExists,
	ErrInvalidName,
	ErrInvalidAttributes,
	ErrFull,
	ErrPermissionDenied,
	ErrIO,
}

// PathError records a failed operation on a path.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the detail to errors.Is and errors.As.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of err, or nil if err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func newError(op, path string, kind, detail error) error {
	return &PathError{Op: op, Path: path, Kind: kind, Err: detail}
}

// translateError maps errors of the lower layers onto a kind.
func translateError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	switch {
	case errors.Is(err, dirent.ErrNameEmpty),
		errors.Is(err, dirent.ErrNameTooLong),
		errors.Is(err, dirent.ErrNameInvalid):
		return newError(op, path, ErrInvalidName, err)
	}
	return newError(op, path, ErrIO, err)
}
