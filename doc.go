// Package toyfat implements a small FAT filesystem on a fixed-size block
// device.
//
// A device holds 128 blocks of 64 bytes. Blocks 0 and 1 hold the allocation
// table (one signed byte per block), block 2 holds the root directory and
// blocks 23 and 49 are permanently reserved. A directory is a single block
// of eight 8-byte records; a file is a chain of blocks whose content ends at
// a '#' sentinel.
//
// # Quick Start
//
//	_ = disk.Create("toy.disk")
//	dev := disk.Open("toy.disk")
//	fsys, _ := toyfat.New(dev)
//	defer fsys.Close()
//
//	_ = fsys.Format()
//	_ = fsys.CreateDirectory("/docs")
//	_ = fsys.CreateFile("/docs/todo", toyfat.File) // created and opened
//	_ = fsys.WriteFile("/docs/todo", []byte("hello"))
//	_ = fsys.CloseFile("/docs/todo")
//
//	data, _ := fsys.ReadAll("/docs/todo", 64) // "hello"
//
// # Errors
//
// Every operation returns nil or a *PathError whose Kind is one of
// ErrNotFound, ErrAlreadyExists, ErrInvalidName, ErrInvalidAttributes,
// ErrFull, ErrPermissionDenied or ErrIO:
//
//	if errors.Is(err, toyfat.ErrFull) { ... }
//	switch toyfat.KindOf(err) { ... }
//
// # Durability
//
// Every successful mutation is flushed to the device before it returns.
// A write that fails part way is not rolled back; Check reports the damage.
package toyfat
