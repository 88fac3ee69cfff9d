// Package fs provides host filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open host file with positioned read/write and sync
//   - [FileSystem]: host filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Block devices and the local blob store use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR, 0)
//
// Tests can inject [FaultyFS] to simulate a failing backing store:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("disk.img", fs.Fault{FailAfterBytes: 128})
//	dev := disk.Open(path, disk.WithFileSystem(ffs))
//
// # Design Notes
//
// This package does NOT take context.Context parameters. Host file
// operations on a few kilobytes are non-interruptible at the syscall level.
package fs
