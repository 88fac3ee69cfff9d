// Package disk provides the simulated block device underneath toyfat.
//
// A device exposes a host-backed byte range as NumBlocks addressable blocks
// of BlockSize bytes each. The geometry is fixed:
//
//	BlockSize = 64
//	NumBlocks = 128
//	Capacity  = 8192 bytes
//
// # Implementations
//
//   - [File]: a host file, created zero-filled with [Create] and attached with [Open]
//   - [Memory]: an in-memory device for tests and tools
//   - [Throttled]: wraps any device with an IO budget from a resource.Controller
//
// [Open] never fails outright; attach problems are observed through
// [File.Valid] (and [File.Err] for the cause), which also guards against
// foreign or truncated files by checking the exact size.
//
// [MapImage] gives a read-only, memory-mapped view of a store on disk for
// inspection and snapshot export without attaching to it.
//
// Devices do not serialise callers; the filesystem engine does.
package disk
