// Package fat implements the in-memory mirror of the file allocation table.
//
// The table holds one signed byte per block. A slot is either Free,
// Terminal (last block of a chain), Reserved (never allocated) or the index
// of the next block in the chain. Free slots are additionally tracked in a
// roaring bitmap so that first-fit allocation is a bitmap minimum.
//
// A Table is not safe for concurrent use; callers serialise access.
package fat
