// Package dirent encodes directory records.
//
// A directory occupies exactly one block of 64 bytes holding 8 records of
// 8 bytes each:
//
//	byte 0..4  name, terminated by '$' when shorter than 5 bytes
//	byte 5     attributes
//	byte 6     start block
//	byte 7     block count
//
// A record is empty when its first byte is '$'.
package dirent
