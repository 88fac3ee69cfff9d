// Package snapshot serialises toyfat disk images into compressed,
// checksummed snapshots and stores them in a blobstore.
//
// A snapshot is a fixed 52-byte header followed by the encoded image:
//
//	offset size field
//	0      4    magic "TFAT"
//	4      2    format version
//	6      1    codec (0 none, 1 lz4, 2 zstd)
//	7      1    reserved
//	8      4    raw image length
//	12     4    payload length
//	16     4    CRC32 (IEEE) of the payload
//	20     32   BLAKE3-256 digest of the raw image
//
// All integers are little endian. Import verifies the payload CRC before
// decoding and the BLAKE3 digest after, so both transport corruption and
// codec bugs are caught.
//
// Archive stores snapshots under content-addressed names derived from the
// digest, so saving an unchanged disk twice uploads once.
package snapshot
