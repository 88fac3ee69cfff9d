package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic identifies snapshot files (ASCII: "TFAT").
	Magic uint32 = 0x54464154
	// Version is the current snapshot format version.
	Version uint16 = 1
	// HeaderSize is the encoded size of Header.
	HeaderSize = 52
)

var (
	ErrInvalidMagic   = errors.New("snapshot: invalid magic number")
	ErrInvalidVersion = errors.New("snapshot: unsupported version")
	ErrUnknownCodec   = errors.New("snapshot: unknown codec")
	ErrDigestMismatch = errors.New("snapshot: image digest mismatch")
	ErrCorrupt        = errors.New("snapshot: corrupt payload")
)

// Header describes one snapshot.
type Header struct {
	Magic         uint32
	Version       uint16
	Codec         Codec
	RawLength     uint32   // Length of the decoded image
	PayloadLength uint32   // Length of the encoded image following the header
	PayloadCRC    uint32   // CRC32 of the payload
	Digest        [32]byte // BLAKE3-256 of the decoded image
}

// MarshalBinary encodes h into its HeaderSize wire form.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.Codec)
	binary.LittleEndian.PutUint32(buf[8:], h.RawLength)
	binary.LittleEndian.PutUint32(buf[12:], h.PayloadLength)
	binary.LittleEndian.PutUint32(buf[16:], h.PayloadCRC)
	copy(buf[20:], h.Digest[:])
	return buf, nil
}

// UnmarshalBinary decodes and validates a header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header is %d bytes", ErrCorrupt, len(data))
	}
	h.Magic = binary.LittleEndian.Uint32(data[0:])
	if h.Magic != Magic {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	h.Version = binary.LittleEndian.Uint16(data[4:])
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	h.Codec = Codec(data[6])
	if !h.Codec.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCodec, data[6])
	}
	h.RawLength = binary.LittleEndian.Uint32(data[8:])
	h.PayloadLength = binary.LittleEndian.Uint32(data[12:])
	h.PayloadCRC = binary.LittleEndian.Uint32(data[16:])
	copy(h.Digest[:], data[20:HeaderSize])
	return nil
}

// ID returns the hex encoded digest.
func (h *Header) ID() string {
	return fmt.Sprintf("%x", h.Digest)
}
