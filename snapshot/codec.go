package snapshot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec defines the compression algorithm of a snapshot payload.
type Codec uint8

const (
	// CodecNone stores the image as is.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression.
	CodecLZ4 Codec = 1
	// CodecZstd uses ZSTD compression.
	CodecZstd Codec = 2
)

func (c Codec) valid() bool {
	return c <= CodecZstd
}

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name as printed by Codec.String.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// ZSTD encoder/decoder pools for the default level.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// encode compresses raw and reports the codec actually used.
// Incompressible input falls back to CodecNone.
func encode(raw []byte, codec Codec, level int) ([]byte, Codec, error) {
	switch codec {
	case CodecNone:
		return raw, CodecNone, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("snapshot: lz4: %w", err)
		}
		if n == 0 || n >= len(raw) {
			return raw, CodecNone, nil
		}
		return dst[:n], CodecLZ4, nil
	case CodecZstd:
		var out []byte
		if level == 0 {
			enc := getZstdEncoder()
			out = enc.EncodeAll(raw, nil)
			putZstdEncoder(enc)
		} else {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
			if err != nil {
				return nil, 0, fmt.Errorf("snapshot: zstd: %w", err)
			}
			out = enc.EncodeAll(raw, nil)
			_ = enc.Close()
		}
		if len(out) >= len(raw) {
			return raw, CodecNone, nil
		}
		return out, CodecZstd, nil
	}
	return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
}

// decode expands payload into an image of rawLen bytes.
func decode(payload []byte, codec Codec, rawLen int) ([]byte, error) {
	var out []byte
	switch codec {
	case CodecNone:
		out = payload
	case CodecLZ4:
		out = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		out = out[:n]
	case CodecZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		var err error
		out, err = dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
	if len(out) != rawLen {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupt, len(out), rawLen)
	}
	return out, nil
}
