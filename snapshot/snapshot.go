package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/resource"
	"github.com/zeebo/blake3"
)

// Export reads a full disk image from src and writes it to w as a snapshot.
func Export(ctx context.Context, src io.ReaderAt, w io.Writer, opts ...Option) (*Header, error) {
	o := applyOptions(opts)

	raw := make([]byte, disk.Capacity)
	if n, err := src.ReadAt(raw, 0); n != len(raw) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("snapshot: read image: %w", err)
	}
	return encodeTo(ctx, raw, w, o)
}

// ExportImage writes img, a full disk image, to w as a snapshot.
func ExportImage(ctx context.Context, img []byte, w io.Writer, opts ...Option) (*Header, error) {
	return Export(ctx, bytes.NewReader(img), w, opts...)
}

func encodeTo(ctx context.Context, raw []byte, w io.Writer, o options) (*Header, error) {
	payload, codec, err := encode(raw, o.codec, o.level)
	if err != nil {
		return nil, err
	}

	h := &Header{
		Magic:         Magic,
		Version:       Version,
		Codec:         codec,
		RawLength:     uint32(len(raw)),
		PayloadLength: uint32(len(payload)),
		PayloadCRC:    CalculateChecksum(payload),
		Digest:        blake3.Sum256(raw),
	}
	hdr, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if o.resources != nil {
		w = resource.NewRateLimitedWriter(ctx, w, o.resources)
	}
	if _, err := w.Write(hdr); err != nil {
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("snapshot: write payload: %w", err)
	}
	return h, nil
}

// ReadHeader reads and validates the header at the start of r.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	h := new(Header)
	if err := h.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	if h.RawLength != disk.Capacity {
		return nil, fmt.Errorf("%w: image length %d, want %d", ErrCorrupt, h.RawLength, disk.Capacity)
	}
	// Encoders fall back to CodecNone rather than grow the image.
	if h.PayloadLength > disk.Capacity {
		return nil, fmt.Errorf("%w: payload length %d", ErrCorrupt, h.PayloadLength)
	}
	return h, nil
}

// Import reads a snapshot from r and returns the verified disk image.
func Import(ctx context.Context, r io.Reader, opts ...Option) ([]byte, *Header, error) {
	o := applyOptions(opts)
	if o.resources != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.resources)
	}

	h, err := ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}

	cr := NewChecksumReader(io.LimitReader(r, int64(h.PayloadLength)))
	payload, err := io.ReadAll(cr)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read payload: %w", err)
	}
	if len(payload) != int(h.PayloadLength) {
		return nil, nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, len(payload), h.PayloadLength)
	}
	if err := cr.Verify(h.PayloadCRC); err != nil {
		return nil, nil, err
	}

	img, err := decode(payload, h.Codec, int(h.RawLength))
	if err != nil {
		return nil, nil, err
	}
	if blake3.Sum256(img) != h.Digest {
		return nil, nil, ErrDigestMismatch
	}
	return img, h, nil
}

// Restore imports a snapshot from r and writes the image onto dev.
// dev must not be attached to a FileSystem.
func Restore(ctx context.Context, r io.Reader, dev disk.Device, opts ...Option) (*Header, error) {
	img, h, err := Import(ctx, r, opts...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := disk.WriteImage(dev, img); err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}
	return h, nil
}
