package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/toyfat/blobstore"
	"github.com/hupe1980/toyfat/disk"
)

// Extension is the suffix of snapshot blob names.
const Extension = ".tfs"

// ErrAmbiguous is returned by Resolve when a prefix matches several snapshots.
var ErrAmbiguous = errors.New("snapshot: ambiguous snapshot id")

// Info describes a stored snapshot.
type Info struct {
	Name   string
	Size   int64
	Header Header
	// Existing is set by Save when an identical snapshot was already stored.
	Existing bool
}

// Archive stores snapshots in a blob store under content-addressed names.
type Archive struct {
	store blobstore.BlobStore
	opts  []Option
}

// NewArchive creates an archive on top of store. opts apply to every
// snapshot the archive writes or reads.
func NewArchive(store blobstore.BlobStore, opts ...Option) *Archive {
	return &Archive{store: store, opts: opts}
}

// Name returns the blob name of the snapshot with header h.
func Name(h *Header) string {
	return h.ID() + Extension
}

// Save exports the image in src and stores it unless an identical image is
// already archived.
func (a *Archive) Save(ctx context.Context, src io.ReaderAt) (*Info, error) {
	var buf bytes.Buffer
	h, err := Export(ctx, src, &buf, a.opts...)
	if err != nil {
		return nil, err
	}
	info := &Info{Name: Name(h), Size: int64(buf.Len()), Header: *h}

	blob, err := a.store.Open(ctx, info.Name)
	switch {
	case err == nil:
		info.Existing = true
		return info, blob.Close()
	case !errors.Is(err, blobstore.ErrNotFound):
		return nil, fmt.Errorf("snapshot: stat %s: %w", info.Name, err)
	}

	if err := a.store.Put(ctx, info.Name, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("snapshot: store %s: %w", info.Name, err)
	}
	return info, nil
}

// Load fetches and verifies the snapshot stored under name.
func (a *Archive) Load(ctx context.Context, name string) ([]byte, *Header, error) {
	blob, err := a.store.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	return Import(ctx, r, a.opts...)
}

// Restore writes the snapshot stored under name onto dev.
func (a *Archive) Restore(ctx context.Context, name string, dev disk.Device) (*Header, error) {
	img, h, err := a.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := disk.WriteImage(dev, img); err != nil {
		return nil, fmt.Errorf("snapshot: restore %s: %w", name, err)
	}
	return h, nil
}

// List returns the archived snapshots sorted by name.
func (a *Archive) List(ctx context.Context) ([]Info, error) {
	names, err := a.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, name := range names {
		if !strings.HasSuffix(name, Extension) {
			continue
		}
		info, err := a.stat(ctx, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

func (a *Archive) stat(ctx context.Context, name string) (*Info, error) {
	blob, err := a.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	buf := make([]byte, HeaderSize)
	if _, err := blob.ReadAt(ctx, buf, 0); err != nil {
		return nil, fmt.Errorf("snapshot: read header of %s: %w", name, err)
	}
	info := &Info{Name: name, Size: blob.Size()}
	if err := info.Header.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", name, err)
	}
	return info, nil
}

// Resolve expands a unique id prefix into a snapshot name.
func (a *Archive) Resolve(ctx context.Context, prefix string) (string, error) {
	names, err := a.store.List(ctx, prefix)
	if err != nil {
		return "", err
	}

	var match string
	for _, name := range names {
		if !strings.HasSuffix(name, Extension) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
		}
		match = name
	}
	if match == "" {
		return "", fmt.Errorf("snapshot %q: %w", prefix, blobstore.ErrNotFound)
	}
	return match, nil
}

// Delete removes the snapshot stored under name.
func (a *Archive) Delete(ctx context.Context, name string) error {
	return a.store.Delete(ctx, name)
}
