package toyfat

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"

	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/snapshot"
)

// Image returns a consistent copy of the whole device. Writers and
// metadata changes wait until the copy is taken.
func (fsys *FileSystem) Image() ([]byte, error) {
	resume := fsys.quiesce()
	defer resume()

	img, err := disk.ReadImage(fsys.dev)
	if err != nil {
		fsys.logger.LogIO(context.Background(), "image", -1, err)
		return nil, newError("image", "/", ErrIO, err)
	}
	return img, nil
}

// Snapshot writes a consistent snapshot of the device to w.
func (fsys *FileSystem) Snapshot(ctx context.Context, w io.Writer, opts ...snapshot.Option) (*snapshot.Header, error) {
	img, err := fsys.Image()
	if err != nil {
		return nil, err
	}
	return snapshot.Export(ctx, bytes.NewReader(img), w, opts...)
}

// Archive stores a consistent snapshot of the device in a.
func (fsys *FileSystem) Archive(ctx context.Context, a *snapshot.Archive) (*snapshot.Info, error) {
	img, err := fsys.Image()
	if err != nil {
		return nil, err
	}
	info, err := a.Save(ctx, bytes.NewReader(img))
	if err != nil {
		return nil, err
	}
	fsys.logger.Info("snapshot archived", "name", info.Name, "existing", info.Existing)
	return info, nil
}

// Restore replaces the device contents with a verified snapshot read from
// r and reloads the allocation table. Every open file is closed first.
func (fsys *FileSystem) Restore(ctx context.Context, r io.Reader, opts ...snapshot.Option) (*snapshot.Header, error) {
	img, h, err := snapshot.Import(ctx, r, opts...)
	if err != nil {
		return nil, newError("restore", "/", ErrIO, err)
	}
	return h, fsys.restore(ctx, h, img)
}

// RestoreArchive restores the snapshot stored under name in a.
func (fsys *FileSystem) RestoreArchive(ctx context.Context, a *snapshot.Archive, name string) (*snapshot.Header, error) {
	img, h, err := a.Load(ctx, name)
	if err != nil {
		return nil, newError("restore", name, ErrIO, err)
	}
	return h, fsys.restore(ctx, h, img)
}

func (fsys *FileSystem) restore(ctx context.Context, h *snapshot.Header, img []byte) error {
	const op = "restore"

	fsys.resetMu.Lock()
	defer fsys.resetMu.Unlock()

	fsys.closeAll()

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if err := disk.WriteImage(fsys.dev, img); err != nil {
		fsys.logger.LogIO(ctx, op, -1, err)
		return newError(op, "/", ErrIO, err)
	}
	if err := fsys.loadTable(); err != nil {
		return newError(op, "/", ErrIO, err)
	}

	fsys.logger.Info("snapshot restored", "id", h.ID(), "free_blocks", fsys.table.FreeCount())
	return nil
}

// quiesce locks every open file and then the table. The returned function
// releases them.
func (fsys *FileSystem) quiesce() (resume func()) {
	for {
		open := fsys.openDescriptors()
		for _, d := range open {
			d.mu.Lock()
		}
		fsys.mu.Lock()

		unlock := func() {
			fsys.mu.Unlock()
			for _, d := range open {
				d.mu.Unlock()
			}
		}
		// New opens need the table lock, so the set cannot grow from here.
		if fsys.sameOpen(open) {
			return unlock
		}
		unlock()
	}
}

// openDescriptors returns the open descriptors sorted by path.
func (fsys *FileSystem) openDescriptors() []*descriptor {
	fsys.filesMu.Lock()
	open := make([]*descriptor, 0, len(fsys.files))
	for _, d := range fsys.files {
		open = append(open, d)
	}
	fsys.filesMu.Unlock()

	slices.SortFunc(open, func(a, b *descriptor) int {
		return strings.Compare(a.path, b.path)
	})
	return open
}

func (fsys *FileSystem) sameOpen(open []*descriptor) bool {
	fsys.filesMu.Lock()
	defer fsys.filesMu.Unlock()

	if len(fsys.files) != len(open) {
		return false
	}
	for _, d := range open {
		if fsys.files[d.path] != d {
			return false
		}
	}
	return true
}
