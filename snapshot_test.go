package toyfat

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/toyfat/blobstore"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	fsys, dev := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/docs"))
	require.NoError(t, fsys.CreateFile("/docs/todo", File))
	require.NoError(t, fsys.WriteFile("/docs/todo", []byte("buy milk")))
	require.NoError(t, fsys.CloseFile("/docs/todo"))

	var buf bytes.Buffer
	h, err := fsys.Snapshot(ctx, &buf, snapshot.WithCodec(snapshot.CodecZstd))
	require.NoError(t, err)
	assert.Equal(t, snapshot.CodecZstd, h.Codec)
	saved := dev.Bytes()

	require.NoError(t, fsys.DeleteEntry("/docs/todo"))
	require.NoError(t, fsys.CreateFile("/junk", File))
	assert.True(t, fsys.IsOpen("/junk"))

	got, err := fsys.Restore(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, h.Digest, got.Digest)
	assert.Equal(t, saved, dev.Bytes())
	assert.Empty(t, fsys.ListOpenFiles())

	assert.False(t, fsys.Exists("/junk"))
	data, err := fsys.ReadAll("/docs/todo", 64)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", string(data))

	report, err := fsys.Check()
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestRestore_RejectsCorrupt(t *testing.T) {
	fsys, dev := newTestFS(t)
	before := dev.Bytes()

	_, err := fsys.Restore(context.Background(), bytes.NewReader([]byte("not a snapshot")))
	assertKind(t, err, ErrIO, snapshot.ErrCorrupt)
	assert.Equal(t, before, dev.Bytes())
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	archive := snapshot.NewArchive(blobstore.NewMemoryStore())

	require.NoError(t, fsys.CreateDirectory("/a"))
	first, err := fsys.Archive(ctx, archive)
	require.NoError(t, err)
	assert.False(t, first.Existing)

	again, err := fsys.Archive(ctx, archive)
	require.NoError(t, err)
	assert.True(t, again.Existing)

	require.NoError(t, fsys.CreateDirectory("/b"))
	_, err = fsys.Archive(ctx, archive)
	require.NoError(t, err)

	infos, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	h, err := fsys.RestoreArchive(ctx, archive, first.Name)
	require.NoError(t, err)
	assert.Equal(t, first.Header.Digest, h.Digest)
	assert.True(t, fsys.Exists("/a"))
	assert.False(t, fsys.Exists("/b"))

	_, err = fsys.RestoreArchive(ctx, archive, "missing"+snapshot.Extension)
	assertKind(t, err, ErrIO, blobstore.ErrNotFound)
}

func TestImage_WaitsForWriters(t *testing.T) {
	fsys, _ := newTestFS(t)
	require.NoError(t, fsys.CreateFile("/log", File))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			_ = fsys.WriteFile("/log", []byte("0123456789"))
		}
	}()

	for range 10 {
		img, err := fsys.Image()
		require.NoError(t, err)

		// Every copy has the sentinel at the end of the content.
		fsys2, err := New(mustMemory(t, img))
		require.NoError(t, err)
		report, err := fsys2.Check()
		require.NoError(t, err)
		assert.Empty(t, report.MissingSentinel)
		assert.Empty(t, report.CountMismatch)
	}
	wg.Wait()
}

func mustMemory(t *testing.T, img []byte) *disk.Memory {
	t.Helper()
	dev, err := disk.NewMemoryFrom(img)
	require.NoError(t, err)
	return dev
}
