package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/toyfat/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	blobName := "snap/data-001.tfs"
	data := []byte("hello world, this is a test blob for toyfat")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(tmpDir, "snap", "data-001.tfs"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(len(data)), blob.Size())
	got, err := ReadAll(ctx, store, blobName)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, store.Put(ctx, "snap/data-002.tfs", []byte("x")))
	require.NoError(t, store.Put(ctx, "other", []byte("y")))

	names, err = store.List(ctx, "snap/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap/data-001.tfs", "snap/data-002.tfs"}, names)

	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "boundary.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	read := func(off, length int64) string {
		r, err := blob.ReadRange(ctx, off, length)
		require.NoError(t, err)
		defer r.Close()
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(content)
	}

	assert.Equal(t, "0123456789", read(0, 10))
	assert.Equal(t, "89", read(8, 5))
	assert.Equal(t, "", read(20, 5))
	assert.Equal(t, "", read(-1, 5))
	assert.Equal(t, "", read(3, 0))

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "89", string(buf[:n]))
}

func TestLocalBlobStore_EmptyList(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_FailedWriteLeavesNothing(t *testing.T) {
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("broken", fs.Fault{FailAfterBytes: 2})
	dir := t.TempDir()
	store := NewLocalStoreWithFS(dir, faulty)
	ctx := context.Background()

	err := store.Put(ctx, "broken", []byte("0123456789"))
	require.ErrorIs(t, err, fs.ErrInjected)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalBlobStore_FailedSync(t *testing.T) {
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("unsynced", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	store := NewLocalStoreWithFS(t.TempDir(), faulty)
	ctx := context.Background()

	err := store.Put(ctx, "unsynced", []byte("abc"))
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = store.Open(ctx, "unsynced")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_FailedRead(t *testing.T) {
	faulty := fs.NewFaultyFS(nil)
	store := NewLocalStoreWithFS(t.TempDir(), faulty)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "unreadable", []byte("0123456789")))

	faulty.AddRule("unreadable", fs.Fault{FailAfterBytes: -1, FailReads: true})
	blob, err := store.Open(ctx, "unreadable")
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.ReadAt(ctx, make([]byte, 4), 0)
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = ReadAll(ctx, store, "unreadable")
	require.ErrorIs(t, err, fs.ErrInjected)
}
