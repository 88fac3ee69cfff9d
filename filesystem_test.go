package toyfat

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/fat"
	"github.com/hupe1980/toyfat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, opts ...Option) (*FileSystem, *disk.Memory) {
	t.Helper()
	dev := disk.NewMemory()
	fsys, err := New(dev, opts...)
	require.NoError(t, err)
	require.NoError(t, fsys.Format())
	t.Cleanup(func() { _ = fsys.Close() })
	return fsys, dev
}

func assertKind(t *testing.T, err error, kind error, detail ...error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	assert.Equal(t, kind, KindOf(err))
	for _, d := range detail {
		assert.ErrorIs(t, err, d)
	}
}

func TestNew_InvalidDevice(t *testing.T) {
	_, err := New(nil)
	assertKind(t, err, ErrIO, disk.ErrInvalid)

	dev := disk.Open(t.TempDir() + "/missing.disk")
	_, err = New(dev)
	assertKind(t, err, ErrIO)
}

func TestFormat(t *testing.T) {
	fsys, dev := newTestFS(t)

	img := dev.Bytes()
	for i := range 3 {
		assert.Equal(t, byte(0xFF), img[i], "block %d", i)
	}
	assert.Equal(t, byte(0xFE), img[23])
	assert.Equal(t, byte(0xFE), img[49])
	assert.Equal(t, dirent.EmptyBlock(), img[disk.Offset(RootBlock):disk.Offset(RootBlock+1)])

	s := fsys.Stat()
	assert.Equal(t, 128, s.TotalBlocks)
	assert.Equal(t, 123, s.FreeBlocks)
	assert.Equal(t, 2, s.ReservedBlocks)
	assert.Equal(t, 3, s.UsedBlocks)

	t.Run("Idempotent", func(t *testing.T) {
		require.NoError(t, fsys.CreateDirectory("/d1"))
		require.NoError(t, fsys.CreateFile("/f1", File))
		require.NoError(t, fsys.WriteFile("/f1", []byte("hello")))

		require.NoError(t, fsys.Format())
		first := dev.Bytes()
		require.NoError(t, fsys.Format())
		assert.Equal(t, first, dev.Bytes())
		assert.Equal(t, img[:disk.Offset(RootBlock+1)], first[:disk.Offset(RootBlock+1)])
		assert.False(t, fsys.Exists("/d1"))
		assert.Empty(t, fsys.ListOpenFiles())
	})
}

func TestScenario(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/d1"))
	require.NoError(t, fsys.CreateFile("/f1", File))
	assert.Equal(t, []string{"/f1"}, fsys.ListOpenFiles())

	size := func() int {
		e, err := fsys.Resolve("/f1")
		require.NoError(t, err)
		return e.Size()
	}
	assert.Equal(t, 64, size())

	data := testutil.NewRNG(7).Bytes(128)

	require.NoError(t, fsys.WriteFile("/f1", data[:63]))
	assert.Equal(t, 64, size())

	require.NoError(t, fsys.WriteFile("/f1", data[63:64]))
	assert.Equal(t, 128, size())

	require.NoError(t, fsys.WriteFile("/f1", data[64:]))
	assert.Equal(t, 192, size())

	require.NoError(t, fsys.CloseFile("/f1"))
	assert.False(t, fsys.IsOpen("/f1"))

	got, err := fsys.ReadAll("/f1", 128)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// The cursor is at the end now.
	got, err = fsys.ReadAll("/f1", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	report, err := fsys.Check()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)
}

func TestResolve(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/a"))
	require.NoError(t, fsys.CreateDirectory("/a/b"))
	require.NoError(t, fsys.CreateFile("/a/b/c", File|System))

	for _, p := range []string{"/", "/a", "/a/b", "/a/b/c"} {
		e, err := fsys.Resolve(p)
		require.NoError(t, err, p)
		assert.Equal(t, p, e.FullPath())
	}

	root := fsys.Root()
	assert.True(t, root.IsRoot())
	assert.Equal(t, "/", root.Name())
	assert.Equal(t, Directory|System, root.Attributes())
	assert.Equal(t, 1, root.BlockCount())
	assert.Equal(t, root.FullPath(), root.Parent().FullPath())

	c, err := fsys.Resolve("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "c", c.Name())
	assert.True(t, c.IsFile())
	assert.True(t, c.IsSystem())
	assert.False(t, c.IsReadOnly())
	assert.Equal(t, "/a/b", c.Parent().FullPath())
	assert.Equal(t, "/a", c.Parent().Parent().FullPath())
	assert.True(t, c.Parent().Parent().Parent().IsRoot())

	t.Run("Rejects", func(t *testing.T) {
		_, err := fsys.Resolve("a")
		assertKind(t, err, ErrNotFound, ErrNotAbsolute)

		_, err = fsys.Resolve("/a/")
		assertKind(t, err, ErrNotFound)

		_, err = fsys.Resolve("/a//b")
		assertKind(t, err, ErrNotFound)

		_, err = fsys.Resolve("/a/b/c/d")
		assertKind(t, err, ErrNotFound, ErrNotDirectory)

		_, err = fsys.Resolve("/nope")
		assertKind(t, err, ErrNotFound)

		assert.False(t, fsys.Exists(""))
	})

	t.Run("Children", func(t *testing.T) {
		kids, err := fsys.Root().Children()
		require.NoError(t, err)
		require.Len(t, kids, 1)
		assert.Equal(t, "/a", kids[0].FullPath())

		b, err := kids[0].FindChild("b")
		require.NoError(t, err)
		assert.Equal(t, "/a/b", b.FullPath())

		_, err = kids[0].FindChild("zz")
		assertKind(t, err, ErrNotFound)

		_, err = c.Children()
		assertKind(t, err, ErrNotFound, ErrNotDirectory)
	})
}

func TestCreate_Names(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/f777"))
	assertKind(t, fsys.CreateDirectory("/f8888"), ErrInvalidName, dirent.ErrNameTooLong)
	assertKind(t, fsys.CreateDirectory("/a$"), ErrInvalidName, dirent.ErrNameInvalid)
	assertKind(t, fsys.CreateFile("/", File), ErrAlreadyExists)
	assertKind(t, fsys.CreateFile("", File), ErrInvalidName, dirent.ErrNameEmpty)
	assertKind(t, fsys.CreateDirectory("/f777"), ErrAlreadyExists)

	// Without a separator the entry lands in the root directory.
	require.NoError(t, fsys.CreateDirectory("rel"))
	assert.True(t, fsys.Exists("/rel"))
	assertKind(t, fsys.CreateDirectory("rel"), ErrAlreadyExists)
}

func TestCreate_Parent(t *testing.T) {
	fsys, _ := newTestFS(t)

	assertKind(t, fsys.CreateFile("/nope/f", File), ErrNotFound)

	require.NoError(t, fsys.CreateFile("/f", File))
	assertKind(t, fsys.CreateFile("/f/g", File), ErrNotFound, ErrNotDirectory)

	// Creation follows the same canonical paths as Resolve.
	assertKind(t, fsys.CreateDirectory("//x"), ErrNotFound)
	assertKind(t, fsys.CreateFile("x//y", File), ErrNotFound)
	require.NoError(t, fsys.CreateDirectory("/d"))
	assertKind(t, fsys.CreateDirectory("/d//x"), ErrNotFound)
	assert.False(t, fsys.Exists("/x"))
	_, err := fsys.Resolve("//x")
	assertKind(t, err, ErrNotFound)
}

func TestCreate_Attributes(t *testing.T) {
	fsys, _ := newTestFS(t)

	assertKind(t, fsys.CreateFile("/a", 0), ErrInvalidAttributes)
	assertKind(t, fsys.CreateFile("/a", File|ReadOnly), ErrInvalidAttributes)
	assertKind(t, fsys.CreateFile("/a", File|Directory), ErrInvalidAttributes)
	assertKind(t, fsys.CreateFile("/a", Directory), ErrInvalidAttributes)
	assert.False(t, fsys.Exists("/a"))

	require.NoError(t, fsys.CreateFile("/a", File|System))
	e, err := fsys.Resolve("/a")
	require.NoError(t, err)
	assert.Equal(t, File|System, e.Attributes())
	assert.Equal(t, 1, e.BlockCount())

	require.NoError(t, fsys.CreateDirectory("/d"))
	d, err := fsys.Resolve("/d")
	require.NoError(t, err)
	assert.Equal(t, Directory, d.Attributes())
	assert.Equal(t, 0, d.BlockCount())
	assert.Equal(t, 0, d.Size())
}

func TestCreate_DirectoryFull(t *testing.T) {
	fsys, _ := newTestFS(t)

	for i := range dirent.PerBlock {
		require.NoError(t, fsys.CreateDirectory("/d"+string(rune('0'+i))))
	}
	assertKind(t, fsys.CreateDirectory("/d8"), ErrFull, ErrDirectoryFull)
	assertKind(t, fsys.CreateFile("/f", File), ErrFull, ErrDirectoryFull)

	// Subdirectories have their own eight slots.
	for i := range dirent.PerBlock {
		require.NoError(t, fsys.CreateDirectory("/d0/s"+string(rune('0'+i))))
	}
	assertKind(t, fsys.CreateDirectory("/d0/s8"), ErrFull, ErrDirectoryFull)
}

func TestWrite_DiskFull(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateFile("/big", File))
	free := fsys.Stat().FreeBlocks

	data := testutil.NewRNG(1).Bytes((free + 1) * disk.BlockSize)
	err := fsys.WriteFile("/big", data)
	assertKind(t, err, ErrFull, ErrNoSpace)
	assert.Equal(t, 0, fsys.Stat().FreeBlocks)

	e, err := fsys.Resolve("/big")
	require.NoError(t, err)
	assert.Equal(t, free+1, e.BlockCount())

	fsys.mu.RLock()
	chain := fsys.table.Chain(e.StartBlock())
	fsys.mu.RUnlock()
	assert.Len(t, chain, free+1)
	assert.NotContains(t, chain, 23)
	assert.NotContains(t, chain, 49)

	assertKind(t, fsys.CreateDirectory("/d"), ErrFull, ErrNoSpace)

	// Nothing is rolled back. The last linked block holds only the
	// sentinel, so the file ends at the last full block.
	report, err := fsys.Check()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)

	require.NoError(t, fsys.CloseFile("/big"))
	got, err := fsys.ReadAll("/big", len(data))
	require.NoError(t, err)
	assert.Equal(t, data[:free*disk.BlockSize], got)
}

func TestWrite_DiskFullReusedBlocks(t *testing.T) {
	fsys, _ := newTestFS(t)

	// Leave stale content with sentinels in every free block.
	stale := bytes.Repeat([]byte("SECRET#"), disk.Capacity/7)
	require.NoError(t, fsys.CreateFile("/old", File))
	assertKind(t, fsys.WriteFile("/old", stale), ErrFull, ErrNoSpace)
	require.NoError(t, fsys.CloseFile("/old"))
	require.NoError(t, fsys.DeleteEntry("/old"))

	require.NoError(t, fsys.CreateFile("/big", File))
	free := fsys.Stat().FreeBlocks
	data := testutil.NewRNG(4).Bytes((free + 1) * disk.BlockSize)
	assertKind(t, fsys.WriteFile("/big", data), ErrFull, ErrNoSpace)
	require.NoError(t, fsys.CloseFile("/big"))

	got, err := fsys.ReadAll("/big", len(data))
	require.NoError(t, err)
	assert.Equal(t, data[:free*disk.BlockSize], got)
	assert.NotContains(t, string(got), "SECRET")

	report, err := fsys.Check()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)
}

func TestOpenFile(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/d"))
	assertKind(t, fsys.OpenFile("/d", Read), ErrPermissionDenied, ErrIsDirectory)
	assertKind(t, fsys.OpenFile("/nope", Read), ErrNotFound)
	assertKind(t, fsys.CloseFile("/nope"), ErrNotFound, ErrNotOpen)

	require.NoError(t, fsys.CreateFile("/f", File))
	require.NoError(t, fsys.CloseFile("/f"))
	assertKind(t, fsys.CloseFile("/f"), ErrNotFound, ErrNotOpen)
	assertKind(t, fsys.OpenFile("/f", 0), ErrPermissionDenied, ErrModeMismatch)

	require.NoError(t, fsys.OpenFile("/f", Write))
	require.NoError(t, fsys.OpenFile("/f", Read), "already open is a no-op")

	_, err := fsys.ReadFile("/f", make([]byte, 4))
	assertKind(t, err, ErrPermissionDenied, ErrModeMismatch)

	require.NoError(t, fsys.CloseFile("/f"))
	require.NoError(t, fsys.OpenFile("/f", Read))
	assertKind(t, fsys.WriteFile("/f", []byte("x")), ErrPermissionDenied, ErrModeMismatch)
}

func TestOpenFile_Limit(t *testing.T) {
	fsys, _ := newTestFS(t)

	for i := range MaxOpenFiles {
		require.NoError(t, fsys.CreateFile("/f"+string(rune('0'+i)), File))
	}
	assert.Len(t, fsys.ListOpenFiles(), MaxOpenFiles)

	// Creation succeeds even though the new file cannot be opened.
	require.NoError(t, fsys.CreateFile("/f5", File))
	assert.False(t, fsys.IsOpen("/f5"))
	assertKind(t, fsys.OpenFile("/f5", Read), ErrFull, ErrTooManyOpenFiles)
	assertKind(t, fsys.WriteFile("/f5", []byte("x")), ErrFull, ErrTooManyOpenFiles)

	require.NoError(t, fsys.CloseFile("/f0"))
	require.NoError(t, fsys.OpenFile("/f5", Read))
	assert.Equal(t, []string{"/f1", "/f2", "/f3", "/f4", "/f5"}, fsys.ListOpenFiles())
	assert.Equal(t, MaxOpenFiles, fsys.Stat().OpenFiles)
}

func TestReadFile_Cursor(t *testing.T) {
	fsys, _ := newTestFS(t)

	data := testutil.NewRNG(3).Bytes(63)
	require.NoError(t, fsys.CreateFile("/f", File))
	require.NoError(t, fsys.WriteFile("/f", data))
	require.NoError(t, fsys.CloseFile("/f"))

	buf := make([]byte, 32)
	n, err := fsys.ReadFile("/f", buf)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	assert.Equal(t, data[:32], buf)

	n, err = fsys.ReadFile("/f", buf)
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	assert.Equal(t, data[32:], buf[:n])

	n, err = fsys.ReadFile("/f", buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadFile_SentinelInContent(t *testing.T) {
	fsys, dev := newTestFS(t)

	require.NoError(t, fsys.CreateFile("/f", File))
	require.NoError(t, fsys.WriteFile("/f", []byte("ab#cd")))

	// Reads stop at the first sentinel, open or reopened.
	got, err := fsys.ReadAll("/f", 64)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
	require.NoError(t, fsys.CloseFile("/f"))

	e, err := fsys.Resolve("/f")
	require.NoError(t, err)
	off := disk.Offset(e.StartBlock())
	assert.Equal(t, "ab#cd#", string(dev.Bytes()[off:off+6]))

	got, err = fsys.ReadAll("/f", 64)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
	n, err := fsys.ReadFile("/f", make([]byte, 8))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, fsys.CloseFile("/f"))

	// The length on reopen ends at the first sentinel; appends start there.
	require.NoError(t, fsys.WriteFile("/f", []byte("XY")))
	require.NoError(t, fsys.CloseFile("/f"))
	got, err = fsys.ReadAll("/f", 64)
	require.NoError(t, err)
	assert.Equal(t, "abXY", string(got))

	// A sentinel in an earlier block ends the read there.
	require.NoError(t, fsys.CreateFile("/g", File))
	data := append(bytes.Repeat([]byte("a"), 10), '#')
	data = append(data, bytes.Repeat([]byte("b"), 100)...)
	require.NoError(t, fsys.WriteFile("/g", data))
	require.NoError(t, fsys.CloseFile("/g"))
	got, err = fsys.ReadAll("/g", 200)
	require.NoError(t, err)
	assert.Equal(t, data[:10], got)
}

func TestWrite_AppendsAfterReopen(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateFile("/f", File))
	require.NoError(t, fsys.WriteFile("/f", []byte("hello ")))
	require.NoError(t, fsys.CloseFile("/f"))

	require.NoError(t, fsys.WriteFile("/f", []byte("world")))
	require.NoError(t, fsys.CloseFile("/f"))

	got, err := fsys.ReadAll("/f", 64)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	// An empty write keeps the content.
	require.NoError(t, fsys.CloseFile("/f"))
	require.NoError(t, fsys.WriteFile("/f", nil))
	require.NoError(t, fsys.CloseFile("/f"))
	got, err = fsys.ReadAll("/f", 64)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestSetAttributes(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateFile("/f1", File))
	assertKind(t, fsys.SetAttributes("/f1", File|ReadOnly), ErrPermissionDenied, ErrFileOpen)
	require.NoError(t, fsys.CloseFile("/f1"))

	require.NoError(t, fsys.SetAttributes("/f1", File|ReadOnly))
	e, err := fsys.Resolve("/f1")
	require.NoError(t, err)
	assert.True(t, e.IsReadOnly())

	assertKind(t, fsys.OpenFile("/f1", Write), ErrPermissionDenied, ErrReadOnly)
	assert.False(t, fsys.IsOpen("/f1"))

	assertKind(t, fsys.WriteFile("/f1", []byte("x")), ErrPermissionDenied, ErrReadOnly)
	assert.False(t, fsys.IsOpen("/f1"))

	require.NoError(t, fsys.OpenFile("/f1", Read))
	require.NoError(t, fsys.CloseFile("/f1"))

	t.Run("DirectoryBitIgnored", func(t *testing.T) {
		require.NoError(t, fsys.SetAttributes("/f1", File|Directory|System))
		e, err := fsys.Resolve("/f1")
		require.NoError(t, err)
		assert.Equal(t, File|System, e.Attributes())
	})

	t.Run("FileBitKept", func(t *testing.T) {
		assertKind(t, fsys.SetAttributes("/f1", ReadOnly), ErrInvalidAttributes)
	})

	t.Run("Directories", func(t *testing.T) {
		require.NoError(t, fsys.CreateDirectory("/d"))
		assertKind(t, fsys.SetAttributes("/d", File), ErrPermissionDenied, ErrIsDirectory)
		assertKind(t, fsys.SetAttributes("/", File), ErrPermissionDenied, ErrIsDirectory)
		assertKind(t, fsys.SetAttributes("/nope", File), ErrNotFound)
	})
}

func TestDeleteEntry(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateDirectory("/d"))
	require.NoError(t, fsys.CreateFile("/d/a", File))
	require.NoError(t, fsys.CreateFile("/d/b", File))

	d, err := fsys.Resolve("/d")
	require.NoError(t, err)
	dirBlock := d.StartBlock()

	assertKind(t, fsys.DeleteEntry("/d"), ErrPermissionDenied, ErrNotEmpty)
	assertKind(t, fsys.DeleteEntry("/d/a"), ErrPermissionDenied, ErrFileOpen)
	assertKind(t, fsys.DeleteEntry("/"), ErrPermissionDenied)
	assertKind(t, fsys.DeleteEntry("/nope"), ErrNotFound)

	require.NoError(t, fsys.CloseFile("/d/a"))
	require.NoError(t, fsys.CloseFile("/d/b"))
	require.NoError(t, fsys.WriteFile("/d/b", testutil.NewRNG(2).Bytes(200)))
	require.NoError(t, fsys.CloseFile("/d/b"))

	free := fsys.Stat().FreeBlocks
	require.NoError(t, fsys.DeleteEntry("/d/a"))
	require.NoError(t, fsys.DeleteEntry("/d/b"))
	assert.Equal(t, free+1+4, fsys.Stat().FreeBlocks)

	require.NoError(t, fsys.DeleteEntry("/d"))
	assert.False(t, fsys.Exists("/d"))

	require.NoError(t, fsys.CreateDirectory("/x"))
	x, err := fsys.Resolve("/x")
	require.NoError(t, err)
	assert.Equal(t, dirBlock, x.StartBlock(), "freed block is reused")

	report, err := fsys.Check()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)
}

func TestPersistence(t *testing.T) {
	path := testutil.TempDisk(t)
	data := testutil.NewRNG(11).Bytes(300)

	dev := disk.Open(path)
	fsys, err := New(dev)
	require.NoError(t, err)
	require.NoError(t, fsys.Format())
	require.NoError(t, fsys.CreateDirectory("/d"))
	require.NoError(t, fsys.CreateFile("/d/f", File))
	require.NoError(t, fsys.WriteFile("/d/f", data))
	stats := fsys.Stat()
	require.NoError(t, fsys.Close())
	require.NoError(t, fsys.Close(), "close is idempotent")

	dev = disk.Open(path)
	fsys, err = New(dev)
	require.NoError(t, err)
	defer fsys.Close()

	stats.OpenFiles = 0
	assert.Equal(t, stats, fsys.Stat())

	got, err := fsys.ReadAll("/d/f", 1000)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReaderWriter(t *testing.T) {
	fsys, _ := newTestFS(t)

	data := testutil.NewRNG(5).Bytes(500)
	require.NoError(t, fsys.CreateFile("/f", File))

	n, err := bytes.NewReader(data).WriteTo(fsys.Writer("/f"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	require.NoError(t, fsys.CloseFile("/f"))

	var out bytes.Buffer
	_, err = out.ReadFrom(fsys.Reader("/f"))
	require.NoError(t, err)
	assert.Equal(t, data, out.Bytes())
}

func TestMetrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	fsys, _ := newTestFS(t, WithMetricsCollector(mc), WithLogger(NoopLogger()))

	require.NoError(t, fsys.CreateFile("/f", File))
	require.Error(t, fsys.CreateFile("/f", File))
	require.NoError(t, fsys.WriteFile("/f", []byte("abc")))
	require.NoError(t, fsys.CloseFile("/f"))
	_, err := fsys.ReadAll("/f", 10)
	require.NoError(t, err)
	require.NoError(t, fsys.CloseFile("/f"))
	require.NoError(t, fsys.DeleteEntry("/f"))

	s := mc.GetStats()
	assert.Equal(t, int64(2), s.CreateCount)
	assert.Equal(t, int64(1), s.CreateErrors)
	assert.Equal(t, int64(2), s.OpenCount)
	assert.Equal(t, int64(1), s.WriteCount)
	assert.Equal(t, int64(3), s.WriteBytes)
	assert.Equal(t, int64(3), s.ReadBytes)
	assert.Equal(t, int64(1), s.DeleteCount)
	assert.Zero(t, s.DeleteErrors)
}

func TestKindOf(t *testing.T) {
	assert.Nil(t, KindOf(nil))
	assert.Nil(t, KindOf(errors.New("plain")))

	err := newError("open", "/f", ErrFull, ErrTooManyOpenFiles)
	assert.Equal(t, ErrFull, KindOf(err))
	assert.Equal(t, "open /f: full: too many open files", err.Error())

	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/f", pe.Path)

	assert.Equal(t, ErrInvalidName, KindOf(translateError("create", "/x", dirent.ErrNameEmpty)))
	assert.Equal(t, ErrIO, KindOf(translateError("read", "/x", disk.ErrClosed)))
}

func TestCheck_Detects(t *testing.T) {
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.CreateFile("/a", File))
	require.NoError(t, fsys.CreateFile("/b", File))
	require.NoError(t, fsys.CloseFile("/a"))
	require.NoError(t, fsys.CloseFile("/b"))

	a, err := fsys.Resolve("/a")
	require.NoError(t, err)
	b, err := fsys.Resolve("/b")
	require.NoError(t, err)

	fsys.mu.Lock()
	require.NoError(t, fsys.table.Set(a.StartBlock(), fat.Next(b.StartBlock())))
	require.NoError(t, fsys.table.Set(60, fat.Terminal))
	require.NoError(t, fsys.table.Set(61, fat.Next(62)))
	fsys.mu.Unlock()

	report, err := fsys.Check()
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []int{b.StartBlock()}, report.CrossLinked)
	assert.Equal(t, []string{"/a"}, report.CountMismatch)
	assert.Equal(t, []int{60, 61}, report.Leaked)
	assert.Empty(t, report.Dangling)

	fsys.mu.Lock()
	require.NoError(t, fsys.table.Set(a.StartBlock(), fat.Next(70)))
	require.NoError(t, fsys.table.Set(23, fat.Free))
	fsys.mu.Unlock()

	report, err = fsys.Check()
	require.NoError(t, err)
	assert.Equal(t, []int{a.StartBlock()}, report.Dangling)
	assert.Equal(t, []int{23}, report.Unreserved)
	assert.Empty(t, report.CrossLinked)
}
