package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t     *testing.T
	dir   string
	image string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TOYFAT_ARCHIVE", "local")
	t.Setenv("TOYFAT_ARCHIVE_DIR", filepath.Join(dir, "snapshots"))
	t.Setenv("TOYFAT_LOG_LEVEL", "error")
	t.Setenv("NO_COLOR", "1")
	return &cli{t: t, dir: dir, image: filepath.Join(dir, "test.disk")}
}

// run executes the CLI with stdin and returns exit code, stdout and stderr.
func (c *cli) runIn(stdin string, args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--image", c.image, "--env-file", filepath.Join(c.dir, ".env")}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.runIn("", args...)
	require.Equal(c.t, 0, code, "toyfat %v: %s", args, errOut)
	return out
}

func TestCLI_Workflow(t *testing.T) {
	c := newCLI(t)

	c.ok("mkdisk")
	code, _, errOut := c.runIn("", "mkdisk")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	c.ok("mkdir", "/docs")
	c.ok("touch", "/docs/todo")
	c.ok("write", "/docs/todo", "buy", "milk")
	assert.Equal(t, "buy milk", c.ok("cat", "/docs/todo"))

	code, _, _ = c.runIn(" and eggs", "write", "/docs/todo")
	require.Equal(t, 0, code)
	assert.Equal(t, "buy milk and eggs", c.ok("cat", "/docs/todo"))

	ls := c.ok("ls", "/docs")
	assert.Contains(t, ls, "todo")
	assert.Contains(t, ls, "file")

	tree := c.ok("tree")
	assert.Equal(t, "/\n└── docs/\n    └── todo\n", tree)

	stat := c.ok("stat", "/docs/todo")
	assert.Contains(t, stat, "length:")
	assert.Contains(t, stat, "17 bytes")

	assert.Contains(t, c.ok("stat"), "reserved:")

	c.ok("chattr", "/docs/todo", "+r")
	code, _, errOut = c.runIn("x", "write", "/docs/todo")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "permission denied")

	c.ok("touch", "-r", "/docs/lock")
	assert.Contains(t, c.ok("stat", "/docs/lock"), "ro|file")
	code, _, _ = c.runIn("x", "write", "/docs/lock")
	assert.Equal(t, 1, code)
	c.ok("chattr", "/docs/todo", "-r")

	assert.Equal(t, "clean\n", c.ok("fsck"))

	dump := c.ok("dump", "--block", "2")
	assert.Contains(t, dump, "block 2 (offset 0x80)")
	assert.Contains(t, dump, "docs")

	code, _, errOut = c.runIn("", "rm", "/docs")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not empty")
	c.ok("rm", "/docs/todo")
	c.ok("rm", "/docs/lock")
	c.ok("rm", "/docs")
	assert.Equal(t, "/\n", c.ok("tree"))
}

func TestCLI_Snapshots(t *testing.T) {
	c := newCLI(t)
	c.ok("mkdisk")
	c.ok("write", "/note", "v1")

	saved := c.ok("snapshot", "save", "--codec", "lz4")
	require.True(t, strings.HasPrefix(saved, "saved "), saved)
	id := strings.Fields(saved)[1]

	assert.True(t, strings.HasPrefix(c.ok("snapshot", "save", "--codec", "lz4"), "unchanged "))

	list := c.ok("snapshot", "list")
	assert.Contains(t, list, id)
	assert.Contains(t, list, "lz4")

	c.ok("rm", "/note")
	c.ok("snapshot", "restore", id[:8])
	assert.Equal(t, "v1", c.ok("cat", "/note"))

	c.ok("snapshot", "rm", id)
	assert.Empty(t, strings.TrimSpace(c.ok("snapshot", "list")))
}

func TestCLI_Usage(t *testing.T) {
	c := newCLI(t)

	code, _, errOut := c.runIn("")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Commands:")

	code, _, errOut = c.runIn("", "mkdir")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "<path>")

	code, _, errOut = c.runIn("", "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = c.runIn("", "touch", "--help")
	assert.Equal(t, 0, code)

	code, _, errOut = c.runIn("", "ls")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "open")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TOYFAT_IMAGE=from-file.disk\nTOYFAT_ARCHIVE=minio\nTOYFAT_MINIO_SECURE=true\n"), 0o600))
	t.Setenv("TOYFAT_ARCHIVE", "s3")
	t.Setenv("TOYFAT_LOG_LEVEL", "debug")

	env, err := readEnv(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	cfg, err := loadConfig(env)
	require.NoError(t, err)

	assert.Equal(t, "from-file.disk", cfg.Image)
	assert.Equal(t, "s3", cfg.Archive)
	assert.True(t, cfg.MinioSecure)
	assert.Equal(t, "DEBUG", cfg.LogLevel.String())

	_, err = loadConfig(map[string]string{"TOYFAT_ARCHIVE": "ftp"})
	assert.Error(t, err)
	_, err = loadConfig(map[string]string{"TOYFAT_LOG_LEVEL": "loud"})
	assert.Error(t, err)
}

func TestApplyChange(t *testing.T) {
	attrs, err := applyChange(0, "+r")
	require.NoError(t, err)
	attrs, err = applyChange(attrs, "+s")
	require.NoError(t, err)
	attrs, err = applyChange(attrs, "-r")
	require.NoError(t, err)
	assert.Equal(t, "sys", attrs.String())

	_, err = applyChange(attrs, "+x")
	assert.Error(t, err)
	_, err = applyChange(attrs, "r")
	assert.Error(t, err)
}
