package testutil

import (
	"bytes"
	"os"
	"testing"

	"github.com/hupe1980/toyfat/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Bytes(t *testing.T) {
	rng := NewRNG(4711)

	b := rng.Bytes(500)
	assert.Len(t, b, 500)
	assert.False(t, bytes.ContainsAny(b, "#$/"))

	rng.Reset()
	assert.Equal(t, b, rng.Bytes(500))
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestRNG_Name(t *testing.T) {
	rng := NewRNG(1)
	for range 100 {
		n := rng.Name(4)
		assert.GreaterOrEqual(t, len(n), 1)
		assert.LessOrEqual(t, len(n), 4)
	}
}

func TestTempDisk(t *testing.T) {
	path := TempDisk(t)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(disk.Capacity), info.Size())

	d := disk.Open(path, disk.WithFileSystem(NewFaultyFS()))
	defer d.Close()
	assert.True(t, d.Valid())
}
