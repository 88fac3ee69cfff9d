//go:build unix

package disk

import (
	"github.com/hupe1980/toyfat/internal/fs"
	"golang.org/x/sys/unix"
)

func lockFile(f fs.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockFile(f fs.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
