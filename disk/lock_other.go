//go:build !unix

package disk

import "github.com/hupe1980/toyfat/internal/fs"

// Advisory locking is only implemented on unix hosts.
func lockFile(fs.File) error { return nil }

func unlockFile(fs.File) error { return nil }
