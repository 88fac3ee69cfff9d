//go:build !unix && !windows

package disk

import (
	"errors"

	"github.com/hupe1980/toyfat/internal/fs"
)

func mapStore(fs.File) ([]byte, func() error, error) {
	return nil, nil, errors.ErrUnsupported
}
