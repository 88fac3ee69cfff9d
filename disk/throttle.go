package disk

import (
	"context"

	"github.com/hupe1980/toyfat/resource"
)

// Throttled charges every transfer of the wrapped device against the IO
// budget of a resource.Controller, simulating a slow medium.
type Throttled struct {
	Device
	rc *resource.Controller
}

// Throttle wraps dev. A nil controller leaves dev unthrottled.
func Throttle(dev Device, rc *resource.Controller) *Throttled {
	return &Throttled{Device: dev, rc: rc}
}

func (t *Throttled) Read(buf []byte, block, length int) (int, error) {
	if length > 0 {
		if err := t.rc.AcquireIO(context.Background(), length); err != nil {
			return 0, err
		}
	}
	return t.Device.Read(buf, block, length)
}

func (t *Throttled) Write(buf []byte, block, length int) (int, error) {
	if length > 0 {
		if err := t.rc.AcquireIO(context.Background(), length); err != nil {
			return 0, err
		}
	}
	return t.Device.Write(buf, block, length)
}
