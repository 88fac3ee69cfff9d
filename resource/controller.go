package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxOpenFiles is the number of files that may be open at once.
	// If 0, defaults to 5.
	MaxOpenFiles int64

	// IOLimitBytesPerSec is the maximum device throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// DefaultMaxOpenFiles is the open-file bound used when Config leaves it unset.
const DefaultMaxOpenFiles = 5

// Controller manages filesystem-wide resources (open-file slots, IO budget).
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	openSem  *semaphore.Weighted
	openUsed atomic.Int64

	ioLimiter *rate.Limiter
	ioBurst   int
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}

	c := &Controller{
		cfg:     cfg,
		openSem: semaphore.NewWeighted(cfg.MaxOpenFiles),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioBurst = int(cfg.IOLimitBytesPerSec)
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), c.ioBurst)
	}

	return c
}

// MaxOpenFiles returns the configured open-file bound.
func (c *Controller) MaxOpenFiles() int {
	if c == nil {
		return DefaultMaxOpenFiles
	}
	return int(c.cfg.MaxOpenFiles)
}

// TryAcquireOpen reserves an open-file slot without blocking.
// Returns false if every slot is taken.
func (c *Controller) TryAcquireOpen() bool {
	if c == nil {
		return true
	}
	if !c.openSem.TryAcquire(1) {
		return false
	}
	c.openUsed.Add(1)
	return true
}

// ReleaseOpen releases an open-file slot.
func (c *Controller) ReleaseOpen() {
	if c == nil {
		return
	}
	c.openUsed.Add(-1)
	c.openSem.Release(1)
}

// OpenFiles returns the number of reserved open-file slots.
func (c *Controller) OpenFiles() int {
	if c == nil {
		return 0
	}
	return int(c.openUsed.Load())
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are charged in burst-sized steps.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	for bytes > 0 {
		n := min(bytes, c.ioBurst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
