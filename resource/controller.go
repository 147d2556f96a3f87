// Package resource shares memory, worker and IO budgets between indexes.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimit is returned when a reservation would exceed the memory budget.
var ErrMemoryLimit = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for index arenas.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64 `yaml:"memory_limit_bytes"`

	// MaxBackgroundWorkers is the maximum number of concurrent batch workers
	// across all indexes sharing the controller. If 0, unlimited.
	MaxBackgroundWorkers int64 `yaml:"max_background_workers"`

	// IOLimitBytesPerSec is the maximum throughput of save, load and
	// transfer streams. If 0, unlimited.
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// Controller manages shared resources. A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem *semaphore.Weighted // nil if unlimited

	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.MaxBackgroundWorkers > 0 {
		c.bgSem = semaphore.NewWeighted(cfg.MaxBackgroundWorkers)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Config returns the limits the controller was created with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// ReserveMemory reserves bytes without blocking. It fails with
// ErrMemoryLimit when the budget cannot cover the request.
func (c *Controller) ReserveMemory(bytes int64) error {
	if !c.TryAcquireMemory(bytes) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrMemoryLimit, bytes, c.MemoryUsage(), c.cfg.MemoryLimitBytes)
	}
	return nil
}

// AcquireMemory reserves bytes, blocking until they are available or ctx is
// canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if bytes > c.cfg.MemoryLimitBytes {
			return fmt.Errorf("%w: %d bytes exceeds the limit of %d", ErrMemoryLimit, bytes, c.cfg.MemoryLimitBytes)
		}
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireBackground reserves a worker slot, blocking while all are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil || c.bgSem == nil {
		return ctx.Err()
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil || c.bgSem == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil || c.bgSem == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows bytes. Requests larger than one
// second of budget are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
