package server

import (
	"sync"
	"time"

	"github.com/mj1618/guidepilot/internal/platform"
)

// WindowCache keeps the last window enumeration for a short TTL, so agents
// polling list_windows do not enumerate the desktop on every call.
type WindowCache struct {
	mu      sync.Mutex
	windows []platform.Window
	stamp   time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewWindowCache creates a cache. A TTL of zero disables caching.
func NewWindowCache(ttl time.Duration) *WindowCache {
	return &WindowCache{ttl: ttl, now: time.Now}
}

// List returns the cached windows, calling list on a miss.
func (c *WindowCache) List(list func() ([]platform.Window, error)) ([]platform.Window, error) {
	if c.ttl <= 0 {
		return list()
	}

	c.mu.Lock()
	if c.windows != nil && c.now().Sub(c.stamp) < c.ttl {
		out := c.windows
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	windows, err := list()
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []platform.Window{}
	}

	c.mu.Lock()
	c.windows = windows
	c.stamp = c.now()
	c.mu.Unlock()
	return windows, nil
}

// Invalidate drops the cached list.
func (c *WindowCache) Invalidate() {
	c.mu.Lock()
	c.windows = nil
	c.mu.Unlock()
}
