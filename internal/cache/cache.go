// Package cache memoizes validation reports by request payload so
// repeated runs over the same cohort and configuration are served
// without recomputation. Runs are deterministic for a fixed seed, so a
// cached report is exactly the report a fresh run would produce.
package cache

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/clinscore/trs/internal/validation"
)

// item is a cached report with expiration
type item struct {
	report    *validation.Report
	expiresAt time.Time
}

func (i *item) expired() bool {
	return time.Now().After(i.expiresAt)
}

// ReportCache provides thread-safe report caching with TTL
type ReportCache struct {
	mu    sync.RWMutex
	items map[string]*item
	ttl   time.Duration
	stop  chan struct{}
}

// NewReportCache creates a new cache with the specified TTL
func NewReportCache(ttl time.Duration) *ReportCache {
	c := &ReportCache{
		items: make(map[string]*item),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// cleanup removes expired items periodically
func (c *ReportCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			for key, it := range c.items {
				if it.expired() {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Key creates a consistent cache key from the raw request payload
func Key(payload []byte) string {
	hash := md5.Sum(payload)
	return fmt.Sprintf("%x", hash)
}

// Get retrieves a cached report
func (c *ReportCache) Get(key string) (*validation.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, exists := c.items[key]
	if !exists || it.expired() {
		return nil, false
	}
	return it.report, true
}

// Set stores a report under key
func (c *ReportCache) Set(key string, report *validation.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{
		report:    report,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Len returns the number of cached reports, expired included
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop terminates the cleanup goroutine
func (c *ReportCache) Stop() {
	close(c.stop)
}
