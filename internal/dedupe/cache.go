// ABOUTME: TTL cache suppressing redelivered channel webhook activities.
// ABOUTME: Keyed by activity id; thread-safe with bounded size.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry tracks when a key was seen and where it sits in eviction order.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache remembers recently seen activity ids so a redelivered webhook is
// acknowledged without being dispatched twice. Size-bounded with
// oldest-first eviction; expired entries are reaped in the background.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // keys oldest-first
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a cache holding keys for ttl, capped at maxSize entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.reap()
	return c
}

// Seen atomically checks whether key was seen within the TTL window and
// marks it if not. Returns true for a duplicate.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}
	c.mark(key)
	return false
}

// mark records key, evicting the oldest entry at capacity. Caller holds mu.
func (c *Cache) mark(key string) {
	now := time.Now()

	if e, ok := c.seen[key]; ok {
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			delete(c.seen, oldest.Value.(string))
			c.order.Remove(oldest)
		}
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &entry{seenAt: now, element: elem}
}

// reap periodically drops expired entries.
func (c *Cache) reap() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			for e := c.order.Front(); e != nil; {
				key := e.Value.(string)
				next := e.Next()
				if time.Since(c.seen[key].seenAt) >= c.ttl {
					delete(c.seen, key)
					c.order.Remove(e)
				}
				e = next
			}
			c.mu.Unlock()
		}
	}
}

// Len returns the number of tracked keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Close stops the background reaper. Safe to call once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}
