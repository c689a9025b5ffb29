package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
)

// DedupeAlerter wraps an Alerter with an in-memory LRU of delivered alerts,
// keyed by river and acquisition date. Reprocessing a scene (replay, series
// replacement) must not page an operator twice for the same observation.
type DedupeAlerter struct {
	inner   domain.Alerter
	cache   *lruCache
	metrics *observability.Metrics
}

// NewDedupeAlerter creates a dedupe decorator around an alerter.
func NewDedupeAlerter(inner domain.Alerter, maxEntries int, metrics *observability.Metrics) *DedupeAlerter {
	return &DedupeAlerter{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (d *DedupeAlerter) Send(ctx context.Context, a domain.Alert) error {
	key := fmt.Sprintf("%s|%s", a.River, a.AcquiredAt.UTC().Format("2006-01-02"))
	if _, ok := d.cache.get(key); ok {
		d.metrics.AlertCache.WithLabelValues("hit").Inc()
		return nil
	}
	d.metrics.AlertCache.WithLabelValues("miss").Inc()

	if err := d.inner.Send(ctx, a); err != nil {
		// Failed deliveries are not cached so the next critical scene for
		// this date retries.
		return err
	}
	d.cache.put(key, time.Now())
	return nil
}

// lruCache is a simple thread-safe LRU recording when each alert key was
// last delivered.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key         string
	deliveredAt time.Time
	prev        *entry
	next        *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	c.moveToFront(e)
	return e.deliveredAt, true
}

func (c *lruCache) put(key string, deliveredAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.deliveredAt = deliveredAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, deliveredAt: deliveredAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
