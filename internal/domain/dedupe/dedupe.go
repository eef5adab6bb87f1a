// Package dedupe tracks request idempotency keys so duplicate allocation
// requests are processed at most once within a window.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 50_000

// Deduper records seen request IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a request that failed to enqueue can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id   string
	seen time.Time
}

// inMemoryDeduper keeps ids in insertion order. When maxSize > 0 the oldest
// id is evicted on overflow; when ttl > 0 ids older than ttl are forgotten.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.index[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.removeElement(d.order.Front())
	}
	d.index[id] = d.order.PushBack(entry{id: id, seen: now})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[id]; ok {
		d.removeElement(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expire(d.now())
	return int64(d.order.Len())
}

// expire drops ids older than ttl. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(entry).seen) < d.ttl {
			return
		}
		d.removeElement(el)
	}
}

func (d *inMemoryDeduper) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(entry).id)
	d.order.Remove(el)
}
