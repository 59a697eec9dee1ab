package rendercache

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"flowquest/internal/logging"
	"flowquest/internal/segment"
)

// ErrCacheCorruption marks an entry whose payload no longer matches its
// stored checksum. The entry is evicted and the lookup treated as a miss.
var ErrCacheCorruption = errors.New("cache entry corrupted")

// RenderFunc produces the segment for a fingerprint on a cache miss.
type RenderFunc func(ctx context.Context) (segment.Segment, error)

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Shared      uint64
	Evictions   uint64
	Corruptions uint64
	Entries     int
}

type cacheEntry struct {
	fingerprint string
	seg         segment.Segment
	checksum    string
	createdAt   time.Time
	// elem is nil once the entry has been evicted by policy while pinned;
	// the payload stays readable but the next GetOrRender re-renders it.
	elem *list.Element
}

type flight struct {
	done chan struct{}
	seg  segment.Segment
	err  error
}

// Cache is a content-addressed render cache keyed by fingerprint, with LRU
// plus TTL eviction and single-flight render coalescing. Entries pinned by
// the published manifest survive policy eviction as stale payloads until
// unpinned.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[string]*cacheEntry
	flights  map[string]*flight
	pins     map[string]int
	logger   *slog.Logger
	now      func() time.Time

	hits        uint64
	misses      uint64
	shared      uint64
	evictions   uint64
	corruptions uint64
}

// New builds a cache holding at most capacity fresh entries. A zero ttl
// disables expiry.
func New(capacity int, ttl time.Duration, logger *slog.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*cacheEntry),
		flights:  make(map[string]*flight),
		pins:     make(map[string]int),
		logger:   logging.NewComponentLogger(logger, "rendercache"),
		now:      time.Now,
	}
}

// Get returns the cached segment for the fingerprint. Stale, expired, and
// corrupted entries all count as misses.
func (c *Cache) Get(fingerprint string) (segment.Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lookupLocked(fingerprint)
	if !ok {
		c.misses++
		return segment.Segment{}, false
	}
	c.hits++
	c.ll.MoveToFront(entry.elem)
	return entry.seg, true
}

// GetOrRender returns the cached segment or renders it, coalescing concurrent
// requests for the same fingerprint into a single render. A failed render is
// not cached; every coalesced waiter receives the error.
func (c *Cache) GetOrRender(ctx context.Context, fingerprint string, render RenderFunc) (segment.Segment, error) {
	c.mu.Lock()
	if entry, ok := c.lookupLocked(fingerprint); ok {
		c.hits++
		c.ll.MoveToFront(entry.elem)
		seg := entry.seg
		c.mu.Unlock()
		return seg, nil
	}
	if f, ok := c.flights[fingerprint]; ok {
		c.shared++
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.seg, f.err
		case <-ctx.Done():
			return segment.Segment{}, ctx.Err()
		}
	}
	c.misses++
	f := &flight{done: make(chan struct{})}
	c.flights[fingerprint] = f
	c.mu.Unlock()

	seg, err := render(ctx)

	c.mu.Lock()
	f.seg, f.err = seg, err
	delete(c.flights, fingerprint)
	if err == nil {
		c.putLocked(fingerprint, seg)
	}
	c.mu.Unlock()
	close(f.done)
	return seg, err
}

// Put stores a segment without going through a render flight.
func (c *Cache) Put(fingerprint string, seg segment.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(fingerprint, seg)
}

// Pin marks the fingerprint as referenced by a published manifest.
func (c *Cache) Pin(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins[fingerprint]++
}

// Unpin releases one manifest reference. Stale payloads kept alive only by
// the pin are dropped once the count reaches zero.
func (c *Cache) Unpin(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.pins[fingerprint] - 1
	if n > 0 {
		c.pins[fingerprint] = n
		return
	}
	delete(c.pins, fingerprint)
	if entry, ok := c.items[fingerprint]; ok && entry.elem == nil {
		delete(c.items, fingerprint)
	}
}

// Stats returns the counter snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Shared:      c.shared,
		Evictions:   c.evictions,
		Corruptions: c.corruptions,
		Entries:     len(c.items),
	}
}

// lookupLocked resolves a fresh, intact entry or clears the slot and reports
// a miss. Callers hold c.mu.
func (c *Cache) lookupLocked(fingerprint string) (*cacheEntry, bool) {
	entry, ok := c.items[fingerprint]
	if !ok || entry.elem == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		c.dropLocked(entry)
		return nil, false
	}
	if entry.seg.Checksum() != entry.checksum {
		c.corruptions++
		c.logger.Warn("evicting corrupted entry",
			logging.String(logging.FieldFingerprint, fingerprint),
			logging.Error(ErrCacheCorruption),
			logging.String(logging.FieldErrorHint, "segment re-renders on next access"),
		)
		c.ll.Remove(entry.elem)
		delete(c.items, fingerprint)
		return nil, false
	}
	return entry, true
}

func (c *Cache) putLocked(fingerprint string, seg segment.Segment) {
	if old, ok := c.items[fingerprint]; ok && old.elem != nil {
		c.ll.Remove(old.elem)
	}
	entry := &cacheEntry{
		fingerprint: fingerprint,
		seg:         seg,
		checksum:    seg.Checksum(),
		createdAt:   c.now(),
	}
	entry.elem = c.ll.PushFront(entry)
	c.items[fingerprint] = entry
	for c.ll.Len() > c.capacity {
		victim := c.ll.Back().Value.(*cacheEntry)
		c.dropLocked(victim)
	}
}

// dropLocked evicts an entry. Pinned entries keep their payload and are
// marked stale instead of being removed outright.
func (c *Cache) dropLocked(entry *cacheEntry) {
	c.ll.Remove(entry.elem)
	entry.elem = nil
	c.evictions++
	if c.pins[entry.fingerprint] == 0 {
		delete(c.items, entry.fingerprint)
	}
}
