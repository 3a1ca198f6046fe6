// Package tilecache implements a fixed-byte-budget LRU keyed on
// (owner, col, row), with reference-counted entries so a tile pinned
// by an in-flight read survives eviction pressure.
//
// The upstream hashicorp/golang-lru package (used elsewhere for tile
// caches) has no hook for "don't evict while referenced" — Get/Add
// either hit or silently replace. That invariant is load-bearing here:
// while an entry's refcount is above zero, eviction may unlink it from
// the LRU order but must not free its bytes. So the ordering structure
// is a plain intrusive container/list instead.
package tilecache

import (
	"container/list"
	"sync"

	"github.com/google/uuid"
)

// Owner identifies the Area (or other tile producer) a cached tile
// belongs to, scoping cache keys to one pyramid directory.
type Owner = uuid.UUID

// Key identifies one cached tile.
type Key struct {
	Owner Owner
	Col   int
	Row   int
}

type entry struct {
	key      Key
	bytes    []byte
	size     int64
	refcount int
	linked   bool
	elem     *list.Element
}

// Handle is returned by Get/Put; its Release must be called exactly
// once to drop the reference taken on construction.
type Handle struct {
	c *Cache
	e *entry
}

// Bytes returns the cached tile bytes. Valid until Release.
func (h *Handle) Bytes() []byte { return h.e.bytes }

// Release decrements the entry's refcount, freeing it immediately if
// it was already unlinked (evicted while pinned).
func (h *Handle) Release() {
	h.c.release(h.e)
}

// Cache is a mutex-protected map + LRU list. All operations are short
// critical sections; tile byte slices themselves are immutable once
// inserted and read outside the lock.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	used     int64
	index    map[Key]*entry
	order    *list.List // front = most recently used
}

// New returns a cache with the given byte budget. A zero or negative
// capacity disables eviction (unbounded), matching the "cache
// neutrality" testable property: behavior is the same modulo memory
// pressure, never modulo correctness.
func New(capacityBytes int64) *Cache {
	return &Cache{
		capacity: capacityBytes,
		index:    make(map[Key]*entry),
		order:    list.New(),
	}
}

// Get returns a pinned handle on a hit, or ok=false on a miss.
func (c *Cache) Get(k Key) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[k]
	if !ok {
		return nil, false
	}
	c.touch(e)
	e.refcount++
	return &Handle{c: c, e: e}, true
}

// Put inserts or replaces the tile at k, evicting unpinned
// least-recently-used entries as needed to stay within budget, and
// returns a pinned handle on the new entry.
func (c *Cache) Put(k Key, bytes []byte) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index[k]; ok {
		c.unlink(old)
	}

	e := &entry{key: k, bytes: bytes, size: int64(len(bytes)), refcount: 1}
	c.index[k] = e
	c.link(e)
	c.used += e.size

	c.evictToFit()
	return &Handle{c: c, e: e}
}

func (c *Cache) link(e *entry) {
	e.elem = c.order.PushFront(e)
	e.linked = true
}

func (c *Cache) unlink(e *entry) {
	if !e.linked {
		return
	}
	c.order.Remove(e.elem)
	e.elem = nil
	e.linked = false
	delete(c.index, e.key)
	c.used -= e.size
}

func (c *Cache) touch(e *entry) {
	if e.linked {
		c.order.MoveToFront(e.elem)
	}
}

// evictToFit unlinks (and, since they're unreferenced, frees)
// least-recently-used entries with refcount == 0 until the budget
// holds or no more evictable entries remain. Pinned entries are
// skipped but stay linked: they keep their place in the LRU order so
// that once released, the ordinary path picks them up again.
func (c *Cache) evictToFit() {
	if c.capacity <= 0 {
		return
	}
	for c.used > c.capacity {
		victim := c.findEvictable()
		if victim == nil {
			return
		}
		c.unlink(victim)
	}
}

func (c *Cache) findEvictable() *entry {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if e.refcount == 0 {
			return e
		}
	}
	return nil
}

// release decrements refcount; if the entry was already unlinked
// (evicted while pinned) and this was the last reference, its slot is
// simply dropped — unlink already removed it from index/list/used.
func (c *Cache) release(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.refcount--
	if e.refcount < 0 {
		e.refcount = 0
	}
	if e.refcount == 0 && !e.linked {
		// Already evicted; nothing further to free in Go (GC owns
		// e.bytes once unreachable). Covers eviction-while-pinned
		// followed by a later release.
		return
	}
	if e.refcount == 0 && c.capacity > 0 && c.used > c.capacity {
		c.evictToFit()
	}
}

// Stats reports current byte usage and entry count, for logging.
func (c *Cache) Stats() (usedBytes int64, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used, len(c.index)
}
