// Package symbolcache implements the optional symbol-data cache: a
// mtime-validated (optionally content-hash-verified) cache of per-file
// FileSymbolData, evicted by LRU entry count via a doubly-linked list
// plus map.
package symbolcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/relctx/relctx/pkg/types"
)

// DefaultMaxEntries is a generous working set for a single project.
const DefaultMaxEntries = 1000

type entry struct {
	file         string
	data         types.FileSymbolData
	mtimeUnixNs  int64
	contentHash  string
	accessCount  int64
}

// Cache is the LRU-ordered symbol-data cache.
type Cache struct {
	mu              sync.Mutex
	maxEntries      int
	useHashValidate bool

	order   *list.List // front = most recently used
	byFile  map[string]*list.Element

	hits, misses, invalidations int64
}

// New builds a Cache bounded by maxEntries (0 uses DefaultMaxEntries).
// useHashValidate additionally compares a SHA-256 content hash, trading
// read cost for stronger validity than mtime alone.
func New(maxEntries int, useHashValidate bool) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries:      maxEntries,
		useHashValidate: useHashValidate,
		order:           list.New(),
		byFile:          make(map[string]*list.Element),
	}
}

// Get returns file's cached FileSymbolData if present and valid (mtime
// matches, file exists, hash matches when enabled). A miss or
// invalidation removes any stale entry.
func (c *Cache) Get(file string) (types.FileSymbolData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byFile[file]
	if !ok {
		c.misses++
		return types.FileSymbolData{}, false
	}

	e := el.Value.(*entry)
	if !c.isValidLocked(e) {
		c.removeLocked(el)
		c.invalidations++
		c.misses++
		return types.FileSymbolData{}, false
	}

	e.accessCount++
	c.order.MoveToFront(el)
	c.hits++
	return e.data, true
}

// Set caches data for file, reading the current mtime (and, if enabled,
// content hash) as the validity baseline. A file that cannot be stat'd
// is silently not cached.
func (c *Cache) Set(file string, data types.FileSymbolData) {
	info, err := os.Stat(file)
	if err != nil {
		return
	}

	var hash string
	if c.useHashValidate {
		h, herr := hashFile(file)
		if herr == nil {
			hash = h
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byFile[file]; ok {
		c.removeLocked(el)
	}
	for c.order.Len() >= c.maxEntries {
		c.evictOldestLocked()
	}

	e := &entry{file: file, data: data, mtimeUnixNs: info.ModTime().UnixNano(), contentHash: hash}
	el := c.order.PushFront(e)
	c.byFile[file] = el
}

// IsValid reports whether file has a cached, currently-valid entry
// without affecting LRU order or hit/miss counters.
func (c *Cache) IsValid(file string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byFile[file]
	if !ok {
		return false
	}
	return c.isValidLocked(el.Value.(*entry))
}

func (c *Cache) isValidLocked(e *entry) bool {
	info, err := os.Stat(e.file)
	if err != nil {
		return false
	}
	if info.ModTime().UnixNano() != e.mtimeUnixNs {
		return false
	}
	if c.useHashValidate && e.contentHash != "" {
		hash, err := hashFile(e.file)
		if err != nil || hash != e.contentHash {
			return false
		}
	}
	return true
}

// Invalidate drops file's entry, if any.
func (c *Cache) Invalidate(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byFile[file]; ok {
		c.removeLocked(el)
		c.invalidations++
	}
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.byFile = make(map[string]*list.Element)
	c.invalidations++
}

func (c *Cache) evictOldestLocked() {
	oldest := c.order.Back()
	if oldest != nil {
		c.removeLocked(oldest)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.byFile, e.file)
	c.order.Remove(el)
}

// Stats is a snapshot of the cache's counters.
type Stats struct {
	Entries       int
	MaxEntries    int
	Hits          int64
	Misses        int64
	HitRate       float64
	Invalidations int64
}

func (c *Cache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Entries:       c.order.Len(),
		MaxEntries:    c.maxEntries,
		Hits:          c.hits,
		Misses:        c.misses,
		HitRate:       rate,
		Invalidations: c.invalidations,
	}
}

// CachedFiles returns every file currently holding a valid entry.
func (c *Cache) CachedFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if c.isValidLocked(e) {
			out = append(out, e.file)
		}
	}
	return out
}

func hashFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
