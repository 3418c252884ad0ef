// Package cache implements the working-memory cache: an LRU-ordered map
// from file path to its contents, bounded by a byte cap, with
// demand-driven staleness against a watcher-supplied timestamp falling
// back to file mtime. Internally locked so the watcher thread can
// invalidate entries while the graph thread reads.
package cache

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/relctx/relctx/internal/relctxerr"
)

// WatcherTimestamp resolves the last event time recorded by the file
// watcher for path, or the zero time if none is known.
type WatcherTimestamp func(path string) (time.Time, bool)

// Entry is one cached file's content plus bookkeeping.
type Entry struct {
	Content    []byte
	Size       int64
	CachedAt   time.Time
	LastAccess time.Time
}

// Stats counts cache activity. Peak values survive Clear.
type Stats struct {
	Hits             int64
	Misses           int64
	StalenessRefresh int64
	Evictions        int64
	CurrentBytes     int64
	PeakBytes        int64
	CurrentEntries   int
	PeakEntries      int
}

// Cache is the working-memory file content cache.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	maxBytes  int64
	curBytes  int64
	watcherTs WatcherTimestamp
	stats     Stats
}

// New returns an empty Cache bounded by maxBytes. watcherTs may be nil,
// in which case staleness always falls back to file mtime.
func New(maxBytes int64, watcherTs WatcherTimestamp) *Cache {
	if watcherTs == nil {
		watcherTs = func(string) (time.Time, bool) { return time.Time{}, false }
	}
	return &Cache{
		entries:   make(map[string]*Entry),
		maxBytes:  maxBytes,
		watcherTs: watcherTs,
	}
}

// LineRange selects a 1-based, inclusive, clamped slice of a file's
// lines. A zero value for both fields means "the whole file".
type LineRange struct {
	Start int
	End   int
}

// Get returns file's content (optionally sliced to lineRange), reading
// through to disk on a miss or staleness, and serving from cache
// otherwise. maxReadBytes applies the same size guard the analyzer uses
// for its own reads; 0 disables it.
func (c *Cache) Get(file string, lineRange LineRange, maxReadBytes int64) ([]byte, error) {
	c.mu.Lock()
	entry, hit := c.entries[file]
	c.mu.Unlock()

	if hit && !c.isStale(file, entry) {
		c.mu.Lock()
		entry.LastAccess = time.Now()
		c.stats.Hits++
		c.mu.Unlock()
		return sliceLines(entry.Content, lineRange), nil
	}

	content, err := readGuarded(file, maxReadBytes)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if hit {
		c.stats.StalenessRefresh++
	} else {
		c.stats.Misses++
	}
	c.store(file, content)
	c.mu.Unlock()

	return sliceLines(content, lineRange), nil
}

// isStale is the demand-driven staleness test: prefer the watcher's
// last-event timestamp; fall back to file mtime when the watcher has no
// timestamp for path.
func (c *Cache) isStale(file string, entry *Entry) bool {
	if ts, ok := c.watcherTs(file); ok {
		return ts.After(entry.CachedAt)
	}
	info, err := os.Stat(file)
	if err != nil {
		return true
	}
	return info.ModTime().After(entry.CachedAt)
}

// store inserts content under file, evicting least-recently-used entries
// until the cache fits within maxBytes. If content alone exceeds
// maxBytes it is returned to the caller without being cached; the caller
// already counted the miss or staleness refresh.
func (c *Cache) store(file string, content []byte) {
	size := int64(len(content))
	if old, ok := c.entries[file]; ok {
		c.curBytes -= old.Size
		delete(c.entries, file)
	}
	if size > c.maxBytes {
		c.stats.CurrentBytes = c.curBytes
		c.stats.CurrentEntries = len(c.entries)
		return
	}

	for c.curBytes+size > c.maxBytes && len(c.entries) > 0 {
		c.evictOneLocked()
	}

	now := time.Now()
	c.entries[file] = &Entry{Content: content, Size: size, CachedAt: now, LastAccess: now}
	c.curBytes += size

	if c.curBytes > c.stats.PeakBytes {
		c.stats.PeakBytes = c.curBytes
	}
	if len(c.entries) > c.stats.PeakEntries {
		c.stats.PeakEntries = len(c.entries)
	}
	c.stats.CurrentBytes = c.curBytes
	c.stats.CurrentEntries = len(c.entries)
}

// evictOneLocked drops the entry with the oldest LastAccess, scanning
// the map rather than maintaining a linked list. Caller holds c.mu.
func (c *Cache) evictOneLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
			first = false
		}
	}
	if oldestKey == "" {
		return
	}
	c.curBytes -= c.entries[oldestKey].Size
	delete(c.entries, oldestKey)
	c.stats.Evictions++
}

// Invalidate drops file's cached entry, if any.
func (c *Cache) Invalidate(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[file]; ok {
		c.curBytes -= entry.Size
		delete(c.entries, file)
		c.stats.CurrentBytes = c.curBytes
		c.stats.CurrentEntries = len(c.entries)
	}
}

// Clear drops every entry. Statistics persist; peak values do not
// reset.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.curBytes = 0
	c.stats.CurrentBytes = 0
	c.stats.CurrentEntries = 0
}

// Statistics returns a snapshot of the cache's counters.
func (c *Cache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func readGuarded(file string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, relctxerr.New(relctxerr.KindIoError, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, relctxerr.New(relctxerr.KindFileTooLarge, fmt.Errorf("%s: %d bytes", file, info.Size()))
	}
	return os.ReadFile(file)
}

// sliceLines returns the 1-based inclusive lines [r.Start, r.End] of
// content, clamped to the file's actual bounds. A zero-value LineRange
// returns content unchanged.
func sliceLines(content []byte, r LineRange) []byte {
	if r.Start == 0 && r.End == 0 {
		return content
	}
	lines := bytes.Split(content, []byte("\n"))
	start := r.Start - 1
	if start < 0 {
		start = 0
	}
	end := r.End
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}
	return bytes.Join(lines[start:end], []byte("\n"))
}
