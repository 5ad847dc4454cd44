package store

import (
	"github.com/franz/fav-janitor/internal/util"
)

// Cache is the best-effort face of a Store: every storage error is logged
// and treated as a miss, so callers never depend on the cache for
// correctness. A Cache over a nil Store misses on every read and drops
// every write.
type Cache struct {
	store *Store
}

// NewCache wraps s; s may be nil
func NewCache(s *Store) *Cache {
	return &Cache{store: s}
}

// GetPath returns the cached, still-existing path for a favorite
func (c *Cache) GetPath(groupKey, identifier string) (string, bool) {
	if c == nil || c.store == nil {
		return "", false
	}
	path, ok, err := c.store.GetPath(groupKey, identifier)
	if err != nil {
		util.DebugLog("Cache read failed for %s/%s: %v", groupKey, identifier, err)
		return "", false
	}
	return path, ok
}

// PutPath records a resolved path
func (c *Cache) PutPath(groupKey, identifier, path string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.PutPath(groupKey, identifier, path); err != nil {
		util.DebugLog("Cache write failed for %s/%s: %v", groupKey, identifier, err)
	}
}

// GetMetadata returns computed metadata for an existing path
func (c *Cache) GetMetadata(path string) (*Metadata, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	m, err := c.store.GetMetadata(path)
	if err != nil {
		util.DebugLog("Cache metadata read failed for %s: %v", path, err)
		return nil, false
	}
	return m, m != nil
}

// PutMetadata stores an extraction result
func (c *Cache) PutMetadata(m *Metadata) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.PutMetadata(m); err != nil {
		util.DebugLog("Cache metadata write failed for %s: %v", m.Path, err)
	}
}
