package truth

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Cache holds the active index snapshot per family and rebuilds on demand
// when the underlying truth data changes. Indexes are immutable, so a reload
// swaps the active pointer and in-flight lookups finish against the old
// snapshot. A failed reload keeps the previous index in service
// (fail-static, not fail-empty).
type Cache struct {
	dir     string
	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewCache creates a Cache reading truth files from dir (<family>.yaml).
func NewCache(dir string) *Cache {
	return &Cache{
		dir:     dir,
		indexes: make(map[string]*Index),
	}
}

// Dir returns the truth-data directory.
func (c *Cache) Dir() string { return c.dir }

// familyPath returns the truth file path for a family.
func (c *Cache) familyPath(family string) string {
	return filepath.Join(c.dir, family+".yaml")
}

// Load returns the index for a family, building it on first use. If the
// source data's digest matches the cached index, the cached index is
// returned unchanged (no rebuild). Malformed data fails with a
// *DataCorruptionError and leaves any prior index live.
func (c *Cache) Load(family string) (*Index, error) {
	data, err := os.ReadFile(c.familyPath(family))
	if err != nil {
		return nil, fmt.Errorf("read truth data for family %q: %w", family, err)
	}

	hash := contentHash(data)

	c.mu.RLock()
	cached := c.indexes[family]
	c.mu.RUnlock()
	if cached != nil && cached.hash == hash {
		return cached, nil
	}

	ix, err := buildIndex(family, data, hash)
	if err != nil {
		return nil, &DataCorruptionError{Family: family, Err: err}
	}

	c.mu.Lock()
	c.indexes[family] = ix
	c.mu.Unlock()

	log.Printf("[truth] family %q: index built (%d plugins, %d patterns, hash %.8s)",
		family, ix.PluginCount(), ix.PatternCount(), hash)
	return ix, nil
}

// Current returns the active index for a family without touching disk, or
// nil if none has been built yet.
func (c *Cache) Current(family string) *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[family]
}

// CurrentHash computes the digest of the family's source data as it exists
// on disk right now. Comparing it with the active index's Hash detects
// staleness without rebuilding.
func (c *Cache) CurrentHash(family string) (string, error) {
	data, err := os.ReadFile(c.familyPath(family))
	if err != nil {
		return "", fmt.Errorf("read truth data for family %q: %w", family, err)
	}
	return contentHash(data), nil
}

// Reload forces a load and logs instead of propagating reload failures; the
// previous snapshot stays in service. Used by the change watcher.
func (c *Cache) Reload(family string) {
	if _, err := c.Load(family); err != nil {
		log.Printf("[truth] family %q: reload failed, keeping previous index: %v", family, err)
	}
}

// Families lists families with an active index.
func (c *Cache) Families() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	families := make([]string, 0, len(c.indexes))
	for f := range c.indexes {
		families = append(families, f)
	}
	return families
}

// Discover lists the families available on disk, loaded or not, by scanning
// the truth directory for <family>.yaml files. Sorted for stable output.
func (c *Cache) Discover() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read truth dir %q: %w", c.dir, err)
	}

	var families []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if family, ok := familyFromPath(entry.Name()); ok {
			families = append(families, family)
		}
	}
	sort.Strings(families)
	return families, nil
}
