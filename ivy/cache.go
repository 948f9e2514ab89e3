/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package ivy

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/magiconair/properties"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/resolve"
)

// ModuleRevision is a module revision found in a repository.
type ModuleRevision struct {
	Descriptor *Descriptor
	Repository Repository
	// Location of the descriptor, empty for a default descriptor.
	Location string
}

// DescriptorCache provides a thread-safe cache for loaded descriptors.
// Entries are keyed by the Ivy notation of the module revision.
type DescriptorCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string // LRU order tracking
	maxSize int
}

type cacheEntry struct {
	mr   *ModuleRevision
	once sync.Once
	err  error
}

// NewDescriptorCache creates a new descriptor cache with the specified maximum size.
// When the cache exceeds this size, the oldest entries are evicted.
func NewDescriptorCache(maxSize int) *DescriptorCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &DescriptorCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached module revision.
// Returns nil, false if not in cache or if loading it failed.
func (c *DescriptorCache) Get(id RevisionID) (*ModuleRevision, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id.String()]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	entry.once.Do(func() {})
	if entry.err != nil {
		return nil, false
	}
	return entry.mr, true
}

// GetOrLoad retrieves a cached module revision or loads it using the provided loader.
// The loader is called at most once per module revision, even with concurrent access.
func (c *DescriptorCache) GetOrLoad(id RevisionID, loader func() (*ModuleRevision, error)) (*ModuleRevision, error) {
	key := id.String()

	// Fast path: check if already cached
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		// Double-check after acquiring write lock
		entry, ok = c.entries[key]
		if !ok {
			entry = &cacheEntry{}
			c.entries[key] = entry

			// Evict oldest if at capacity
			if len(c.entries) > c.maxSize {
				oldest := c.order[0]
				c.order = c.order[1:]
				delete(c.entries, oldest)
			}
			c.order = append(c.order, key)
		}
		c.mu.Unlock()
	}

	// Load outside the lock
	entry.once.Do(func() {
		entry.mr, entry.err = loader()
	})

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.mr, nil
}

// Size returns the current number of entries in the cache.
func (c *DescriptorCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachePattern is the layout of downloaded artifacts under the cache root.
const CachePattern = "[organisation]/[module]/[type]s/[artifact]-[revision].[ext]"

// ArtifactCache stores downloaded artifacts and records where each of them
// came from, the way Ivy's repository cache keeps ivydata files.
type ArtifactCache struct {
	fs      fs.FileSystem
	root    string
	pattern *Pattern
}

// NewArtifactCache creates a cache rooted at root.
func NewArtifactCache(fsys fs.FileSystem, root string) *ArtifactCache {
	p, _ := ParsePattern(CachePattern)
	return &ArtifactCache{fs: fsys, root: root, pattern: p}
}

// Root returns the cache directory.
func (c *ArtifactCache) Root() string {
	return c.root
}

// Path returns where an artifact of a module revision is cached.
func (c *ArtifactCache) Path(id RevisionID, a Artifact) string {
	return filepath.Join(c.root, filepath.FromSlash(c.pattern.Expand(Values(id, a))))
}

// Store writes an artifact into the cache and returns its path.
func (c *ArtifactCache) Store(id RevisionID, a Artifact, data []byte) (string, error) {
	path := c.Path(id, a)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory for %s: %w", id, err)
	}
	if err := c.fs.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to cache %s of %s: %w", a.Name, id, err)
	}
	return path, nil
}

func (c *ArtifactCache) dataPath(id RevisionID) string {
	return filepath.Join(c.root, id.Module.Org, id.Module.Name, "ivydata-"+id.Revision+".properties")
}

func originKey(a resolve.ArtifactOrigin, typ string) string {
	return "artifact." + a.Name + "#" + typ + "#" + a.Ext
}

// SaveOrigins records the origins of a module revision's artifacts.
// types holds the artifact type of each origin.
func (c *ArtifactCache) SaveOrigins(id RevisionID, origins []resolve.ArtifactOrigin, types []string) error {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for i, o := range origins {
		key := originKey(o, types[i])
		if _, _, err := p.Set(key+".location", o.Location); err != nil {
			return err
		}
		if _, _, err := p.Set(key+".is-local", strconv.FormatBool(o.Local)); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.ISO_8859_1); err != nil {
		return fmt.Errorf("failed to encode origins of %s: %w", id, err)
	}
	path := c.dataPath(id)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory for %s: %w", id, err)
	}
	if err := c.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save origins of %s: %w", id, err)
	}
	return nil
}

// Origins returns the recorded origins of a module revision's artifacts,
// in the order they were saved.
func (c *ArtifactCache) Origins(id RevisionID) ([]resolve.ArtifactOrigin, error) {
	path := c.dataPath(id)
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no saved origins for %s: %w", id, err)
	}
	l := &properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt origins for %s in %s: %w", id, path, err)
	}

	var origins []resolve.ArtifactOrigin
	for _, key := range p.Keys() {
		artifactKey, ok := strings.CutSuffix(key, ".location")
		if !ok {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(artifactKey, "artifact."), "#")
		if len(parts) != 3 {
			return nil, fmt.Errorf("corrupt origins for %s: bad key %q", id, key)
		}
		location, _ := p.Get(key)
		local, _ := strconv.ParseBool(p.GetString(artifactKey+".is-local", "false"))
		origins = append(origins, resolve.ArtifactOrigin{
			Name:     parts[0],
			Ext:      parts[2],
			Location: location,
			Local:    local,
		})
	}
	return origins, nil
}
