// Package merkle implements the change-detection cache that lets the index
// manager refresh a workspace incrementally instead of re-extracting every
// file on every update.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	engineerrors "github.com/codeintel/engine/internal/errors"
)

// Fingerprint is the cached state of a single file: its content hash plus
// the (mtime, size) pair used to avoid re-reading unchanged files.
type Fingerprint struct {
	Path    string    `json:"path"`
	Hash    string    `json:"hash"`
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
}

// ChangeSet classifies a set of candidate files against the cache.
type ChangeSet struct {
	Added     []string
	Modified  []string
	Unchanged []string
}

// Cache maps file paths to fingerprints and tracks whether it has been
// mutated since the last BuildTree or Save call.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Fingerprint
	dirty   bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Fingerprint)}
}

// Len reports the number of tracked files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the cached fingerprint for path, if any.
func (c *Cache) Get(path string) (Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.entries[path]
	return fp, ok
}

// HashFile returns the fingerprint for path. If a cached entry exists and
// both size and mtime are unchanged, the cached hash is returned without
// re-reading the file. Otherwise the file is re-read, hashed, and the cache
// entry is updated as a side effect.
func (c *Cache) HashFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, engineerrors.New(engineerrors.ErrCodeFileRead, "failed to stat "+path, err)
	}

	c.mu.RLock()
	cached, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && cached.Size == info.Size() && cached.ModTime.Equal(info.ModTime()) {
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, engineerrors.New(engineerrors.ErrCodeFileRead, "failed to open "+path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, engineerrors.New(engineerrors.ErrCodeFileRead, "failed to read "+path, err)
	}

	fp := Fingerprint{
		Path:    path,
		Hash:    hex.EncodeToString(h.Sum(nil)),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}

	c.mu.Lock()
	c.entries[path] = fp
	c.dirty = true
	c.mu.Unlock()

	return fp, nil
}

// FindChanged hashes every file in currentFiles and classifies each as
// added, modified, or unchanged relative to the cache. The cache is updated
// as a side effect of the underlying HashFile calls.
func (c *Cache) FindChanged(currentFiles []string) (ChangeSet, error) {
	var set ChangeSet
	for _, path := range currentFiles {
		c.mu.RLock()
		prev, existed := c.entries[path]
		c.mu.RUnlock()

		fp, err := c.HashFile(path)
		if err != nil {
			return ChangeSet{}, err
		}

		switch {
		case !existed:
			set.Added = append(set.Added, path)
		case prev.Hash != fp.Hash:
			set.Modified = append(set.Modified, path)
		default:
			set.Unchanged = append(set.Unchanged, path)
		}
	}
	return set, nil
}

// FindDeleted returns files present in the cache but absent from
// currentFiles. It does not mutate the cache; callers remove entries via
// Remove once the deletion has been applied downstream.
func (c *Cache) FindDeleted(currentFiles []string) []string {
	present := make(map[string]struct{}, len(currentFiles))
	for _, p := range currentFiles {
		present[p] = struct{}{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var deleted []string
	for path := range c.entries {
		if _, ok := present[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// Remove drops path from the cache, typically after its deletion has been
// applied to the store.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		delete(c.entries, path)
		c.dirty = true
	}
}

// Paths returns every path currently tracked by the cache, sorted.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Dirty reports whether the cache has changed since the last BuildTree or
// Save call.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}
