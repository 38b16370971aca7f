package merkle

import (
	"encoding/json"
	"os"
	"path/filepath"

	engineerrors "github.com/codeintel/engine/internal/errors"
)

// CurrentCacheSchemaVersion is bumped whenever the on-disk cache format
// changes shape.
const CurrentCacheSchemaVersion = 1

type cacheFile struct {
	SchemaVersion int           `json:"schema_version"`
	Entries       []Fingerprint `json:"entries"`
}

// Save writes the cache to path as JSON via a temp-file-then-rename so a
// crash mid-write never leaves a truncated cache on disk.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	entries := make([]Fingerprint, 0, len(c.entries))
	for _, fp := range c.entries {
		entries = append(entries, fp)
	}
	c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return engineerrors.StoreError("failed to create directory for merkle cache", err)
	}

	payload, err := json.Marshal(cacheFile{SchemaVersion: CurrentCacheSchemaVersion, Entries: entries})
	if err != nil {
		return engineerrors.New(engineerrors.ErrCodeSerializeEmbedding, "failed to marshal merkle cache", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return engineerrors.StoreError("failed to write merkle cache", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return engineerrors.StoreError("failed to install merkle cache", err)
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Load restores the cache from path. A missing file or unreadable/corrupt
// content yields an empty cache rather than an error, matching the spec's
// tolerance for a fresh start when the persisted snapshot can't be trusted.
func Load(path string) (*Cache, error) {
	c := NewCache()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, nil
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return NewCache(), nil
	}
	if cf.SchemaVersion != CurrentCacheSchemaVersion {
		return NewCache(), nil
	}

	for _, fp := range cf.Entries {
		c.entries[fp.Path] = fp
	}
	return c, nil
}
