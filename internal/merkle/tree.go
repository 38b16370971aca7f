package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// BuildTree computes a Merkle root over the cache's sorted (path, hash)
// pairs, duplicating the last node on odd levels. The result is
// deterministic for a given set of entries regardless of insertion order.
// Calling BuildTree clears the dirty flag.
func (c *Cache) BuildTree() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
	return buildTree(c.entries)
}

func buildTree(entries map[string]Fingerprint) string {
	if len(entries) == 0 {
		return leafHash("", "")
	}

	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	level := make([]string, 0, len(paths))
	for _, p := range paths {
		level = append(level, leafHash(p, entries[p].Hash))
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, pairHash(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

func leafHash(path, hash string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(hash))
	return hex.EncodeToString(h.Sum(nil))
}

func pairHash(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left))
	h.Write([]byte(right))
	return hex.EncodeToString(h.Sum(nil))
}
