package merkle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHashFile_FastPathSkipsRereadWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a")

	c := NewCache()
	first, err := c.HashFile(path)
	require.NoError(t, err)

	second, err := c.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestHashFile_DetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a")

	c := NewCache()
	first, err := c.HashFile(path)
	require.NoError(t, err)

	writeFile(t, dir, "a.go", "package a\n\nfunc x() {}")
	second, err := c.HashFile(path)
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestFindChanged_ClassifiesAddedModifiedUnchanged(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a")
	b := writeFile(t, dir, "b.go", "package b")

	c := NewCache()
	set, err := c.FindChanged([]string{a, b})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, set.Added)
	assert.Empty(t, set.Modified)
	assert.Empty(t, set.Unchanged)

	writeFile(t, dir, "a.go", "package a\n\nfunc y() {}")
	set, err = c.FindChanged([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, set.Modified)
	assert.Equal(t, []string{b}, set.Unchanged)
	assert.Empty(t, set.Added)
}

func TestFindDeleted_ReturnsFilesNoLongerPresent(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a")
	b := writeFile(t, dir, "b.go", "package b")

	c := NewCache()
	_, err := c.FindChanged([]string{a, b})
	require.NoError(t, err)

	deleted := c.FindDeleted([]string{a})
	assert.Equal(t, []string{b}, deleted)
}

func TestRemove_ClearsEntryAndMarksDirty(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a")

	c := NewCache()
	_, err := c.HashFile(a)
	require.NoError(t, err)
	c.BuildTree()
	assert.False(t, c.Dirty())

	c.Remove(a)
	_, ok := c.Get(a)
	assert.False(t, ok)
	assert.True(t, c.Dirty())
}
