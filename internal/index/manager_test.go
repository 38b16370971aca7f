package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeintel/engine/internal/embed"
	"github.com/codeintel/engine/internal/extract"
	"github.com/codeintel/engine/internal/merkle"
	"github.com/codeintel/engine/internal/scanner"
	"github.com/codeintel/engine/internal/store"
)

const sampleGoSource = `package sample

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return Add(a, -b)
}
`

func newTestManager(t *testing.T, rootDir string) (*Manager, *store.Store) {
	t.Helper()

	st, err := store.Open(store.Config{Path: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	vectors, err := store.NewVectorRepo(st, store.VectorBackendScan, embed.StaticDimensions, "")
	require.NoError(t, err)
	keywords, err := store.NewKeywordRepo(st, store.KeywordBackendSQLite, "")
	require.NoError(t, err)

	sc, err := scanner.New()
	require.NoError(t, err)

	opts := Options{
		RootDir:   rootDir,
		Branch:    "main",
		CachePath: filepath.Join(rootDir, ".codeintel", "merkle-cache.json"),
	}

	mgr := NewManager(opts, Deps{
		Symbols:  store.NewSymbolRepo(st),
		Edges:    store.NewEdgeRepo(st),
		Files:    store.NewFileRepo(st),
		Keywords: keywords,
		Vectors:  vectors,
		Embedder: embed.NewStaticEmbedder(embed.StaticDimensions),
		Adapters: extract.NewAdapterRegistry(),
		Scanner:  sc,
		Cache:    merkle.NewCache(),
	})
	return mgr, st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestManager_Update_IndexesNewFiles(t *testing.T) {
	// Given: a project with a single Go source file
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource)

	mgr, st := newTestManager(t, root)

	// When: running an incremental update
	summary, err := mgr.Update(context.Background())

	// Then: the file is indexed and its symbols are persisted
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.FilesIndexed)
	assert.Equal(t, 0, summary.FilesFailed)
	assert.True(t, summary.ChunksAdded >= 2)

	symbols := store.NewSymbolRepo(st)
	syms, err := symbols.ByFile(context.Background(), "sample.go", "main")
	require.NoError(t, err)
	assert.Len(t, syms, 2)
}

func TestManager_Update_NoChanges_IsNoOp(t *testing.T) {
	// Given: an already-indexed project
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource)

	mgr, _ := newTestManager(t, root)
	_, err := mgr.Update(context.Background())
	require.NoError(t, err)

	// When: updating again with no file changes
	summary, err := mgr.Update(context.Background())

	// Then: nothing is re-indexed
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FilesIndexed)
}

func TestManager_Update_ReindexesModifiedFile(t *testing.T) {
	// Given: an indexed file that is subsequently modified
	root := t.TempDir()
	path := filepath.Join(root, "sample.go")
	writeFile(t, path, sampleGoSource)

	mgr, st := newTestManager(t, root)
	_, err := mgr.Update(context.Background())
	require.NoError(t, err)

	writeFile(t, path, sampleGoSource+"\nfunc Mul(a, b int) int {\n\treturn a * b\n}\n")

	// When: updating again
	summary, err := mgr.Update(context.Background())

	// Then: the file is re-extracted and its new symbol appears
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesIndexed)

	symbols := store.NewSymbolRepo(st)
	syms, err := symbols.ByFile(context.Background(), "sample.go", "main")
	require.NoError(t, err)
	assert.Len(t, syms, 3)
}

func TestManager_Update_RemovesDeletedFile(t *testing.T) {
	// Given: an indexed file that is then deleted
	root := t.TempDir()
	path := filepath.Join(root, "sample.go")
	writeFile(t, path, sampleGoSource)

	mgr, st := newTestManager(t, root)
	_, err := mgr.Update(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	// When: updating again
	summary, err := mgr.Update(context.Background())

	// Then: its symbols are removed from the store
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesDeleted)

	symbols := store.NewSymbolRepo(st)
	syms, err := symbols.ByFile(context.Background(), "sample.go", "main")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestManager_Rebuild_ReindexesEverything(t *testing.T) {
	// Given: an indexed project
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource)

	mgr, _ := newTestManager(t, root)
	_, err := mgr.Update(context.Background())
	require.NoError(t, err)

	// When: rebuilding
	summary, err := mgr.Rebuild(context.Background())

	// Then: the file is indexed again from a clean store
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesIndexed)
}

func TestManager_Update_ConcurrentCallReturnsInProgress(t *testing.T) {
	// Given: a manager flagged as already indexing
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource)
	mgr, _ := newTestManager(t, root)
	mgr.indexing.Store(true)

	// When: calling Update concurrently
	_, err := mgr.Update(context.Background())

	// Then: it reports the in-progress error instead of racing the first run
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_501_INDEXING_IN_PROGRESS")
}

func TestManager_EnsureFresh_NoOpWithinCooldown(t *testing.T) {
	// Given: a manager with auto-refresh enabled and a recent refresh
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource)
	mgr, st := newTestManager(t, root)
	mgr.opts.AutoRefresh = true

	_, err := mgr.Update(context.Background())
	require.NoError(t, err)
	mgr.lastRefresh.Store(mgr.lastRefresh.Load())

	writeFile(t, filepath.Join(root, "sample.go"), sampleGoSource+"\nfunc Mul(a, b int) int { return a * b }\n")

	// When: EnsureFresh runs immediately after (well within the cooldown)
	mgr.EnsureFresh(context.Background())

	// Then: the modified file is not yet re-indexed
	symbols := store.NewSymbolRepo(st)
	syms, err := symbols.ByFile(context.Background(), "sample.go", "main")
	require.NoError(t, err)
	assert.Len(t, syms, 2)
}

func TestFileLock_ExclusiveAcrossInstances(t *testing.T) {
	// Given: two FileLock instances over the same directory
	dir := t.TempDir()
	l1 := NewFileLock(dir)
	l2 := NewFileLock(dir)

	// When: the first lock is held
	require.NoError(t, l1.Lock())
	defer func() { _ = l1.Unlock() }()

	// Then: a second attempt to acquire it fails without blocking
	acquired, err := l2.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)
}
