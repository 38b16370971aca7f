package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(x, y, z float32) []float32 { return []float32{x, y, z} }

func TestHNSWVectorRepo_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("b", "Bar", "main")))

	repo := NewHNSWVectorRepo(s, 3, "")
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Upsert(ctx, "b", unitVec(0, 1, 0)))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].SymbolID)
}

func TestHNSWVectorRepo_Upsert_WrongDimensionRejected(t *testing.T) {
	s := newTestStore(t)
	repo := NewHNSWVectorRepo(s, 3, "")

	err := repo.Upsert(context.Background(), "a", []float32{1, 0})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
}

func TestHNSWVectorRepo_Search_FiltersByBranch(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("b", "Bar", "feature")))

	repo := NewHNSWVectorRepo(s, 3, "")
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Upsert(ctx, "b", unitVec(1, 0, 0)))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 5, "main")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].SymbolID)
}

func TestHNSWVectorRepo_Delete(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))

	repo := NewHNSWVectorRepo(s, 3, "")
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Delete(ctx, "a"))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWVectorRepo_SaveAndLoad_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	repo := NewHNSWVectorRepo(s, 3, path)
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Save())

	reloaded := NewHNSWVectorRepo(s, 3, path)
	require.NoError(t, reloaded.Load())

	results, err := reloaded.Search(ctx, unitVec(1, 0, 0), 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].SymbolID)
}

func TestScanVectorRepo_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("b", "Bar", "main")))

	repo := NewScanVectorRepo(s, 3)
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Upsert(ctx, "b", unitVec(0, 1, 0)))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].SymbolID)
}

func TestScanVectorRepo_Search_FiltersByBranch(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, symRepo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, symRepo.Upsert(ctx, testSymbol("b", "Bar", "feature")))

	repo := NewScanVectorRepo(s, 3)
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.Upsert(ctx, "b", unitVec(1, 0, 0)))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 5, "feature")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].SymbolID)
}

func TestScanVectorRepo_DeleteByFile(t *testing.T) {
	s := newTestStore(t)
	symRepo := NewSymbolRepo(s)
	ctx := context.Background()
	sym := testSymbol("a", "Foo", "main")
	sym.FilePath = "pkg/foo.go"
	require.NoError(t, symRepo.Upsert(ctx, sym))

	repo := NewScanVectorRepo(s, 3)
	require.NoError(t, repo.Upsert(ctx, "a", unitVec(1, 0, 0)))
	require.NoError(t, repo.DeleteByFile(ctx, "pkg/foo.go", "main"))

	results, err := repo.Search(ctx, unitVec(1, 0, 0), 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewVectorRepo_DefaultsToHNSW(t *testing.T) {
	s := newTestStore(t)

	repo, err := NewVectorRepo(s, "", 3, "")
	require.NoError(t, err)
	_, ok := repo.(*HNSWVectorRepo)
	assert.True(t, ok)
}

func TestNewVectorRepo_Scan(t *testing.T) {
	s := newTestStore(t)

	repo, err := NewVectorRepo(s, VectorBackendScan, 3, "")
	require.NoError(t, err)
	_, ok := repo.(*ScanVectorRepo)
	assert.True(t, ok)
}

func TestNewVectorRepo_UnknownBackend(t *testing.T) {
	s := newTestStore(t)

	_, err := NewVectorRepo(s, VectorBackend("nonsense"), 3, "")
	assert.Error(t, err)
}
