package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSymbol(id, name, branch string) *Symbol {
	return &Symbol{
		ID:            id,
		Name:          name,
		QualifiedName: "pkg." + name,
		Type:          SymbolTypeFunction,
		Language:      "go",
		FilePath:      "pkg/file.go",
		StartLine:     1,
		EndLine:       10,
		Content:       "func " + name + "() {}",
		ContentHash:   "hash-" + id,
		Branch:        branch,
		UpdatedAt:     time.Unix(1700000000, 0),
	}
}

func TestSymbolRepo_UpsertAndByID(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	sym := testSymbol("sym1", "DoThing", "main")
	require.NoError(t, repo.Upsert(ctx, sym))

	got, err := repo.ByID(ctx, "sym1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "DoThing", got.Name)
	assert.Equal(t, SymbolTypeFunction, got.Type)
}

func TestSymbolRepo_ByID_MissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)

	got, err := repo.ByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSymbolRepo_Upsert_IsIdempotentOnConflict(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	sym := testSymbol("sym1", "DoThing", "main")
	require.NoError(t, repo.Upsert(ctx, sym))

	sym.Content = "func DoThing() { /* changed */ }"
	require.NoError(t, repo.Upsert(ctx, sym))

	count, err := repo.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.ByID(ctx, "sym1")
	require.NoError(t, err)
	assert.Contains(t, got.Content, "changed")
}

func TestSymbolRepo_UpsertMany(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	syms := []*Symbol{
		testSymbol("a", "Foo", "main"),
		testSymbol("b", "Bar", "main"),
	}
	require.NoError(t, repo.UpsertMany(ctx, syms))

	count, err := repo.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSymbolRepo_ByName(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, repo.Upsert(ctx, testSymbol("b", "Foo", "main")))

	got, err := repo.ByName(ctx, "Foo", "main")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSymbolRepo_ByType(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	sym := testSymbol("a", "Foo", "main")
	sym.Type = SymbolTypeClass
	require.NoError(t, repo.Upsert(ctx, sym))
	require.NoError(t, repo.Upsert(ctx, testSymbol("b", "Bar", "main")))

	got, err := repo.ByType(ctx, SymbolTypeClass, "main")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got[0].Name)
}

func TestSymbolRepo_ByFile(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	sym := testSymbol("a", "Foo", "main")
	sym.FilePath = "pkg/other.go"
	require.NoError(t, repo.Upsert(ctx, sym))
	require.NoError(t, repo.Upsert(ctx, testSymbol("b", "Bar", "main")))

	got, err := repo.ByFile(ctx, "pkg/other.go", "main")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got[0].Name)
}

func TestSymbolRepo_DeleteByFile(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, repo.DeleteByFile(ctx, "pkg/file.go", "main"))

	count, err := repo.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSymbolRepo_DeleteByBranch(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testSymbol("a", "Foo", "main")))
	require.NoError(t, repo.Upsert(ctx, testSymbol("b", "Bar", "feature")))

	require.NoError(t, repo.DeleteByBranch(ctx, "main"))

	mainCount, err := repo.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 0, mainCount)

	featureCount, err := repo.Count(ctx, "feature")
	require.NoError(t, err)
	assert.Equal(t, 1, featureCount)
}

func TestSymbolRepo_All_RespectsLimit(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Upsert(ctx, testSymbol(id, "Sym"+id, "main")))
	}

	got, err := repo.All(ctx, "main", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := repo.All(ctx, "main", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSymbolRepo_BranchIsolation(t *testing.T) {
	s := newTestStore(t)
	repo := NewSymbolRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testSymbol("a", "Foo", "main")))

	got, err := repo.ByName(ctx, "Foo", "other-branch")
	require.NoError(t, err)
	assert.Empty(t, got)
}
