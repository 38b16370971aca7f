package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoMapRepo_UpsertAndByPath(t *testing.T) {
	s := newTestStore(t)
	repo := NewRepoMapRepo(s)
	ctx := context.Background()

	entry := &RepoMapEntry{FilePath: "a.go", Branch: "main", ImportanceScore: 0.9, InDegree: 3, OutDegree: 1}
	require.NoError(t, repo.Upsert(ctx, entry))

	got, err := repo.ByPath(ctx, "a.go", "main")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.9, got.ImportanceScore)
}

func TestRepoMapRepo_TopByImportance_OrdersDescending(t *testing.T) {
	s := newTestStore(t)
	repo := NewRepoMapRepo(s)
	ctx := context.Background()

	entries := []*RepoMapEntry{
		{FilePath: "low.go", Branch: "main", ImportanceScore: 0.1},
		{FilePath: "high.go", Branch: "main", ImportanceScore: 0.9},
		{FilePath: "mid.go", Branch: "main", ImportanceScore: 0.5},
	}
	require.NoError(t, repo.UpsertMany(ctx, entries))

	top, err := repo.TopByImportance(ctx, "main", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high.go", top[0].FilePath)
	assert.Equal(t, "mid.go", top[1].FilePath)
}

func TestRepoMapRepo_DeleteByBranch(t *testing.T) {
	s := newTestStore(t)
	repo := NewRepoMapRepo(s)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &RepoMapEntry{FilePath: "a.go", Branch: "main", ImportanceScore: 0.5}))
	require.NoError(t, repo.Upsert(ctx, &RepoMapEntry{FilePath: "b.go", Branch: "feature", ImportanceScore: 0.5}))

	require.NoError(t, repo.DeleteByBranch(ctx, "main"))

	got, err := repo.ByPath(ctx, "a.go", "main")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.ByPath(ctx, "b.go", "feature")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
