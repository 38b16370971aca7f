package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeintel/engine/internal/store"
)

func TestRRFFusion_RanksDocInBothListsFirst(t *testing.T) {
	// Given: one doc present in both lists and one present in only the vector list
	vec := []store.VectorResult{
		{SymbolID: "a", Similarity: 0.9},
		{SymbolID: "b", Similarity: 0.8},
	}
	kw := []store.KeywordResult{
		{SymbolID: "a", Rank: 1.0},
	}

	// When: fusing with the default constant
	results := newRRFFusion(0).fuse(vec, kw)

	// Then: the doc appearing in both lists outranks the one in a single list
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].symbolID)
	assert.True(t, results[0].inBothLists)
	assert.False(t, results[1].inBothLists)
}

func TestRRFFusion_NormalizesScoresToUnitRange(t *testing.T) {
	// Given: a fused list with more than one entry
	vec := []store.VectorResult{{SymbolID: "a"}, {SymbolID: "b"}}
	kw := []store.KeywordResult{{SymbolID: "b"}, {SymbolID: "a"}}

	// When: fusing
	results := newRRFFusion(60).fuse(vec, kw)

	// Then: the top score is exactly 1.0 and all scores are in [0, 1]
	require.NotEmpty(t, results)
	assert.InDelta(t, 1.0, results[0].rrfScore, 1e-9)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.rrfScore, 0.0)
		assert.LessOrEqual(t, r.rrfScore, 1.0)
	}
}

func TestRRFFusion_EmptyListsProduceNoResults(t *testing.T) {
	// Given: two empty result lists
	results := newRRFFusion(60).fuse(nil, nil)

	// Then: fusion returns no candidates
	assert.Empty(t, results)
}
