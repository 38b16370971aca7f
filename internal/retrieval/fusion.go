package retrieval

import (
	"sort"

	"github.com/codeintel/engine/internal/store"
)

// DefaultRRFConstant is the reciprocal rank fusion smoothing constant used
// when a Retriever is built without an explicit RRFK.
const DefaultRRFConstant = 60

// fusedHit holds the accumulated rank-fusion state for one symbol across
// the vector and keyword result lists.
type fusedHit struct {
	symbolID    string
	rrfScore    float64
	vecScore    float32
	kwScore     float64
	vecRank     int
	kwRank      int
	inBothLists bool
}

// rrfFusion combines vector and keyword hit lists with unweighted
// Reciprocal Rank Fusion: score(d) = sum over contributing lists of
// 1/(k + rank(d)). A list a symbol is absent from adds nothing to its
// score; its rank in that list is recorded as one past the end of the
// longer list.
type rrfFusion struct {
	k int
}

func newRRFFusion(k int) *rrfFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &rrfFusion{k: k}
}

// fuse ranks and merges vec and kw, each already sorted best-first. kw
// scores have already had the exact-name boost applied by the caller.
func (f *rrfFusion) fuse(vec []store.VectorResult, kw []store.KeywordResult) []*fusedHit {
	missingRank := len(vec)
	if len(kw) > missingRank {
		missingRank = len(kw)
	}
	missingRank++

	byID := make(map[string]*fusedHit)

	for i, v := range vec {
		rank := i + 1
		h := byID[v.SymbolID]
		if h == nil {
			h = &fusedHit{symbolID: v.SymbolID, vecRank: missingRank, kwRank: missingRank}
			byID[v.SymbolID] = h
		}
		h.vecRank = rank
		h.vecScore = v.Similarity
		h.rrfScore += 1.0 / float64(f.k+rank)
	}

	for i, k := range kw {
		rank := i + 1
		h := byID[k.SymbolID]
		if h == nil {
			h = &fusedHit{symbolID: k.SymbolID, vecRank: missingRank, kwRank: missingRank}
			byID[k.SymbolID] = h
		}
		h.kwRank = rank
		h.kwScore = k.Rank
		h.rrfScore += 1.0 / float64(f.k+rank)
	}

	results := make([]*fusedHit, 0, len(byID))
	for _, h := range byID {
		h.inBothLists = h.vecRank != missingRank && h.kwRank != missingRank
		results = append(results, h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].rrfScore != results[j].rrfScore {
			return results[i].rrfScore > results[j].rrfScore
		}
		if results[i].inBothLists != results[j].inBothLists {
			return results[i].inBothLists
		}
		if results[i].kwScore != results[j].kwScore {
			return results[i].kwScore > results[j].kwScore
		}
		return results[i].symbolID < results[j].symbolID
	})

	if len(results) > 0 && results[0].rrfScore > 0 {
		max := results[0].rrfScore
		for _, h := range results {
			h.rrfScore /= max
		}
	}

	return results
}
