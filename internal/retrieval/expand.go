package retrieval

import (
	"context"
	"sort"

	"github.com/codeintel/engine/internal/store"
)

// expandGraph walks CALLS edges outward from seeds (callers and callees)
// up to depth levels, dropping edges below confidenceThreshold and
// truncating each level to maxFanOut, sorted by descending confidence.
// Visited symbols are never revisited, so the walk terminates even on a
// cyclic call graph.
func expandGraph(
	ctx context.Context,
	edges store.EdgeRepo,
	seeds []*store.Symbol,
	branch string,
	depth, maxFanOut int,
	confidenceThreshold float64,
) ([]*store.Edge, map[string]bool, error) {
	visited := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		visited[s.ID] = true
	}

	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		frontier = append(frontier, s.ID)
	}

	var collected []*store.Edge

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		var levelEdges []*store.Edge

		for _, id := range frontier {
			callers, err := edges.Callers(ctx, id, branch)
			if err != nil {
				return nil, nil, err
			}
			callees, err := edges.Callees(ctx, id, branch)
			if err != nil {
				return nil, nil, err
			}
			levelEdges = append(levelEdges, callers...)
			levelEdges = append(levelEdges, callees...)
		}

		levelEdges = filterByConfidence(levelEdges, confidenceThreshold)
		sort.Slice(levelEdges, func(i, j int) bool {
			return levelEdges[i].Confidence > levelEdges[j].Confidence
		})
		if len(levelEdges) > maxFanOut {
			levelEdges = levelEdges[:maxFanOut]
		}

		for _, e := range levelEdges {
			collected = append(collected, e)
			for _, candidate := range []string{e.SourceID, e.TargetID} {
				if !visited[candidate] {
					visited[candidate] = true
					next = append(next, candidate)
				}
			}
		}

		frontier = next
	}

	return collected, visited, nil
}

func filterByConfidence(edges []*store.Edge, threshold float64) []*store.Edge {
	kept := edges[:0:0]
	for _, e := range edges {
		if e.Confidence >= threshold {
			kept = append(kept, e)
		}
	}
	return kept
}
