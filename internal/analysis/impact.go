package analysis

import (
	"context"

	"github.com/codeintel/engine/internal/config"
	engineerrors "github.com/codeintel/engine/internal/errors"
	"github.com/codeintel/engine/internal/store"
)

// Analyzer implements impact() and diff() over a store.
type Analyzer struct {
	symbols store.SymbolRepo
	edges   store.EdgeRepo
	files   store.FileRepo
	cfg     config.AnalysisConfig
}

// New builds an Analyzer over the given repos, using cfg for every
// ImpactOptions field a caller leaves zero-valued.
func New(symbols store.SymbolRepo, edges store.EdgeRepo, files store.FileRepo, cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{symbols: symbols, edges: edges, files: files, cfg: cfg}
}

// Impact walks the callers of symbolID breadth-first up to opts.Depth
// levels (config default when zero), filtering edges below
// opts.ConfidenceThreshold (config default when zero), and reports the
// direct and transitive dependent counts, one representative path to
// each visited symbol, and a risk classification.
//
// Impact only walks callers, never callees: the question it answers is
// "what breaks if I change this", not "what does this depend on".
func (a *Analyzer) Impact(ctx context.Context, symbolID, branch string, opts ImpactOptions) (*ImpactReport, error) {
	target, err := a.symbols.ByID(ctx, symbolID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, engineerrors.New(engineerrors.ErrCodeInvalidQuery, "unknown symbol: "+symbolID, nil)
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = a.cfg.ImpactDepth
	}
	threshold := opts.ConfidenceThreshold
	if threshold <= 0 {
		threshold = a.cfg.ImpactConfidenceThreshold
	}

	visited := map[string]bool{symbolID: true}
	paths := map[string][]string{symbolID: {target.QualifiedName}}

	directCount := 0
	degraded := false
	hitDepthCap := false
	missingSymbol := false

	frontier := []string{symbolID}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string

		for _, id := range frontier {
			callerEdges, err := a.edges.Callers(ctx, id, branch)
			if err != nil {
				return nil, err
			}

			for _, e := range callerEdges {
				if e.Confidence < threshold {
					continue
				}

				caller, err := a.symbols.ByID(ctx, e.SourceID)
				if err != nil {
					return nil, err
				}
				if caller == nil {
					missingSymbol = true
					continue
				}
				if caller.UpdatedAt.After(e.UpdatedAt) {
					degraded = true
				}

				if level == 0 {
					directCount++
				}

				if visited[caller.ID] {
					continue
				}
				visited[caller.ID] = true

				path := append(append([]string{}, paths[id]...), caller.QualifiedName)
				paths[caller.ID] = path
				next = append(next, caller.ID)
			}
		}

		frontier = next
		if level == depth-1 && len(next) > 0 {
			hitDepthCap = true
		}
	}

	transitive := len(visited) - 1

	allPaths := make([][]string, 0, len(paths)-1)
	for id, p := range paths {
		if id == symbolID {
			continue
		}
		allPaths = append(allPaths, p)
	}

	confidence := ImpactConfidenceHigh
	if degraded {
		confidence = ImpactConfidenceDegraded
	} else if hitDepthCap || missingSymbol {
		confidence = ImpactConfidenceMedium
	}

	return &ImpactReport{
		SymbolID:             symbolID,
		DirectDependents:     directCount,
		TransitiveDependents: transitive,
		Paths:                allPaths,
		Risk:                 riskForCount(transitive),
		Confidence:           confidence,
	}, nil
}
