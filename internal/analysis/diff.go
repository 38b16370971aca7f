package analysis

import (
	"context"

	"github.com/codeintel/engine/internal/store"
)

// edgeKey identifies an edge by its endpoints and type rather than its
// ID, since edge IDs are not guaranteed to line up across branches that
// were indexed independently.
type edgeKey struct {
	sourceID string
	targetID string
	edgeType store.EdgeType
}

// Diff compares sourceBranch against targetBranch and reports every
// symbol and edge that differs between them, plus the union of files
// touched by any of those changes.
func (a *Analyzer) Diff(ctx context.Context, sourceBranch, targetBranch string) (*BranchDiffResult, error) {
	sourceSymbols, sourceEdges, err := a.snapshot(ctx, sourceBranch)
	if err != nil {
		return nil, err
	}
	targetSymbols, targetEdges, err := a.snapshot(ctx, targetBranch)
	if err != nil {
		return nil, err
	}

	result := &BranchDiffResult{SourceBranch: sourceBranch, TargetBranch: targetBranch}
	affectedFiles := map[string]bool{}

	for name, sym := range sourceSymbols {
		prior, ok := targetSymbols[name]
		if !ok {
			result.Added = append(result.Added, SymbolChange{Symbol: sym, Kind: ChangeAdded})
			affectedFiles[sym.FilePath] = true
			continue
		}
		if mod, changed := compareSymbols(prior, sym); changed {
			result.Modified = append(result.Modified, SymbolChange{
				Symbol: sym, PriorSymbol: prior, Kind: ChangeModified, Modification: mod,
			})
			affectedFiles[sym.FilePath] = true
			affectedFiles[prior.FilePath] = true
		}
	}

	for name, prior := range targetSymbols {
		if _, ok := sourceSymbols[name]; !ok {
			result.Removed = append(result.Removed, SymbolChange{Symbol: prior, Kind: ChangeRemoved})
			affectedFiles[prior.FilePath] = true
		}
	}

	for key, e := range sourceEdges {
		if _, ok := targetEdges[key]; !ok {
			result.Edges = append(result.Edges, EdgeChange{Edge: e, Kind: ChangeAdded})
		}
	}
	for key, e := range targetEdges {
		if _, ok := sourceEdges[key]; !ok {
			result.Edges = append(result.Edges, EdgeChange{Edge: e, Kind: ChangeRemoved})
		}
	}

	for f := range affectedFiles {
		result.AffectedFiles = append(result.AffectedFiles, f)
	}

	return result, nil
}

// snapshot loads every symbol (keyed by qualified name) and edge (keyed
// by endpoints and type) reachable from branch's file list.
func (a *Analyzer) snapshot(ctx context.Context, branch string) (map[string]*store.Symbol, map[edgeKey]*store.Edge, error) {
	files, err := a.files.ByBranch(ctx, branch)
	if err != nil {
		return nil, nil, err
	}

	symbols := make(map[string]*store.Symbol)
	edges := make(map[edgeKey]*store.Edge)

	for _, f := range files {
		syms, err := a.symbols.ByFile(ctx, f.FilePath, branch)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range syms {
			symbols[s.QualifiedName] = s
		}

		fileEdges, err := a.edges.ByFile(ctx, f.FilePath, branch)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range fileEdges {
			edges[edgeKey{sourceID: e.SourceID, targetID: e.TargetID, edgeType: e.Type}] = e
		}
	}

	return symbols, edges, nil
}

// compareSymbols reports whether prior and current differ and, if so,
// which independent aspects changed: content, signature, and location
// are recorded as separate flags since a single edit can touch more
// than one at once.
func compareSymbols(prior, current *store.Symbol) (Modification, bool) {
	mod := Modification{
		ContentChanged:   prior.ContentHash != current.ContentHash,
		SignatureChanged: prior.Signature != current.Signature,
		LocationChanged: prior.FilePath != current.FilePath ||
			prior.StartLine != current.StartLine ||
			prior.EndLine != current.EndLine,
	}
	changed := mod.ContentChanged || mod.SignatureChanged || mod.LocationChanged
	return mod, changed
}
