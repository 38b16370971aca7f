package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeintel/engine/internal/config"
	engineerrors "github.com/codeintel/engine/internal/errors"
	"github.com/codeintel/engine/internal/store"
)

// retrievalLimit bounds how many hits each source contributes before
// fusion, independent of the caller-facing token budget.
const retrievalLimit = 20

// hydrationLimit bounds how many fused hits are hydrated into full Symbol
// records and considered for packing.
const hydrationLimit = 20

// graphExpansionSeeds is how many top hydrated symbols seed BFS expansion.
const graphExpansionSeeds = 5

// Retriever implements search(): parallel vector and keyword retrieval,
// RRF fusion, call-graph expansion, and token-budgeted context packing.
type Retriever struct {
	symbols  store.SymbolRepo
	edges    store.EdgeRepo
	keywords store.KeywordRepo
	vectors  store.VectorRepo
	cfg      config.RetrievalConfig
}

// New builds a Retriever over the given repos, using cfg for every default
// a Query leaves zero-valued or, for GraphDepth, set to GraphDepthUnset.
func New(symbols store.SymbolRepo, edges store.EdgeRepo, keywords store.KeywordRepo, vectors store.VectorRepo, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{symbols: symbols, edges: edges, keywords: keywords, vectors: vectors, cfg: cfg}
}

// Search runs the full retrieval pipeline for q and returns a packed
// Result ready to hand to a model.
func (r *Retriever) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()

	if q.Branch == "" {
		return nil, engineerrors.New(engineerrors.ErrCodeInvalidQuery, "search requires a branch", nil)
	}
	if len(q.Embedding) == 0 && strings.TrimSpace(q.QueryText) == "" {
		return nil, engineerrors.New(engineerrors.ErrCodeInvalidQuery, "search requires an embedding, query text, or both", nil)
	}

	q = r.applyDefaults(q)

	vecResults, kwResults, err := r.parallelSearch(ctx, q)
	if err != nil {
		return nil, err
	}

	kwResults, err = r.boostExactNameMatches(ctx, q, kwResults)
	if err != nil {
		return nil, err
	}

	fused := newRRFFusion(r.cfg.RRFK).fuse(vecResults, kwResults)
	if len(fused) > hydrationLimit {
		fused = fused[:hydrationLimit]
	}

	syms := make([]*store.Symbol, 0, len(fused))
	for _, h := range fused {
		sym, err := r.symbols.ByID(ctx, h.symbolID)
		if err != nil || sym == nil {
			continue
		}
		if !symbolTypeAllowed(q.SymbolTypes, sym.Type) {
			continue
		}
		syms = append(syms, sym)
	}

	seeds := syms
	if len(seeds) > graphExpansionSeeds {
		seeds = seeds[:graphExpansionSeeds]
	}

	expandedEdges, _, err := expandGraph(ctx, r.edges, seeds, q.Branch, q.GraphDepth, q.MaxFanOut, q.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	expandedSyms, allowed, err := r.hydrateExpansion(ctx, syms, expandedEdges, q.SymbolTypes)
	if err != nil {
		return nil, err
	}
	syms = expandedSyms
	expandedEdges = filterEdgesByAllowedNodes(expandedEdges, allowed)

	contextString, tokenCount := packContext(syms, q.MaxTokens)

	return &Result{
		Symbols:       syms,
		Edges:         expandedEdges,
		ContextString: contextString,
		TokenCount:    tokenCount,
		Metadata: Metadata{
			QueryTimeMS:     time.Since(start).Milliseconds(),
			VectorHits:      len(vecResults),
			KeywordHits:     len(kwResults),
			GraphExpansions: len(expandedEdges),
			Confidence:      classifyConfidence(len(vecResults), len(kwResults)),
		},
	}, nil
}

func (r *Retriever) applyDefaults(q Query) Query {
	if q.MaxTokens <= 0 {
		q.MaxTokens = r.cfg.MaxTokens
	}
	if q.GraphDepth == GraphDepthUnset {
		q.GraphDepth = r.cfg.GraphDepth
	}
	if q.GraphDepth < 0 {
		q.GraphDepth = 0
	}
	if q.GraphDepth > 3 {
		q.GraphDepth = 3
	}
	if q.MaxFanOut <= 0 {
		q.MaxFanOut = r.cfg.MaxFanOut
	}
	if q.ConfidenceThreshold <= 0 {
		q.ConfidenceThreshold = r.cfg.ConfidenceThreshold
	}
	return q
}

// parallelSearch runs vector and keyword retrieval concurrently, returning
// whatever each source produces even if the other fails.
func (r *Retriever) parallelSearch(ctx context.Context, q Query) ([]store.VectorResult, []store.KeywordResult, error) {
	var vecResults []store.VectorResult
	var kwResults []store.KeywordResult
	var vecErr, kwErr error

	g, gctx := errgroup.WithContext(ctx)

	if len(q.Embedding) > 0 {
		g.Go(func() error {
			vecResults, vecErr = r.vectors.Search(gctx, q.Embedding, retrievalLimit, q.Branch)
			return nil
		})
	}

	if strings.TrimSpace(q.QueryText) != "" {
		g.Go(func() error {
			kwResults, kwErr = r.keywords.Search(gctx, q.QueryText, retrievalLimit)
			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	if vecErr != nil && kwErr != nil {
		return nil, nil, engineerrors.New(engineerrors.ErrCodeInternal, "both vector and keyword search failed", vecErr)
	}

	return vecResults, kwResults, nil
}

// boostExactNameMatches scales the Rank of keyword hits whose symbol name
// or qualified name exactly matches the query text by ExactNameBoost,
// toward the better end, then re-sorts so fusion assigns them a better rank. Applied
// before fusion, per the pipeline's keyword-source boost step.
func (r *Retriever) boostExactNameMatches(ctx context.Context, q Query, kw []store.KeywordResult) ([]store.KeywordResult, error) {
	if len(kw) == 0 || strings.TrimSpace(q.QueryText) == "" {
		return kw, nil
	}

	boost := r.cfg.ExactNameBoost
	if boost <= 0 {
		boost = 1.0
	}
	needle := strings.ToLower(strings.TrimSpace(q.QueryText))

	boosted := make([]store.KeywordResult, len(kw))
	copy(boosted, kw)

	for i, k := range boosted {
		sym, err := r.symbols.ByID(ctx, k.SymbolID)
		if err != nil || sym == nil {
			continue
		}
		if strings.ToLower(sym.Name) == needle || strings.ToLower(sym.QualifiedName) == needle {
			// Rank is a bm25-style cost: lower is better. FTS5's bm25()
			// and the negated Bleve score are negative, so a negative
			// rank is multiplied by the boost and a positive one divided;
			// either way the hit moves toward the front.
			if k.Rank < 0 {
				boosted[i].Rank = k.Rank * boost
			} else {
				boosted[i].Rank = k.Rank / boost
			}
		}
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Rank < boosted[j].Rank
	})

	return boosted, nil
}

// hydrateExpansion fetches the symbols introduced by graph expansion,
// applies the symbol-type filter to the combined set, and drops any edge
// whose endpoint no longer survives that filter.
func (r *Retriever) hydrateExpansion(ctx context.Context, seeded []*store.Symbol, edges []*store.Edge, symbolTypes []store.SymbolType) ([]*store.Symbol, map[string]bool, error) {
	seen := make(map[string]bool, len(seeded))
	allowed := make(map[string]bool, len(seeded))
	out := make([]*store.Symbol, 0, len(seeded))
	for _, s := range seeded {
		seen[s.ID] = true
		allowed[s.ID] = true
		out = append(out, s)
	}

	var added []*store.Symbol
	for _, e := range edges {
		for _, id := range []string{e.SourceID, e.TargetID} {
			if seen[id] {
				continue
			}
			seen[id] = true
			sym, err := r.symbols.ByID(ctx, id)
			if err != nil || sym == nil {
				continue
			}
			if !symbolTypeAllowed(symbolTypes, sym.Type) {
				continue
			}
			allowed[sym.ID] = true
			added = append(added, sym)
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	return append(out, added...), allowed, nil
}

// filterEdgesByAllowedNodes drops edges whose endpoint was pruned by the
// symbol-type filter during expansion hydration.
func filterEdgesByAllowedNodes(edges []*store.Edge, allowed map[string]bool) []*store.Edge {
	kept := edges[:0:0]
	for _, e := range edges {
		if allowed[e.SourceID] && allowed[e.TargetID] {
			kept = append(kept, e)
		}
	}
	return kept
}

func classifyConfidence(vectorHits, keywordHits int) Confidence {
	if vectorHits > 0 && keywordHits > 0 {
		return ConfidenceHigh
	}
	if vectorHits+keywordHits >= 5 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}
