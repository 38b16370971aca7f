// Package retrieval implements search(): hybrid vector and keyword
// retrieval, reciprocal rank fusion, call-graph expansion, and
// token-budgeted context packing into a single result a caller can feed
// straight to a model.
package retrieval

import "github.com/codeintel/engine/internal/store"

// GraphDepthUnset is Query.GraphDepth's sentinel for "use the configured
// default." It is not the Go zero value: a Query literal that omits
// GraphDepth gets 0 (seed set, no expansion), not the configured default,
// so any caller that wants the default must set GraphDepth explicitly.
const GraphDepthUnset = -1

// Query describes one search() call. Embedding and QueryText are each
// optional, but at least one must be set for a source to contribute hits.
type Query struct {
	// Embedding is the query vector for nearest-neighbor search. Nil skips
	// the vector source.
	Embedding []float32
	// QueryText is the raw query for keyword search. Empty skips the
	// keyword source.
	QueryText string
	// Branch scopes every lookup. Required.
	Branch string
	// MaxTokens bounds the packed context budget. Zero uses the configured
	// default.
	MaxTokens int
	// GraphDepth bounds the BFS depth walked over CALLS edges from the top
	// hydrated symbols. Clamped to [0, 3]. GraphDepthUnset uses the
	// configured default; an explicit 0 returns the seed set untraversed,
	// with no graph expansion at all.
	GraphDepth int
	// MaxFanOut truncates expansion results per BFS level. Zero uses the
	// configured default.
	MaxFanOut int
	// ConfidenceThreshold filters expansion edges below this confidence.
	// Zero uses the configured default.
	ConfidenceThreshold float64
	// SymbolTypes, if non-empty, restricts both fused hits and graph
	// expansion to these symbol types.
	SymbolTypes []store.SymbolType
}

// Confidence summarizes how much signal contributed to a Result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Metadata reports how a Result was assembled.
type Metadata struct {
	QueryTimeMS     int64
	VectorHits      int
	KeywordHits     int
	GraphExpansions int
	Confidence      Confidence
}

// Result is the outcome of a search() call: the hydrated symbols and
// edges that contributed, a packed context string ready to hand to a
// model, and the metadata describing how it was assembled.
type Result struct {
	Symbols       []*store.Symbol
	Edges         []*store.Edge
	ContextString string
	TokenCount    int
	Metadata      Metadata
}

// symbolTypeAllowed reports whether t passes an (possibly empty) filter.
func symbolTypeAllowed(filter []store.SymbolType, t store.SymbolType) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == t {
			return true
		}
	}
	return false
}
