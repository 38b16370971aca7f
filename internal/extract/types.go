// Package extract turns source text into the raw symbols and edges the
// index manager persists. Per-language adapters share a single tree-sitter
// parsing core; a capability registry keyed by file extension selects the
// adapter for a given path, falling back to a no-op adapter for unknown
// extensions.
package extract

import "github.com/codeintel/engine/internal/store"

// RawSymbol is a symbol as discovered by an adapter, before the index
// manager assigns its canonical id and content hash.
type RawSymbol struct {
	Name          string
	QualifiedName string
	Type          store.SymbolType
	StartLine     int
	EndLine       int
	Content       string
	Signature     string
	Docstring     string
}

// RawEdge is an edge as discovered by an adapter or a RelationshipSource,
// before the index manager resolves source/target ids against the symbol
// table and assigns the edge's own id.
type RawEdge struct {
	SourceQualifiedName string
	TargetName          string
	Type                store.EdgeType
	Confidence          float64
	Origin              store.EdgeOrigin
	SourceLine          int
	TargetLine          int
}

// Result is what a single file extraction produces. Err is set when the
// adapter failed partway through; per the failure policy, Symbols and Edges
// are still whatever was recovered (possibly empty), never nil on error.
type Result struct {
	Symbols []RawSymbol
	Edges   []RawEdge
	Err     error
}

// Edge is a fully resolved relationship produced by an external source
// (LSP, SCIP, ast-grep) that the index manager consumes verbatim instead of
// deriving from the AST.
type Edge struct {
	SourceID   string
	TargetID   string
	Type       store.EdgeType
	Confidence float64
	SourceLine int
	TargetLine int
}

// RelationshipSource is an optional, externally supplied source of edges
// for a file. When present, its output is tagged origin=lsp or origin=scip
// and takes precedence over AST-inferred call edges for the same
// (source_id, target_id, type) key.
type RelationshipSource interface {
	EdgesForFile(path, branch string) ([]Edge, error)
	Origin() store.EdgeOrigin
}

// Adapter is the per-language capability set: given source text and its
// path, extract raw symbols and edges.
type Adapter interface {
	Language() string
	Extract(path string, source []byte) Result
}
