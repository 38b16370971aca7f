// Package store provides the engine's single embedded, ACID, file-backed
// persistence layer: symbols, edges, file records, a trigram full-text
// index, and a vector index, all backed by one SQLite database.
package store

import (
	"context"
	"fmt"
	"time"
)

// SymbolType enumerates the kinds of declarations a symbol can represent.
type SymbolType string

const (
	SymbolTypeFunction    SymbolType = "FUNCTION"
	SymbolTypeMethod      SymbolType = "METHOD"
	SymbolTypeClass       SymbolType = "CLASS"
	SymbolTypeInterface   SymbolType = "INTERFACE"
	SymbolTypeTypeAlias   SymbolType = "TYPE_ALIAS"
	SymbolTypeEnum        SymbolType = "ENUM"
	SymbolTypeVariable    SymbolType = "VARIABLE"
	SymbolTypeModule      SymbolType = "MODULE"
)

// EdgeType enumerates the directed relationships tracked between symbols.
type EdgeType string

const (
	EdgeTypeCalls     EdgeType = "CALLS"
	EdgeTypeImports   EdgeType = "IMPORTS"
	EdgeTypeExtends   EdgeType = "EXTENDS"
	EdgeTypeImplements EdgeType = "IMPLEMENTS"
	EdgeTypeUses      EdgeType = "USES"
	EdgeTypeDefines   EdgeType = "DEFINES"
	EdgeTypeReexports EdgeType = "REEXPORTS"
)

// EdgeOrigin records how an edge was discovered.
type EdgeOrigin string

const (
	EdgeOriginLSP          EdgeOrigin = "lsp"
	EdgeOriginSCIP         EdgeOrigin = "scip"
	EdgeOriginASTInference EdgeOrigin = "ast-inference"
)

// FileStatus tracks a FileRecord through the index manager's state machine.
type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusIndexing FileStatus = "indexing"
	FileStatusIndexed  FileStatus = "indexed"
	FileStatusError    FileStatus = "error"
)

// Symbol is a named, addressable piece of source.
//
// Identity invariant: ID = hash16(QualifiedName + Signature + Language).
// Two symbols with identical inputs across branches produce the same ID;
// this is the deduplication key applied by the index manager before
// persistence, not by the store itself.
type Symbol struct {
	ID                string
	Name              string
	QualifiedName     string
	Type              SymbolType
	Language          string
	FilePath          string
	StartLine         int
	EndLine           int
	Content           string
	Signature         string
	Docstring         string
	ContentHash       string
	IsExternal        bool
	Branch            string
	EmbeddingModelID  string
	UpdatedAt         time.Time
	RevisionID        int64
}

// Edge is a directed, typed relationship between two symbols.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Type       EdgeType
	Confidence float64
	Origin     EdgeOrigin
	Branch     string
	SourceLine int
	TargetLine int
	UpdatedAt  time.Time
	Metadata   map[string]string
}

// FileRecord is per-branch file metadata keyed by (FilePath, Branch).
type FileRecord struct {
	FilePath       string
	Branch         string
	FileHash       string
	MTime          time.Time
	Size           int64
	LastIndexed    time.Time
	Language       string
	Status         FileStatus
	SymbolCount    int
	ImportanceRank float64
	ErrorMessage   string
}

// RepoMapEntry is a per-file, per-branch importance record.
type RepoMapEntry struct {
	FilePath        string
	Branch          string
	ImportanceScore float64
	InDegree        int
	OutDegree       int
	SymbolSummary   string
}

// KeywordResult is one hit from a KeywordRepo search: lower Rank is better,
// matching SQLite FTS5's bm25() convention.
type KeywordResult struct {
	SymbolID string
	Rank     float64
}

// VectorResult is one hit from a VectorRepo search.
type VectorResult struct {
	SymbolID   string
	Distance   float32
	Similarity float32
}

// SymbolRepo persists and retrieves Symbol records.
type SymbolRepo interface {
	Upsert(ctx context.Context, sym *Symbol) error
	UpsertMany(ctx context.Context, syms []*Symbol) error
	ByID(ctx context.Context, id string) (*Symbol, error)
	ByFile(ctx context.Context, path, branch string) ([]*Symbol, error)
	ByName(ctx context.Context, name, branch string) ([]*Symbol, error)
	ByType(ctx context.Context, t SymbolType, branch string) ([]*Symbol, error)
	DeleteByFile(ctx context.Context, path, branch string) error
	DeleteByBranch(ctx context.Context, branch string) error
	Count(ctx context.Context, branch string) (int, error)
	All(ctx context.Context, branch string, limit int) ([]*Symbol, error)
}

// EdgeRepo persists and retrieves Edge records.
type EdgeRepo interface {
	Upsert(ctx context.Context, e *Edge) error
	UpsertMany(ctx context.Context, edges []*Edge) error
	ByID(ctx context.Context, id string) (*Edge, error)
	ByFile(ctx context.Context, path, branch string) ([]*Edge, error)
	DeleteByFile(ctx context.Context, path, branch string) error
	DeleteByBranch(ctx context.Context, branch string) error
	Count(ctx context.Context, branch string) (int, error)

	// Callers returns edges of type CALLS whose TargetID is targetID.
	Callers(ctx context.Context, targetID, branch string) ([]*Edge, error)
	// Callees returns edges of type CALLS whose SourceID is sourceID.
	Callees(ctx context.Context, sourceID, branch string) ([]*Edge, error)
}

// FileRepo persists and retrieves FileRecord rows.
type FileRepo interface {
	Upsert(ctx context.Context, f *FileRecord) error
	ByPath(ctx context.Context, path, branch string) (*FileRecord, error)
	ByStatus(ctx context.Context, status FileStatus, branch string) ([]*FileRecord, error)
	ByBranch(ctx context.Context, branch string) ([]*FileRecord, error)
	UpdateStatus(ctx context.Context, path, branch string, status FileStatus, errMsg string) error
	UpdateSymbolCount(ctx context.Context, path, branch string, count int) error
	DeleteByPath(ctx context.Context, path, branch string) error
	DeleteByBranch(ctx context.Context, branch string) error
}

// KeywordRepo indexes symbol text for trigram-tokenized full-text search.
type KeywordRepo interface {
	Index(ctx context.Context, symbolID, name, qualifiedName, content, filePath string) error
	Search(ctx context.Context, query string, limit int) ([]KeywordResult, error)
	Delete(ctx context.Context, symbolID string) error
	DeleteByFile(ctx context.Context, path, branch string) error
	Rebuild(ctx context.Context) error
	Close() error
}

// VectorRepo indexes symbol embeddings for nearest-neighbor search.
type VectorRepo interface {
	Upsert(ctx context.Context, symbolID string, vector []float32) error
	Search(ctx context.Context, queryVector []float32, k int, branch string) ([]VectorResult, error)
	Delete(ctx context.Context, symbolID string) error
	DeleteByFile(ctx context.Context, path, branch string) error
	Close() error
}

// DefaultCodeStopWords contains programming keywords filtered out of the
// legacy Bleve keyword backend's custom analyzer. The SQLite FTS5 backend
// tokenizes with trigram matching instead and does not use this list.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// ErrDimensionMismatch indicates a vector was upserted or queried with a
// dimension different from the one the vector repo was created with.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'codeintel index rebuild --force')", e.Expected, e.Got)
}
