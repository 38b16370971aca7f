package store

import "fmt"

// KeywordBackend selects the KeywordRepo implementation.
type KeywordBackend string

const (
	// KeywordBackendSQLite uses the shared store's FTS5 fts_symbols table
	// with a trigram tokenizer (default, concurrent multi-reader access).
	KeywordBackendSQLite KeywordBackend = "sqlite"

	// KeywordBackendBleve uses a standalone Bleve v2 index (legacy,
	// single-process access via BoltDB's exclusive file lock).
	KeywordBackendBleve KeywordBackend = "bleve"
)

// NewKeywordRepo builds a KeywordRepo for backend. The sqlite backend reuses
// s's existing connection and fts_symbols table; the bleve backend opens
// its own standalone index at blevePath (empty for in-memory, used in tests).
func NewKeywordRepo(s *Store, backend KeywordBackend, blevePath string) (KeywordRepo, error) {
	switch backend {
	case KeywordBackendSQLite, "":
		return NewSQLiteKeywordRepo(s), nil
	case KeywordBackendBleve:
		return NewBleveKeywordRepo(blevePath)
	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (valid options: sqlite, bleve)", backend)
	}
}
