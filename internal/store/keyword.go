package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
)

// SQLiteKeywordRepo implements KeywordRepo against the shared store's
// fts_symbols FTS5 virtual table. The trigram tokenizer indexes raw text
// directly, so unlike the bleve-backed implementation no camelCase/
// snake_case pre-tokenization happens before insert: trigram matching
// already finds substrings across identifier boundaries.
type SQLiteKeywordRepo struct {
	s *Store
}

var _ KeywordRepo = (*SQLiteKeywordRepo)(nil)

// NewSQLiteKeywordRepo returns a KeywordRepo backed by s's fts_symbols table.
func NewSQLiteKeywordRepo(s *Store) *SQLiteKeywordRepo {
	return &SQLiteKeywordRepo{s: s}
}

func (r *SQLiteKeywordRepo) Index(ctx context.Context, symbolID, name, qualifiedName, content, filePath string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fts_symbols WHERE symbol_id = ?", symbolID); err != nil {
			return FtsQuerySyntaxError("failed to clear existing fts entry", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fts_symbols(symbol_id, name, qualified_name, content, file_path) VALUES (?, ?, ?, ?, ?)`,
			symbolID, name, qualifiedName, content, filePath)
		if err != nil {
			return SchemaMigrationError("failed to index symbol for keyword search", err)
		}
		return nil
	})
}

// Search runs an FTS5 MATCH query against fts_symbols. A malformed query
// (FTS5 syntax error) is treated as an empty result set rather than a
// fatal error, per this store's contract for user-supplied search text.
func (r *SQLiteKeywordRepo) Search(ctx context.Context, query string, limit int) ([]KeywordResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT symbol_id, bm25(fts_symbols) AS rank
		FROM fts_symbols
		WHERE fts_symbols MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			slog.Warn("malformed fts5 query, returning empty result", slog.String("query", query), slog.String("error", err.Error()))
			return nil, nil
		}
		return nil, SchemaMigrationError("keyword search failed", err)
	}
	defer rows.Close()

	var out []KeywordResult
	for rows.Next() {
		var res KeywordResult
		if err := rows.Scan(&res.SymbolID, &res.Rank); err != nil {
			return nil, SchemaMigrationError("failed to scan keyword result", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate keyword results", err)
	}
	return out, nil
}

func (r *SQLiteKeywordRepo) Delete(ctx context.Context, symbolID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fts_symbols WHERE symbol_id = ?", symbolID); err != nil {
			return SchemaMigrationError("failed to delete keyword entry", err)
		}
		return nil
	})
}

func (r *SQLiteKeywordRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fts_symbols WHERE file_path = ?", path); err != nil {
			return SchemaMigrationError("failed to delete keyword entries by file", err)
		}
		return nil
	})
}

// Rebuild repopulates fts_symbols from the current contents of the symbols
// table. Used after a schema or tokenizer change where the FTS index must
// be regenerated from the source of truth rather than incrementally
// maintained.
func (r *SQLiteKeywordRepo) Rebuild(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fts_symbols"); err != nil {
			return SchemaMigrationError("failed to clear fts index for rebuild", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fts_symbols(symbol_id, name, qualified_name, content, file_path)
			SELECT id, name, qualified_name, content, file_path FROM symbols
		`)
		if err != nil {
			return SchemaMigrationError("failed to rebuild fts index", err)
		}
		return nil
	})
}

// Close is a no-op: the FTS5 table lives in the shared store connection,
// which the Store itself owns and closes.
func (r *SQLiteKeywordRepo) Close() error { return nil }
