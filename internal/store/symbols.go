package store

import (
	"context"
	"database/sql"
	"time"
)

// SQLSymbolRepo implements SymbolRepo against the store's symbols table.
type SQLSymbolRepo struct {
	s *Store
}

// NewSymbolRepo returns a SymbolRepo backed by s.
func NewSymbolRepo(s *Store) *SQLSymbolRepo {
	return &SQLSymbolRepo{s: s}
}

const upsertSymbolSQL = `
INSERT INTO symbols (
	id, name, qualified_name, type, language, file_path, start_line, end_line,
	content, signature, docstring, content_hash, is_external, branch,
	embedding_model_id, updated_at, revision_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	qualified_name = excluded.qualified_name,
	type = excluded.type,
	language = excluded.language,
	file_path = excluded.file_path,
	start_line = excluded.start_line,
	end_line = excluded.end_line,
	content = excluded.content,
	signature = excluded.signature,
	docstring = excluded.docstring,
	content_hash = excluded.content_hash,
	is_external = excluded.is_external,
	branch = excluded.branch,
	embedding_model_id = excluded.embedding_model_id,
	updated_at = excluded.updated_at,
	revision_id = excluded.revision_id
`

func execUpsertSymbol(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, sym *Symbol) error {
	isExternal := 0
	if sym.IsExternal {
		isExternal = 1
	}
	_, err := q.ExecContext(ctx, upsertSymbolSQL,
		sym.ID, sym.Name, sym.QualifiedName, string(sym.Type), sym.Language, sym.FilePath,
		sym.StartLine, sym.EndLine, sym.Content, sym.Signature, sym.Docstring, sym.ContentHash,
		isExternal, sym.Branch, sym.EmbeddingModelID, sym.UpdatedAt.UnixNano(), sym.RevisionID,
	)
	return err
}

func (r *SQLSymbolRepo) Upsert(ctx context.Context, sym *Symbol) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := execUpsertSymbol(ctx, tx, sym); err != nil {
			return SchemaMigrationError("failed to upsert symbol", err)
		}
		return nil
	})
}

func (r *SQLSymbolRepo) UpsertMany(ctx context.Context, syms []*Symbol) error {
	if len(syms) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, sym := range syms {
			if err := execUpsertSymbol(ctx, tx, sym); err != nil {
				return SchemaMigrationError("failed to upsert symbol batch", err)
			}
		}
		return nil
	})
}

const selectSymbolColumns = `
	id, name, qualified_name, type, language, file_path, start_line, end_line,
	content, signature, docstring, content_hash, is_external, branch,
	embedding_model_id, updated_at, revision_id
`

func scanSymbol(row interface{ Scan(...any) error }) (*Symbol, error) {
	var sym Symbol
	var typ string
	var isExternal int
	var updatedAt int64
	if err := row.Scan(
		&sym.ID, &sym.Name, &sym.QualifiedName, &typ, &sym.Language, &sym.FilePath,
		&sym.StartLine, &sym.EndLine, &sym.Content, &sym.Signature, &sym.Docstring,
		&sym.ContentHash, &isExternal, &sym.Branch, &sym.EmbeddingModelID, &updatedAt, &sym.RevisionID,
	); err != nil {
		return nil, err
	}
	sym.Type = SymbolType(typ)
	sym.IsExternal = isExternal != 0
	sym.UpdatedAt = time.Unix(0, updatedAt)
	return &sym, nil
}

func (r *SQLSymbolRepo) ByID(ctx context.Context, id string) (*Symbol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE id = ?", id)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, SchemaMigrationError("failed to read symbol by id", err)
	}
	return sym, nil
}

func (r *SQLSymbolRepo) queryMany(ctx context.Context, query string, args ...any) ([]*Symbol, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, SchemaMigrationError("failed to query symbols", err)
	}
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, SchemaMigrationError("failed to scan symbol row", err)
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate symbol rows", err)
	}
	return out, nil
}

func (r *SQLSymbolRepo) ByFile(ctx context.Context, path, branch string) ([]*Symbol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE file_path = ? AND branch = ? ORDER BY start_line", path, branch)
}

func (r *SQLSymbolRepo) ByName(ctx context.Context, name, branch string) ([]*Symbol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE name = ? AND branch = ?", name, branch)
}

func (r *SQLSymbolRepo) ByType(ctx context.Context, t SymbolType, branch string) ([]*Symbol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE type = ? AND branch = ?", string(t), branch)
}

func (r *SQLSymbolRepo) All(ctx context.Context, branch string, limit int) ([]*Symbol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		return r.queryMany(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE branch = ? ORDER BY file_path, start_line", branch)
	}
	return r.queryMany(ctx, "SELECT "+selectSymbolColumns+" FROM symbols WHERE branch = ? ORDER BY file_path, start_line LIMIT ?", branch, limit)
}

func (r *SQLSymbolRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE file_path = ? AND branch = ?", path, branch); err != nil {
			return SchemaMigrationError("failed to delete symbols by file", err)
		}
		return nil
	})
}

func (r *SQLSymbolRepo) DeleteByBranch(ctx context.Context, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE branch = ?", branch); err != nil {
			return SchemaMigrationError("failed to delete symbols by branch", err)
		}
		return nil
	})
}

func (r *SQLSymbolRepo) Count(ctx context.Context, branch string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int
	err := r.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols WHERE branch = ?", branch).Scan(&count)
	if err != nil {
		return 0, SchemaMigrationError("failed to count symbols", err)
	}
	return count, nil
}
