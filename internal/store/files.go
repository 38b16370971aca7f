package store

import (
	"context"
	"database/sql"
	"time"
)

// SQLFileRepo implements FileRepo against the store's files table.
type SQLFileRepo struct {
	s *Store
}

// NewFileRepo returns a FileRepo backed by s.
func NewFileRepo(s *Store) *SQLFileRepo {
	return &SQLFileRepo{s: s}
}

const upsertFileSQL = `
INSERT INTO files (
	file_path, branch, file_hash, mtime, size, last_indexed, language,
	status, symbol_count, importance_rank, error_message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(file_path, branch) DO UPDATE SET
	file_hash = excluded.file_hash,
	mtime = excluded.mtime,
	size = excluded.size,
	last_indexed = excluded.last_indexed,
	language = excluded.language,
	status = excluded.status,
	symbol_count = excluded.symbol_count,
	importance_rank = excluded.importance_rank,
	error_message = excluded.error_message
`

func (r *SQLFileRepo) Upsert(ctx context.Context, f *FileRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertFileSQL,
			f.FilePath, f.Branch, f.FileHash, f.MTime.UnixNano(), f.Size, f.LastIndexed.UnixNano(),
			f.Language, string(f.Status), f.SymbolCount, f.ImportanceRank, f.ErrorMessage,
		)
		if err != nil {
			return SchemaMigrationError("failed to upsert file record", err)
		}
		return nil
	})
}

const selectFileColumns = `
	file_path, branch, file_hash, mtime, size, last_indexed, language,
	status, symbol_count, importance_rank, error_message
`

func scanFile(row interface{ Scan(...any) error }) (*FileRecord, error) {
	var f FileRecord
	var status string
	var mtime, lastIndexed int64
	if err := row.Scan(
		&f.FilePath, &f.Branch, &f.FileHash, &mtime, &f.Size, &lastIndexed, &f.Language,
		&status, &f.SymbolCount, &f.ImportanceRank, &f.ErrorMessage,
	); err != nil {
		return nil, err
	}
	f.Status = FileStatus(status)
	f.MTime = time.Unix(0, mtime)
	f.LastIndexed = time.Unix(0, lastIndexed)
	return &f, nil
}

func (r *SQLFileRepo) ByPath(ctx context.Context, path, branch string) (*FileRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx, "SELECT "+selectFileColumns+" FROM files WHERE file_path = ? AND branch = ?", path, branch)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, SchemaMigrationError("failed to read file record", err)
	}
	return f, nil
}

func (r *SQLFileRepo) queryMany(ctx context.Context, query string, args ...any) ([]*FileRecord, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, SchemaMigrationError("failed to query file records", err)
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, SchemaMigrationError("failed to scan file record row", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate file record rows", err)
	}
	return out, nil
}

func (r *SQLFileRepo) ByStatus(ctx context.Context, status FileStatus, branch string) ([]*FileRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectFileColumns+" FROM files WHERE status = ? AND branch = ?", string(status), branch)
}

func (r *SQLFileRepo) ByBranch(ctx context.Context, branch string) ([]*FileRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectFileColumns+" FROM files WHERE branch = ? ORDER BY file_path", branch)
}

func (r *SQLFileRepo) UpdateStatus(ctx context.Context, path, branch string, status FileStatus, errMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE files SET status = ?, error_message = ? WHERE file_path = ? AND branch = ?",
			string(status), errMsg, path, branch)
		if err != nil {
			return SchemaMigrationError("failed to update file status", err)
		}
		return nil
	})
}

func (r *SQLFileRepo) UpdateSymbolCount(ctx context.Context, path, branch string, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE files SET symbol_count = ? WHERE file_path = ? AND branch = ?",
			count, path, branch)
		if err != nil {
			return SchemaMigrationError("failed to update file symbol count", err)
		}
		return nil
	})
}

func (r *SQLFileRepo) DeleteByPath(ctx context.Context, path, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE file_path = ? AND branch = ?", path, branch); err != nil {
			return SchemaMigrationError("failed to delete file record", err)
		}
		return nil
	})
}

func (r *SQLFileRepo) DeleteByBranch(ctx context.Context, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE branch = ?", branch); err != nil {
			return SchemaMigrationError("failed to delete file records by branch", err)
		}
		return nil
	})
}
