package store

import (
	"context"
	"database/sql"
)

// RepoMapRepo persists and retrieves per-file importance scores used by
// retrieval for context packing and by analysis for ranking impact results.
type RepoMapRepo struct {
	s *Store
}

// NewRepoMapRepo returns a RepoMapRepo backed by s.
func NewRepoMapRepo(s *Store) *RepoMapRepo {
	return &RepoMapRepo{s: s}
}

const upsertRepoMapSQL = `
INSERT INTO repo_map (file_path, branch, importance_score, in_degree, out_degree, symbol_summary)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(file_path, branch) DO UPDATE SET
	importance_score = excluded.importance_score,
	in_degree = excluded.in_degree,
	out_degree = excluded.out_degree,
	symbol_summary = excluded.symbol_summary
`

func (r *RepoMapRepo) Upsert(ctx context.Context, e *RepoMapEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertRepoMapSQL,
			e.FilePath, e.Branch, e.ImportanceScore, e.InDegree, e.OutDegree, e.SymbolSummary)
		if err != nil {
			return SchemaMigrationError("failed to upsert repo map entry", err)
		}
		return nil
	})
}

func (r *RepoMapRepo) UpsertMany(ctx context.Context, entries []*RepoMapEntry) error {
	if len(entries) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, upsertRepoMapSQL,
				e.FilePath, e.Branch, e.ImportanceScore, e.InDegree, e.OutDegree, e.SymbolSummary)
			if err != nil {
				return SchemaMigrationError("failed to upsert repo map batch", err)
			}
		}
		return nil
	})
}

func scanRepoMapEntry(row interface{ Scan(...any) error }) (*RepoMapEntry, error) {
	var e RepoMapEntry
	if err := row.Scan(&e.FilePath, &e.Branch, &e.ImportanceScore, &e.InDegree, &e.OutDegree, &e.SymbolSummary); err != nil {
		return nil, err
	}
	return &e, nil
}

// TopByImportance returns the limit highest-importance_score entries for
// branch, descending. Used to seed retrieval's token-budget packing and
// analysis' blast-radius ranking.
func (r *RepoMapRepo) TopByImportance(ctx context.Context, branch string, limit int) ([]*RepoMapEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows, err := r.s.db.QueryContext(ctx, `
		SELECT file_path, branch, importance_score, in_degree, out_degree, symbol_summary
		FROM repo_map WHERE branch = ? ORDER BY importance_score DESC LIMIT ?
	`, branch, limit)
	if err != nil {
		return nil, SchemaMigrationError("failed to query repo map", err)
	}
	defer rows.Close()

	var out []*RepoMapEntry
	for rows.Next() {
		e, err := scanRepoMapEntry(rows)
		if err != nil {
			return nil, SchemaMigrationError("failed to scan repo map row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate repo map rows", err)
	}
	return out, nil
}

func (r *RepoMapRepo) ByPath(ctx context.Context, path, branch string) (*RepoMapEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx, `
		SELECT file_path, branch, importance_score, in_degree, out_degree, symbol_summary
		FROM repo_map WHERE file_path = ? AND branch = ?
	`, path, branch)
	e, err := scanRepoMapEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, SchemaMigrationError("failed to read repo map entry", err)
	}
	return e, nil
}

func (r *RepoMapRepo) DeleteByBranch(ctx context.Context, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM repo_map WHERE branch = ?", branch); err != nil {
			return SchemaMigrationError("failed to delete repo map entries by branch", err)
		}
		return nil
	})
}
