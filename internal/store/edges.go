package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// SQLEdgeRepo implements EdgeRepo against the store's edges table.
type SQLEdgeRepo struct {
	s *Store
}

// NewEdgeRepo returns an EdgeRepo backed by s.
func NewEdgeRepo(s *Store) *SQLEdgeRepo {
	return &SQLEdgeRepo{s: s}
}

const upsertEdgeSQL = `
INSERT INTO edges (
	id, source_id, target_id, type, confidence, origin, branch,
	source_line, target_line, updated_at, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source_id = excluded.source_id,
	target_id = excluded.target_id,
	type = excluded.type,
	confidence = excluded.confidence,
	origin = excluded.origin,
	branch = excluded.branch,
	source_line = excluded.source_line,
	target_line = excluded.target_line,
	updated_at = excluded.updated_at,
	metadata = excluded.metadata
`

func execUpsertEdge(ctx context.Context, tx *sql.Tx, e *Edge) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, upsertEdgeSQL,
		e.ID, e.SourceID, e.TargetID, string(e.Type), e.Confidence, string(e.Origin), e.Branch,
		e.SourceLine, e.TargetLine, e.UpdatedAt.UnixNano(), string(meta),
	)
	return err
}

func (r *SQLEdgeRepo) Upsert(ctx context.Context, e *Edge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := execUpsertEdge(ctx, tx, e); err != nil {
			return SchemaMigrationError("failed to upsert edge", err)
		}
		return nil
	})
}

func (r *SQLEdgeRepo) UpsertMany(ctx context.Context, edges []*Edge) error {
	if len(edges) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range edges {
			if err := execUpsertEdge(ctx, tx, e); err != nil {
				return SchemaMigrationError("failed to upsert edge batch", err)
			}
		}
		return nil
	})
}

const selectEdgeColumns = `
	id, source_id, target_id, type, confidence, origin, branch,
	source_line, target_line, updated_at, metadata
`

func scanEdge(row interface{ Scan(...any) error }) (*Edge, error) {
	var e Edge
	var typ, origin, meta string
	var updatedAt int64
	if err := row.Scan(
		&e.ID, &e.SourceID, &e.TargetID, &typ, &e.Confidence, &origin, &e.Branch,
		&e.SourceLine, &e.TargetLine, &updatedAt, &meta,
	); err != nil {
		return nil, err
	}
	e.Type = EdgeType(typ)
	e.Origin = EdgeOrigin(origin)
	e.UpdatedAt = time.Unix(0, updatedAt)
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (r *SQLEdgeRepo) ByID(ctx context.Context, id string) (*Edge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx, "SELECT "+selectEdgeColumns+" FROM edges WHERE id = ?", id)
	e, err := scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, SchemaMigrationError("failed to read edge by id", err)
	}
	return e, nil
}

func (r *SQLEdgeRepo) queryMany(ctx context.Context, query string, args ...any) ([]*Edge, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, SchemaMigrationError("failed to query edges", err)
	}
	defer rows.Close()

	var out []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, SchemaMigrationError("failed to scan edge row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate edge rows", err)
	}
	return out, nil
}

// ByFile returns edges whose source symbol lives in path. Edges are keyed
// to symbols, not files directly, so this joins through the symbols table.
func (r *SQLEdgeRepo) ByFile(ctx context.Context, path, branch string) ([]*Edge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, `
		SELECT e.id, e.source_id, e.target_id, e.type, e.confidence, e.origin, e.branch,
		       e.source_line, e.target_line, e.updated_at, e.metadata
		FROM edges e
		JOIN symbols s ON s.id = e.source_id
		WHERE s.file_path = ? AND e.branch = ?
	`, path, branch)
}

func (r *SQLEdgeRepo) Callers(ctx context.Context, targetID, branch string) ([]*Edge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectEdgeColumns+" FROM edges WHERE target_id = ? AND type = ? AND branch = ?",
		targetID, string(EdgeTypeCalls), branch)
}

func (r *SQLEdgeRepo) Callees(ctx context.Context, sourceID, branch string) ([]*Edge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.queryMany(ctx, "SELECT "+selectEdgeColumns+" FROM edges WHERE source_id = ? AND type = ? AND branch = ?",
		sourceID, string(EdgeTypeCalls), branch)
}

func (r *SQLEdgeRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM edges WHERE branch = ? AND source_id IN (
				SELECT id FROM symbols WHERE file_path = ? AND branch = ?
			)
		`, branch, path, branch)
		if err != nil {
			return SchemaMigrationError("failed to delete edges by file", err)
		}
		return nil
	})
}

func (r *SQLEdgeRepo) DeleteByBranch(ctx context.Context, branch string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE branch = ?", branch); err != nil {
			return SchemaMigrationError("failed to delete edges by branch", err)
		}
		return nil
	})
}

func (r *SQLEdgeRepo) Count(ctx context.Context, branch string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int
	err := r.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges WHERE branch = ?", branch).Scan(&count)
	if err != nil {
		return 0, SchemaMigrationError("failed to count edges", err)
	}
	return count, nil
}
