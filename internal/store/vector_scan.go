package store

import (
	"context"
	"database/sql"
	"sort"
)

// ScanVectorRepo implements VectorRepo as a pure-language cosine-scan
// fallback, reading the vectors table directly with no external index.
// Per spec.md §4.A this is the mandated fallback when no native vector
// extension is available: identical contract to HNSWVectorRepo, different
// latency (linear in the number of indexed vectors).
type ScanVectorRepo struct {
	s          *Store
	dimensions int
}

var _ VectorRepo = (*ScanVectorRepo)(nil)

// NewScanVectorRepo returns a VectorRepo backed by a full scan of s's
// vectors table.
func NewScanVectorRepo(s *Store, dimensions int) *ScanVectorRepo {
	return &ScanVectorRepo{s: s, dimensions: dimensions}
}

func (r *ScanVectorRepo) Upsert(ctx context.Context, symbolID string, vector []float32) error {
	if len(vector) != r.dimensions {
		return ErrDimensionMismatch{Expected: r.dimensions, Got: len(vector)}
	}

	var branch string
	err := r.s.db.QueryRowContext(ctx, "SELECT branch FROM symbols WHERE id = ?", symbolID).Scan(&branch)
	if err != nil && err != sql.ErrNoRows {
		return SchemaMigrationError("failed to resolve symbol branch for vector upsert", err)
	}

	blob, err := encodeVector(vector)
	if err != nil {
		return SerializeEmbeddingError("failed to serialize embedding", err)
	}
	_, err = r.s.db.ExecContext(ctx, `
		INSERT INTO vectors(symbol_id, branch, embedding, updated_at) VALUES (?, ?, ?, strftime('%s','now'))
		ON CONFLICT(symbol_id) DO UPDATE SET branch = excluded.branch, embedding = excluded.embedding, updated_at = excluded.updated_at
	`, symbolID, branch, blob)
	if err != nil {
		return SchemaMigrationError("failed to persist vector row", err)
	}
	return nil
}

func (r *ScanVectorRepo) Search(ctx context.Context, queryVector []float32, k int, branch string) ([]VectorResult, error) {
	if len(queryVector) != r.dimensions {
		return nil, ErrDimensionMismatch{Expected: r.dimensions, Got: len(queryVector)}
	}
	if k <= 0 {
		k = 10
	}

	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	normalizeVectorInPlace(query)

	var rows *sql.Rows
	var err error
	if branch != "" {
		rows, err = r.s.db.QueryContext(ctx, "SELECT symbol_id, embedding FROM vectors WHERE branch = ?", branch)
	} else {
		rows, err = r.s.db.QueryContext(ctx, "SELECT symbol_id, embedding FROM vectors")
	}
	if err != nil {
		return nil, SchemaMigrationError("failed to scan vectors table", err)
	}
	defer rows.Close()

	var results []VectorResult
	for rows.Next() {
		var symbolID string
		var blob []byte
		if err := rows.Scan(&symbolID, &blob); err != nil {
			return nil, SchemaMigrationError("failed to scan vector row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, SerializeEmbeddingError("failed to deserialize embedding", err)
		}
		if len(vec) != r.dimensions {
			continue
		}
		normalizeVectorInPlace(vec)
		distance := cosineDistance(query, vec)
		results = append(results, VectorResult{
			SymbolID:   symbolID,
			Distance:   distance,
			Similarity: 1.0 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, SchemaMigrationError("failed to iterate vector rows", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (r *ScanVectorRepo) Delete(ctx context.Context, symbolID string) error {
	if _, err := r.s.db.ExecContext(ctx, "DELETE FROM vectors WHERE symbol_id = ?", symbolID); err != nil {
		return SchemaMigrationError("failed to delete vector row", err)
	}
	return nil
}

func (r *ScanVectorRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	_, err := r.s.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE symbol_id IN (SELECT id FROM symbols WHERE file_path = ? AND branch = ?)",
		path, branch)
	if err != nil {
		return SchemaMigrationError("failed to delete vector rows by file", err)
	}
	return nil
}

func (r *ScanVectorRepo) Close() error { return nil }

func cosineDistance(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	// a, b are already unit-normalized by the caller, so dot is the cosine
	// similarity directly; clamp for float error before converting to the
	// 0-2 cosine distance range used across this package.
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return float32(1 - dot)
}
