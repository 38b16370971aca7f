package store

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWVectorRepo implements VectorRepo over an in-memory github.com/coder/hnsw
// graph, the engine's native vector extension. Branch scoping is not a
// concept the graph itself understands, so Search overfetches candidates
// and filters them against the branch recorded for each symbol in the
// shared store's symbols table (a symbol's branch is resolved once, at
// Upsert time, and persisted alongside its embedding for durability and
// for DeleteByFile to find matching rows without asking the graph).
type HNSWVectorRepo struct {
	mu    sync.RWMutex
	s     *Store
	graph *hnsw.Graph[uint64]

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	dimensions int
	path       string
	closed     bool
}

var _ VectorRepo = (*HNSWVectorRepo)(nil)

type hnswVectorMetadata struct {
	IDMap      map[string]uint64
	NextKey    uint64
	Dimensions int
}

// overfetchFactor bounds how many extra candidates Search pulls from the
// graph before branch-filtering, to keep odds high of returning k results
// even when a branch is a small fraction of the index.
const overfetchFactor = 4

// NewHNSWVectorRepo creates an empty HNSW-backed vector repo. dimensions
// validates every upserted and queried vector's length; path, if non-empty,
// is where Save/Load persist the graph and ID mappings.
func NewHNSWVectorRepo(s *Store, dimensions int, path string) *HNSWVectorRepo {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSWVectorRepo{
		s:          s,
		graph:      graph,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
		dimensions: dimensions,
		path:       path,
	}
}

func (r *HNSWVectorRepo) symbolBranch(ctx context.Context, symbolID string) (string, error) {
	var branch string
	err := r.s.db.QueryRowContext(ctx, "SELECT branch FROM symbols WHERE id = ?", symbolID).Scan(&branch)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return branch, nil
}

func (r *HNSWVectorRepo) Upsert(ctx context.Context, symbolID string, vector []float32) error {
	if len(vector) != r.dimensions {
		return ErrDimensionMismatch{Expected: r.dimensions, Got: len(vector)}
	}

	branch, err := r.symbolBranch(ctx, symbolID)
	if err != nil {
		return SchemaMigrationError("failed to resolve symbol branch for vector upsert", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StoreOpenError("vector repo is closed", nil)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeVectorInPlace(vec)

	if existingKey, exists := r.idMap[symbolID]; exists {
		// Lazy deletion: orphan the old key rather than calling graph.Delete,
		// which breaks coder/hnsw's graph when removing its last node.
		delete(r.keyMap, existingKey)
		delete(r.idMap, symbolID)
	}

	key := r.nextKey
	r.nextKey++
	r.graph.Add(hnsw.MakeNode(key, vec))
	r.idMap[symbolID] = key
	r.keyMap[key] = symbolID

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

func (r *HNSWVectorRepo) Search(ctx context.Context, queryVector []float32, k int, branch string) ([]VectorResult, error) {
	if len(queryVector) != r.dimensions {
		return nil, ErrDimensionMismatch{Expected: r.dimensions, Got: len(queryVector)}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, StoreOpenError("vector repo is closed", nil)
	}
	if r.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	normalizeVectorInPlace(query)

	fetchN := k * overfetchFactor
	if fetchN < k {
		fetchN = k
	}
	nodes := r.graph.Search(query, fetchN)

	out := make([]VectorResult, 0, k)
	for _, node := range nodes {
		if len(out) >= k {
			break
		}
		symbolID, exists := r.keyMap[node.Key]
		if !exists {
			continue
		}
		if branch != "" {
			symBranch, err := r.symbolBranch(ctx, symbolID)
			if err != nil {
				return nil, SchemaMigrationError("failed to resolve symbol branch during search", err)
			}
			if symBranch != branch {
				continue
			}
		}

		distance := r.graph.Distance(query, node.Value)
		out = append(out, VectorResult{
			SymbolID:   symbolID,
			Distance:   distance,
			Similarity: 1.0 - distance,
		})
	}
	return out, nil
}

func (r *HNSWVectorRepo) Delete(ctx context.Context, symbolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StoreOpenError("vector repo is closed", nil)
	}
	if key, exists := r.idMap[symbolID]; exists {
		delete(r.keyMap, key)
		delete(r.idMap, symbolID)
	}
	if _, err := r.s.db.ExecContext(ctx, "DELETE FROM vectors WHERE symbol_id = ?", symbolID); err != nil {
		return SchemaMigrationError("failed to delete vector row", err)
	}
	return nil
}

func (r *HNSWVectorRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	rows, err := r.s.db.QueryContext(ctx, "SELECT id FROM symbols WHERE file_path = ? AND branch = ?", path, branch)
	if err != nil {
		return SchemaMigrationError("failed to resolve symbols for vector deletion", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return SchemaMigrationError("failed to scan symbol id for vector deletion", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return SchemaMigrationError("failed to iterate symbols for vector deletion", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if key, exists := r.idMap[id]; exists {
			delete(r.keyMap, key)
			delete(r.idMap, id)
		}
	}
	if _, err := r.s.db.ExecContext(ctx, "DELETE FROM vectors WHERE symbol_id IN (SELECT id FROM symbols WHERE file_path = ? AND branch = ?)", path, branch); err != nil {
		return SchemaMigrationError("failed to delete vector rows by file", err)
	}
	return nil
}

// Save persists the graph and ID mappings to r.path (graph file plus a
// ".meta" sidecar), mirroring the teacher's atomic temp-file-then-rename
// approach.
func (r *HNSWVectorRepo) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return StoreOpenError(fmt.Sprintf("failed to create directory for vector index %s", r.path), err)
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return StoreOpenError("failed to create vector index file", err)
	}
	if err := r.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return SerializeEmbeddingError("failed to export hnsw graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return SerializeEmbeddingError("failed to close vector index file", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return StoreOpenError("failed to install vector index file", err)
	}

	metaTmp := r.path + ".meta.tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return StoreOpenError("failed to create vector index metadata file", err)
	}
	meta := hnswVectorMetadata{IDMap: r.idMap, NextKey: r.nextKey, Dimensions: r.dimensions}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		mf.Close()
		os.Remove(metaTmp)
		return SerializeEmbeddingError("failed to encode vector index metadata", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(metaTmp)
		return SerializeEmbeddingError("failed to close vector index metadata file", err)
	}
	return os.Rename(metaTmp, r.path+".meta")
}

// Load restores the graph and ID mappings from r.path. A missing file is
// not an error: the repo simply starts empty, to be rebuilt incrementally.
func (r *HNSWVectorRepo) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.path == "" {
		return nil
	}

	metaFile, err := os.Open(r.path + ".meta")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return StoreOpenError("failed to open vector index metadata file", err)
	}
	var meta hnswVectorMetadata
	decErr := gob.NewDecoder(metaFile).Decode(&meta)
	metaFile.Close()
	if decErr != nil {
		return SerializeEmbeddingError("failed to decode vector index metadata", decErr)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return StoreOpenError("failed to open vector index file", err)
	}
	defer f.Close()

	if err := r.graph.Import(bufio.NewReader(f)); err != nil {
		return SerializeEmbeddingError("failed to import hnsw graph", err)
	}

	r.idMap = meta.IDMap
	r.nextKey = meta.NextKey
	r.dimensions = meta.Dimensions
	r.keyMap = make(map[uint64]string, len(r.idMap))
	for id, key := range r.idMap {
		r.keyMap[key] = id
	}
	return nil
}

func (r *HNSWVectorRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.graph = nil
	return nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
