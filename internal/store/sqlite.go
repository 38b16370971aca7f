package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	engineerrors "github.com/codeintel/engine/internal/errors"
)

// Store is the engine's single SQLite-backed persistence layer. A single
// sync.RWMutex guards the connection at the store boundary: readers run
// concurrently, writers (upserts, deletes, schema changes) are exclusive.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Config configures the underlying SQLite connection.
type Config struct {
	// Path is the database file path. Empty opens an in-memory database,
	// useful for tests.
	Path string
	// CacheMB sets the SQLite page cache size in megabytes.
	CacheMB int
	// EmbeddingDimension is recorded in schema_metadata on first open; later
	// opens keep the recorded value and do not compare it with this one.
	EmbeddingDimension int
}

// Open opens (creating if necessary) the SQLite store at cfg.Path, applies
// pragmas mirroring WAL mode and a tuned page cache, and ensures the schema
// exists.
func Open(cfg Config) (*Store, error) {
	dsn := ":memory:"
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, engineerrors.StoreError(fmt.Sprintf("failed to create store directory %s", dir), err)
		}
		dsn = cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, engineerrors.StoreError("failed to open store", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	cacheMB := cfg.CacheMB
	if cacheMB <= 0 {
		cacheMB = 64
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheMB*1024),
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, engineerrors.StoreError(fmt.Sprintf("failed to set pragma %q", p), err)
		}
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.initSchema(cfg.EmbeddingDimension); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	qualified_name     TEXT NOT NULL,
	type               TEXT NOT NULL,
	language           TEXT NOT NULL,
	file_path          TEXT NOT NULL,
	start_line         INTEGER NOT NULL,
	end_line           INTEGER NOT NULL,
	content            TEXT NOT NULL,
	signature          TEXT NOT NULL DEFAULT '',
	docstring          TEXT NOT NULL DEFAULT '',
	content_hash       TEXT NOT NULL,
	is_external        INTEGER NOT NULL DEFAULT 0,
	branch             TEXT NOT NULL,
	embedding_model_id TEXT NOT NULL DEFAULT '',
	updated_at         INTEGER NOT NULL,
	revision_id        INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path, branch);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name, branch);
CREATE INDEX IF NOT EXISTS idx_symbols_type ON symbols(type, branch);
CREATE INDEX IF NOT EXISTS idx_symbols_branch ON symbols(branch);

CREATE TABLE IF NOT EXISTS edges (
	id          TEXT PRIMARY KEY,
	source_id   TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	type        TEXT NOT NULL,
	confidence  REAL NOT NULL DEFAULT 1.0,
	origin      TEXT NOT NULL,
	branch      TEXT NOT NULL,
	source_line INTEGER NOT NULL DEFAULT 0,
	target_line INTEGER NOT NULL DEFAULT 0,
	updated_at  INTEGER NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, type, branch);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id, type, branch);
CREATE INDEX IF NOT EXISTS idx_edges_branch ON edges(branch);

CREATE TABLE IF NOT EXISTS files (
	file_path       TEXT NOT NULL,
	branch          TEXT NOT NULL,
	file_hash       TEXT NOT NULL,
	mtime           INTEGER NOT NULL,
	size            INTEGER NOT NULL,
	last_indexed    INTEGER NOT NULL,
	language        TEXT NOT NULL,
	status          TEXT NOT NULL,
	symbol_count    INTEGER NOT NULL DEFAULT 0,
	importance_rank REAL NOT NULL DEFAULT 0,
	error_message   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (file_path, branch)
);
CREATE INDEX IF NOT EXISTS idx_files_status ON files(status, branch);

CREATE TABLE IF NOT EXISTS repo_map (
	file_path        TEXT NOT NULL,
	branch           TEXT NOT NULL,
	importance_score REAL NOT NULL DEFAULT 0,
	in_degree        INTEGER NOT NULL DEFAULT 0,
	out_degree       INTEGER NOT NULL DEFAULT 0,
	symbol_summary   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (file_path, branch)
);

CREATE TABLE IF NOT EXISTS vectors (
	symbol_id  TEXT PRIMARY KEY,
	branch     TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_branch ON vectors(branch);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_symbols USING fts5(
	symbol_id UNINDEXED,
	name,
	qualified_name,
	content,
	file_path,
	tokenize='trigram'
);
`

func (s *Store) initSchema(embeddingDimension int) error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to initialize schema", err)
	}

	var storedVersion string
	err := s.db.QueryRow(`SELECT value FROM schema_metadata WHERE key = 'schema_version'`).Scan(&storedVersion)
	if err == sql.ErrNoRows {
		if _, err := s.db.Exec(`INSERT INTO schema_metadata(key, value) VALUES ('schema_version', ?)`, fmt.Sprintf("%d", CurrentSchemaVersion)); err != nil {
			return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to record schema version", err)
		}
	} else if err != nil {
		return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to read schema version", err)
	}

	if embeddingDimension > 0 {
		var stored string
		err := s.db.QueryRow(`SELECT value FROM schema_metadata WHERE key = 'embedding_dimension'`).Scan(&stored)
		if err == sql.ErrNoRows {
			if _, err := s.db.Exec(`INSERT INTO schema_metadata(key, value) VALUES ('embedding_dimension', ?)`, fmt.Sprintf("%d", embeddingDimension)); err != nil {
				return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to record embedding dimension", err)
			}
		} else if err != nil {
			return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to read embedding dimension", err)
		}
	}

	return nil
}

// EmbeddingModelID returns the embedding model id recorded in
// schema_metadata, or "" if none has been recorded yet.
func (s *Store) EmbeddingModelID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM schema_metadata WHERE key = 'embedding_model_id'`).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", engineerrors.New(engineerrors.ErrCodeInternal, "failed to read embedding model id", err)
	}
	return v, nil
}

// NeedsReembedding reports whether modelID differs from the one recorded
// in schema_metadata, signaling the index manager that a full re-embed is
// required before vector search results can be trusted.
func (s *Store) NeedsReembedding(ctx context.Context, modelID string) (bool, error) {
	current, err := s.EmbeddingModelID(ctx)
	if err != nil {
		return false, err
	}
	return current != "" && current != modelID, nil
}

// SetEmbeddingModelID records the embedding model id used to populate the
// vectors table.
func (s *Store) SetEmbeddingModelID(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_metadata(key, value) VALUES ('embedding_model_id', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, modelID)
	if err != nil {
		return engineerrors.New(engineerrors.ErrCodeSchemaMigration, "failed to record embedding model id", err)
	}
	return nil
}

// withTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engineerrors.New(engineerrors.ErrCodeStoreOpen, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return engineerrors.New(engineerrors.ErrCodeInternal, "failed to commit transaction", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// DB exposes the underlying *sql.DB, for callers that need to run
// queries against auxiliary tables the repo interfaces don't cover
// (e.g. telemetry).
func (s *Store) DB() *sql.DB { return s.db }
