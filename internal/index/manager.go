package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/codeintel/engine/internal/embed"
	engineerrors "github.com/codeintel/engine/internal/errors"
	"github.com/codeintel/engine/internal/extract"
	"github.com/codeintel/engine/internal/merkle"
	"github.com/codeintel/engine/internal/scanner"
	"github.com/codeintel/engine/internal/store"
)

// Manager owns the write-path state machine: discovery, change detection,
// per-file extraction and embedding, and the auto-refresh hook (called by
// the engine's Watch; the engine's read methods do not call it).
type Manager struct {
	opts Options

	symbols  store.SymbolRepo
	edges    store.EdgeRepo
	files    store.FileRepo
	keywords store.KeywordRepo
	vectors  store.VectorRepo

	embedder embed.Embedder
	adapters *extract.AdapterRegistry
	scan     *scanner.Scanner
	cache    *merkle.Cache
	lock     *FileLock

	indexing      atomic.Bool
	lastRefresh   atomic.Int64 // UnixNano of the last completed auto-refresh
}

// Deps bundles the collaborators a Manager orchestrates. Each field mirrors
// a store repo, the embedder, and the supporting packages the manager wires
// together; callers (the engine) construct these from a single open Store.
type Deps struct {
	Symbols  store.SymbolRepo
	Edges    store.EdgeRepo
	Files    store.FileRepo
	Keywords store.KeywordRepo
	Vectors  store.VectorRepo
	Embedder embed.Embedder
	Adapters *extract.AdapterRegistry
	Scanner  *scanner.Scanner
	Cache    *merkle.Cache
}

// NewManager returns a Manager for the given options and dependencies. The
// cross-process FileLock guards a lock file beside opts.CachePath's
// directory (falling back to RootDir).
func NewManager(opts Options, deps Deps) *Manager {
	opts = opts.withDefaults()

	lockDir := filepath.Dir(opts.CachePath)
	if opts.CachePath == "" {
		lockDir = opts.RootDir
	}

	return &Manager{
		opts:     opts,
		symbols:  deps.Symbols,
		edges:    deps.Edges,
		files:    deps.Files,
		keywords: deps.Keywords,
		vectors:  deps.Vectors,
		embedder: deps.Embedder,
		adapters: deps.Adapters,
		scan:     deps.Scanner,
		cache:    deps.Cache,
		lock:     NewFileLock(lockDir),
	}
}

// SetProgress installs fn as the manager's progress reporter. Call it
// before Update or Rebuild; it is not safe to change concurrently with
// a running indexing operation.
func (m *Manager) SetProgress(fn ProgressFunc) {
	m.opts.OnProgress = fn
}

// Update performs an incremental index refresh: discover, diff against the
// Merkle cache, and index the delta. Returns ErrCodeIndexingInProgress if an
// update or rebuild is already running, in this process or another.
func (m *Manager) Update(ctx context.Context) (*Summary, error) {
	return m.run(ctx)
}

// Rebuild truncates every branch-scoped table and the Merkle cache, then
// performs a full Update.
func (m *Manager) Rebuild(ctx context.Context) (*Summary, error) {
	if !m.indexing.CompareAndSwap(false, true) {
		return nil, indexingInProgressError()
	}
	defer m.indexing.Store(false)

	acquired, err := m.lock.TryLock()
	if err != nil {
		return nil, engineerrors.New(engineerrors.ErrCodeInternal, "failed to acquire index lock", err)
	}
	if !acquired {
		return nil, indexingInProgressError()
	}
	defer func() { _ = m.lock.Unlock() }()

	if err := m.truncateAll(ctx); err != nil {
		return nil, err
	}
	for _, path := range m.cache.Paths() {
		m.cache.Remove(path)
	}

	return m.doUpdate(ctx)
}

// EnsureFresh is the auto-refresh hook. The engine's Watch calls it after
// every batch of file changes; Search, FindSimilar, Impact and Diff do not
// call it. It is best-effort: a cooldown and a file-count ceiling bound its
// cost, indexing failures are logged but never returned, and it silently
// no-ops while an Update or Rebuild is already in flight.
func (m *Manager) EnsureFresh(ctx context.Context) {
	if !m.opts.AutoRefresh {
		return
	}

	last := time.Unix(0, m.lastRefresh.Load())
	if time.Since(last) < m.opts.AutoRefreshCooldown {
		return
	}

	if !m.indexing.CompareAndSwap(false, true) {
		return
	}
	defer m.indexing.Store(false)

	acquired, err := m.lock.TryLock()
	if err != nil || !acquired {
		return
	}
	defer func() { _ = m.lock.Unlock() }()

	if m.cache.Len() > m.opts.AutoRefreshMaxFiles {
		slog.Warn("auto-refresh skipped: file count exceeds ceiling",
			slog.Int("tracked_files", m.cache.Len()),
			slog.Int("ceiling", m.opts.AutoRefreshMaxFiles))
		return
	}

	if _, err := m.doUpdate(ctx); err != nil {
		slog.Warn("auto-refresh failed", slog.String("error", err.Error()))
		return
	}
	m.lastRefresh.Store(time.Now().UnixNano())
}

// run is the shared entry point for Update: acquire both the in-process and
// cross-process guards, then delegate to doUpdate.
func (m *Manager) run(ctx context.Context) (*Summary, error) {
	if !m.indexing.CompareAndSwap(false, true) {
		return nil, indexingInProgressError()
	}
	defer m.indexing.Store(false)

	acquired, err := m.lock.TryLock()
	if err != nil {
		return nil, engineerrors.New(engineerrors.ErrCodeInternal, "failed to acquire index lock", err)
	}
	if !acquired {
		return nil, indexingInProgressError()
	}
	defer func() { _ = m.lock.Unlock() }()

	summary, err := m.doUpdate(ctx)
	if err == nil {
		m.lastRefresh.Store(time.Now().UnixNano())
	}
	return summary, err
}

func indexingInProgressError() error {
	return engineerrors.New(engineerrors.ErrCodeIndexingInProgress, "an index update or rebuild is already in progress", nil)
}

// doUpdate runs discovery, change detection, deletion, and per-file indexing
// without touching the indexing/lock guards; callers (Update, Rebuild,
// EnsureFresh) hold both before calling this.
func (m *Manager) doUpdate(ctx context.Context) (*Summary, error) {
	start := time.Now()
	m.opts.report(Progress{Phase: PhaseScanning})

	absPaths, err := m.discover(ctx)
	if err != nil {
		return nil, err
	}

	m.opts.report(Progress{Phase: PhaseHashing, FilesTotal: len(absPaths)})
	changes, err := m.cache.FindChanged(absPaths)
	if err != nil {
		return nil, err
	}
	deleted := m.cache.FindDeleted(absPaths)

	summary := &Summary{}

	for _, abs := range deleted {
		if err := m.deleteFile(ctx, abs); err != nil {
			slog.Warn("failed to delete file from index", slog.String("path", abs), slog.String("error", err.Error()))
			continue
		}
		summary.FilesDeleted++
	}

	toIndex := append(append([]string{}, changes.Added...), changes.Modified...)
	if len(toIndex) == 0 {
		m.opts.report(Progress{Phase: PhaseComplete, FilesTotal: len(absPaths), FilesProcessed: len(absPaths)})
		summary.Duration = time.Since(start)
		return summary, nil
	}

	var indexed, failed, chunks, edgesAdded atomic.Int64
	var processed atomic.Int64

	sem := semaphore.NewWeighted(int64(m.opts.Parallelism))
	g, gctx := errgroup.WithContext(ctx)

	for _, abs := range toIndex {
		abs := abs
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			m.opts.report(Progress{Phase: PhaseEmbedding, FilesTotal: len(toIndex), FilesProcessed: int(processed.Load()), CurrentFile: abs})

			nSymbols, nEdges, err := m.indexFile(gctx, abs)
			processed.Add(1)
			if err != nil {
				failed.Add(1)
				slog.Warn("failed to index file", slog.String("path", abs), slog.String("error", err.Error()))
				return nil
			}
			indexed.Add(1)
			chunks.Add(int64(nSymbols))
			edgesAdded.Add(int64(nEdges))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := m.cache.Save(m.opts.CachePath); err != nil {
		slog.Warn("failed to persist merkle cache", slog.String("error", err.Error()))
	}

	summary.FilesIndexed = int(indexed.Load())
	summary.FilesFailed = int(failed.Load())
	summary.ChunksAdded = int(chunks.Load())
	summary.EdgesAdded = int(edgesAdded.Load())
	summary.Duration = time.Since(start)

	m.opts.report(Progress{Phase: PhaseStoring, FilesTotal: len(toIndex), FilesProcessed: len(toIndex)})
	m.opts.report(Progress{Phase: PhaseComplete, FilesTotal: len(toIndex), FilesProcessed: len(toIndex)})

	return summary, nil
}

// discover runs the scanner over RootDir and returns the absolute paths of
// every indexable file.
func (m *Manager) discover(ctx context.Context) ([]string, error) {
	results, err := m.scan.Scan(ctx, &scanner.ScanOptions{
		RootDir:         m.opts.RootDir,
		IncludePatterns: m.opts.IncludePatterns,
		ExcludePatterns: m.opts.ExcludePatterns,
		RespectGitignore: true,
		MaxFileSize:     m.opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	var paths []string
	for res := range results {
		if res.Error != nil {
			slog.Warn("scan error", slog.String("error", res.Error.Error()))
			continue
		}
		if res.File != nil {
			paths = append(paths, res.File.AbsPath)
		}
	}
	return paths, nil
}

// relPath returns abs relative to RootDir, falling back to abs itself if it
// cannot be made relative.
func (m *Manager) relPath(abs string) string {
	rel, err := filepath.Rel(m.opts.RootDir, abs)
	if err != nil {
		return abs
	}
	return rel
}

// indexFile implements the per-file indexing sequence: read, hash-check,
// delete stale rows, extract, embed, and persist.
func (m *Manager) indexFile(ctx context.Context, absPath string) (symbolCount, edgeCount int, err error) {
	relPath := m.relPath(absPath)
	branch := m.opts.Branch

	content, err := os.ReadFile(absPath)
	if err != nil {
		_ = m.files.UpdateStatus(ctx, relPath, branch, store.FileStatusError, err.Error())
		return 0, 0, err
	}

	fp, ok := m.cache.Get(absPath)
	if !ok {
		fp, err = m.cache.HashFile(absPath)
		if err != nil {
			return 0, 0, err
		}
	}

	if existing, _ := m.files.ByPath(ctx, relPath, branch); existing != nil && existing.FileHash == fp.Hash {
		return 0, 0, nil
	}

	if err := m.symbols.DeleteByFile(ctx, relPath, branch); err != nil {
		return 0, 0, err
	}
	if err := m.edges.DeleteByFile(ctx, relPath, branch); err != nil {
		return 0, 0, err
	}
	if err := m.vectors.DeleteByFile(ctx, relPath, branch); err != nil {
		return 0, 0, err
	}
	if err := m.keywords.DeleteByFile(ctx, relPath, branch); err != nil {
		return 0, 0, err
	}

	adapter := m.adapters.ForPath(absPath)
	result := adapter.Extract(absPath, content)
	if result.Err != nil {
		_ = m.files.UpdateStatus(ctx, relPath, branch, store.FileStatusError, result.Err.Error())
		return 0, 0, result.Err
	}

	language := adapter.Language()
	if language == "" {
		language = scanner.DetectLanguage(relPath)
	}

	now := time.Now()
	syms := make([]*store.Symbol, 0, len(result.Symbols))
	byQualifiedName := make(map[string]string, len(result.Symbols))
	for _, raw := range result.Symbols {
		id := extract.SymbolID(raw.QualifiedName, raw.Signature, language)
		sym := &store.Symbol{
			ID:            id,
			Name:          raw.Name,
			QualifiedName: raw.QualifiedName,
			Type:          raw.Type,
			Language:      language,
			FilePath:      relPath,
			StartLine:     raw.StartLine,
			EndLine:       raw.EndLine,
			Content:       raw.Content,
			Signature:     raw.Signature,
			Docstring:     raw.Docstring,
			ContentHash:   extract.ContentHash(raw.Content),
			Branch:        branch,
			UpdatedAt:     now,
			RevisionID:    now.UnixNano(),
		}
		syms = append(syms, sym)
		byQualifiedName[raw.QualifiedName] = id
	}

	if len(syms) > 0 {
		// Symbols are persisted before their vectors: the vector repo
		// resolves each symbol's branch by looking up its row in the
		// symbols table at upsert time.
		if err := m.symbols.UpsertMany(ctx, syms); err != nil {
			return 0, 0, err
		}
		for _, sym := range syms {
			if err := m.keywords.Index(ctx, sym.ID, sym.Name, sym.QualifiedName, sym.Content, sym.FilePath); err != nil {
				slog.Warn("failed to index symbol for keyword search", slog.String("symbol_id", sym.ID), slog.String("error", err.Error()))
			}
		}
	}

	if err := m.embedSymbols(ctx, syms); err != nil {
		_ = m.files.UpdateStatus(ctx, relPath, branch, store.FileStatusError, err.Error())
		return 0, 0, err
	}

	edges := m.resolveEdges(ctx, result.Edges, byQualifiedName, branch)
	if len(edges) > 0 {
		if err := m.edges.UpsertMany(ctx, edges); err != nil {
			return 0, 0, err
		}
	}

	fileRecord := &store.FileRecord{
		FilePath:    relPath,
		Branch:      branch,
		FileHash:    fp.Hash,
		MTime:       fp.ModTime,
		Size:        fp.Size,
		LastIndexed: now,
		Language:    language,
		Status:      store.FileStatusIndexed,
		SymbolCount: len(syms),
	}
	if err := m.files.Upsert(ctx, fileRecord); err != nil {
		return 0, 0, err
	}

	return len(syms), len(edges), nil
}

// resolveEdges resolves raw edges against the symbols extracted from the
// same file and, for call targets defined elsewhere, a by-name lookup in
// the same branch. Edges whose target cannot be resolved are dropped rather
// than persisted as orphans.
func (m *Manager) resolveEdges(ctx context.Context, raw []extract.RawEdge, byQualifiedName map[string]string, branch string) []*store.Edge {
	resolved := make([]*store.Edge, 0, len(raw))
	targetCache := make(map[string]string)

	for _, re := range raw {
		sourceID, ok := byQualifiedName[re.SourceQualifiedName]
		if !ok {
			continue
		}

		targetID, ok := targetCache[re.TargetName]
		if !ok {
			targetID = m.resolveTargetID(ctx, re.TargetName, branch)
			targetCache[re.TargetName] = targetID
		}
		if targetID == "" {
			continue
		}

		resolved = append(resolved, &store.Edge{
			ID:         extract.EdgeID(sourceID, targetID, re.Type, re.Origin),
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       re.Type,
			Confidence: re.Confidence,
			Origin:     re.Origin,
			Branch:     branch,
			SourceLine: re.SourceLine,
			TargetLine: re.TargetLine,
			UpdatedAt:  time.Now(),
		})
	}
	return resolved
}

// resolveTargetID looks up a single symbol by name within the branch and
// returns its id, or "" if no symbol with that name is known yet. Ambiguous
// names (multiple declarations sharing a name across files) resolve to the
// first match; this mirrors the best-effort nature of AST-inferred edges.
func (m *Manager) resolveTargetID(ctx context.Context, name, branch string) string {
	if name == "" {
		return ""
	}
	matches, err := m.symbols.ByName(ctx, name, branch)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0].ID
}

// embedSymbols batch-embeds every symbol's embedding text in chunks of
// opts.EmbeddingBatchSize and upserts the resulting vectors.
func (m *Manager) embedSymbols(ctx context.Context, syms []*store.Symbol) error {
	batchSize := m.opts.EmbeddingBatchSize
	for start := 0; start < len(syms); start += batchSize {
		end := start + batchSize
		if end > len(syms) {
			end = len(syms)
		}
		batch := syms[start:end]

		texts := make([]string, len(batch))
		for i, sym := range batch {
			texts[i] = m.embeddingText(sym)
		}

		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return engineerrors.New(engineerrors.ErrCodeEmbedBatch, "failed to embed symbol batch", err)
		}

		for i, sym := range batch {
			sym.EmbeddingModelID = m.embedder.ModelID()
			if err := m.vectors.Upsert(ctx, sym.ID, vectors[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// embeddingText truncates an oversized symbol body to MaxChunkLines,
// keeping the head of the declaration (signature, opening context) and the
// tail ChunkOverlap lines (closing braces, return statements) so the
// embedded text still reflects how the body ends.
func (m *Manager) embeddingText(sym *store.Symbol) string {
	lines := strings.Split(sym.Content, "\n")
	if len(lines) <= m.opts.MaxChunkLines {
		return sym.Content
	}

	overlap := m.opts.ChunkOverlap
	if overlap < 0 || overlap >= m.opts.MaxChunkLines {
		overlap = 0
	}
	head := m.opts.MaxChunkLines - overlap
	tail := lines[len(lines)-overlap:]
	if overlap == 0 {
		tail = nil
	}

	kept := make([]string, 0, head+len(tail))
	kept = append(kept, lines[:head]...)
	kept = append(kept, tail...)
	return strings.Join(kept, "\n")
}

// deleteFile removes every symbol, edge, vector, and FTS row for a deleted
// file, then drops its Merkle entry.
func (m *Manager) deleteFile(ctx context.Context, absPath string) error {
	relPath := m.relPath(absPath)
	branch := m.opts.Branch

	if err := m.symbols.DeleteByFile(ctx, relPath, branch); err != nil {
		return err
	}
	if err := m.edges.DeleteByFile(ctx, relPath, branch); err != nil {
		return err
	}
	if err := m.vectors.DeleteByFile(ctx, relPath, branch); err != nil {
		return err
	}
	if err := m.keywords.DeleteByFile(ctx, relPath, branch); err != nil {
		return err
	}
	if err := m.files.DeleteByPath(ctx, relPath, branch); err != nil {
		return err
	}

	m.cache.Remove(absPath)
	return nil
}

// truncateAll drops every branch-scoped row ahead of a full rebuild.
func (m *Manager) truncateAll(ctx context.Context) error {
	branch := m.opts.Branch
	if err := m.symbols.DeleteByBranch(ctx, branch); err != nil {
		return err
	}
	if err := m.edges.DeleteByBranch(ctx, branch); err != nil {
		return err
	}
	if err := m.files.DeleteByBranch(ctx, branch); err != nil {
		return err
	}
	return nil
}

// IsIndexing reports whether an Update or Rebuild is currently running in
// this process.
func (m *Manager) IsIndexing() bool {
	return m.indexing.Load()
}
