// Package engine assembles the store, index manager, retriever, and
// analyzer into the single Engine type that implements the query API:
// index.update/rebuild/status, retrieval.search/find_similar, and
// analysis.impact/diff.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeintel/engine/internal/analysis"
	"github.com/codeintel/engine/internal/config"
	"github.com/codeintel/engine/internal/embed"
	engineerrors "github.com/codeintel/engine/internal/errors"
	"github.com/codeintel/engine/internal/extract"
	"github.com/codeintel/engine/internal/index"
	"github.com/codeintel/engine/internal/merkle"
	"github.com/codeintel/engine/internal/retrieval"
	"github.com/codeintel/engine/internal/scanner"
	"github.com/codeintel/engine/internal/store"
	"github.com/codeintel/engine/internal/telemetry"
	"github.com/codeintel/engine/internal/watch"
)

// Engine owns the store and every component built on top of it. It is
// the engine's single entry point: callers open one Engine per project
// root and drive indexing, search, and analysis through its methods.
type Engine struct {
	cfg      *config.Config
	rootDir  string
	branch   string
	st       *store.Store
	cache    *merkle.Cache
	embedder embed.Embedder
	manager  *index.Manager
	search   *retrieval.Retriever
	analyzer *analysis.Analyzer
	metrics  *telemetry.QueryMetrics
}

// StatusReport answers index.status().
type StatusReport struct {
	FileCount   int
	SymbolCount int
	LastUpdated time.Time
	IsIndexing  bool
	DBSizeBytes int64
}

// Open wires a new Engine over rootDir using cfg, creating or loading the
// store and Merkle cache at the paths cfg names. embedder is the caller's
// chosen Embedder implementation; Open wraps it in an LRU cache of
// embed.DefaultEmbeddingCacheSize entries if the caller hasn't already.
func Open(ctx context.Context, rootDir string, branch string, cfg *config.Config, embedder embed.Embedder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, engineerrors.ConfigError("invalid engine configuration", err)
	}
	if _, cached := embedder.(*embed.CachedEmbedder); !cached {
		embedder = embed.NewCachedEmbedderWithDefaults(embedder)
	}
	if branch == "" {
		branch = "main"
	}

	dbPath := cfg.Store.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(rootDir, dbPath)
	}
	cachePath := cfg.Store.CachePath
	if !filepath.IsAbs(cachePath) {
		cachePath = filepath.Join(rootDir, cachePath)
	}

	st, err := store.Open(store.Config{
		Path:               dbPath,
		CacheMB:            cfg.Store.SQLiteCacheMB,
		EmbeddingDimension: embedder.Dimension(),
	})
	if err != nil {
		return nil, err
	}

	cache, err := merkle.Load(cachePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	vectors, err := store.NewVectorRepo(st, store.VectorBackend(cfg.Store.VectorBackend), embedder.Dimension(), filepath.Join(rootDir, ".codeintel", "hnsw.idx"))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	keywords, err := store.NewKeywordRepo(st, store.KeywordBackend(cfg.Store.KeywordBackend), filepath.Join(rootDir, ".codeintel", "keywords.bleve"))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sc, err := scanner.New()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if err := telemetry.InitTelemetrySchema(st.DB()); err != nil {
		_ = st.Close()
		return nil, err
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(st.DB())
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	metricsCfg := telemetry.DefaultQueryMetricsConfig()
	metricsCfg.FlushInterval = 0 // flushed explicitly from Engine.Close
	metrics := telemetry.NewQueryMetricsWithConfig(metricsStore, metricsCfg)

	symbols := store.NewSymbolRepo(st)
	edges := store.NewEdgeRepo(st)
	files := store.NewFileRepo(st)

	manager := index.NewManager(index.Options{
		RootDir:             rootDir,
		Branch:              branch,
		Parallelism:         cfg.Index.Parallelism,
		EmbeddingBatchSize:  cfg.Index.EmbeddingBatchSize,
		MaxChunkLines:       cfg.Index.MaxChunkLines,
		ChunkOverlap:        cfg.Index.ChunkOverlap,
		AutoRefresh:         cfg.Index.AutoRefresh,
		AutoRefreshCooldown: time.Duration(cfg.Index.AutoRefreshCooldownMS) * time.Millisecond,
		AutoRefreshMaxFiles: cfg.Index.AutoRefreshMaxFiles,
		IncludePatterns:     cfg.Index.IncludePatterns,
		ExcludePatterns:     cfg.Index.ExcludePatterns,
		MaxFileSize:         cfg.Index.MaxFileSizeBytes,
		CachePath:           cachePath,
	}, index.Deps{
		Symbols:  symbols,
		Edges:    edges,
		Files:    files,
		Keywords: keywords,
		Vectors:  vectors,
		Embedder: embedder,
		Adapters: extract.NewAdapterRegistry(),
		Scanner:  sc,
		Cache:    cache,
	})

	return &Engine{
		cfg:      cfg,
		rootDir:  rootDir,
		branch:   branch,
		st:       st,
		cache:    cache,
		embedder: embedder,
		manager:  manager,
		search:   retrieval.New(symbols, edges, keywords, vectors, cfg.Retrieval),
		analyzer: analysis.New(symbols, edges, files, cfg.Analysis),
		metrics:  metrics,
	}, nil
}

// Close flushes query telemetry and releases the store and any
// resources the engine owns.
func (e *Engine) Close() error {
	_ = e.metrics.Close()
	return e.st.Close()
}

// SetProgressHandler installs fn to receive phase-by-phase progress
// reports during Update and Rebuild. Call it before starting an
// indexing run.
func (e *Engine) SetProgressHandler(fn index.ProgressFunc) {
	e.manager.SetProgress(fn)
}

// Update runs index.update(): an incremental, Merkle-guided re-index of
// whatever changed on disk since the last run.
func (e *Engine) Update(ctx context.Context) (*index.Summary, error) {
	return e.manager.Update(ctx)
}

// Rebuild runs index.rebuild(): a full re-index from a truncated store.
func (e *Engine) Rebuild(ctx context.Context) (*index.Summary, error) {
	return e.manager.Rebuild(ctx)
}

// EnsureFresh triggers an auto-refresh update if the manager's cooldown
// and file-count ceiling allow it. Intended to be called by a file
// watcher or before serving a read that wants up-to-date results.
func (e *Engine) EnsureFresh(ctx context.Context) {
	e.manager.EnsureFresh(ctx)
}

// Watch starts a file watcher over the engine's project root and feeds
// every debounced batch of changes through the same incremental-indexing
// path ensure_fresh() uses: each batch triggers EnsureFresh, which rescans
// the project and is subject to its cooldown and file-count ceiling (a
// batch arriving within the cooldown does not start a refresh). It blocks until ctx is cancelled or the watcher fails to
// start, and always stops the watcher before returning. onEvent, if
// non-nil, is invoked with every raw batch before the refresh is
// triggered, so a caller can log or display what changed.
func (e *Engine) Watch(ctx context.Context, onEvent func([]watch.FileEvent)) error {
	w, err := watch.NewHybridWatcher(watch.DefaultOptions())
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx, e.rootDir); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			if onEvent != nil {
				onEvent(batch)
			}
			e.EnsureFresh(ctx)
		case watchErr, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watch error", slog.Any("error", watchErr))
		}
	}
}

// Status runs index.status().
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	symbols := store.NewSymbolRepo(e.st)
	files := store.NewFileRepo(e.st)

	fileCount, err := e.fileCount(ctx, files)
	if err != nil {
		return nil, err
	}
	symbolCount, err := symbols.Count(ctx, e.branch)
	if err != nil {
		return nil, err
	}

	var lastUpdated time.Time
	records, err := files.ByBranch(ctx, e.branch)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.LastIndexed.After(lastUpdated) {
			lastUpdated = r.LastIndexed
		}
	}

	dbSize, _ := dbFileSize(e.cfg.Store.DBPath, e.rootDir)

	return &StatusReport{
		FileCount:   fileCount,
		SymbolCount: symbolCount,
		LastUpdated: lastUpdated,
		IsIndexing:  e.manager.IsIndexing(),
		DBSizeBytes: dbSize,
	}, nil
}

func (e *Engine) fileCount(ctx context.Context, files store.FileRepo) (int, error) {
	records, err := files.ByBranch(ctx, e.branch)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Search runs retrieval.search(). Branch defaults to the engine's branch
// when q.Branch is empty. Every call is recorded to query telemetry:
// query type (lexical/semantic/mixed), latency bucket, and result count.
func (e *Engine) Search(ctx context.Context, q retrieval.Query) (*retrieval.Result, error) {
	if q.Branch == "" {
		q.Branch = e.branch
	}

	start := time.Now()
	result, err := e.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	e.metrics.Record(telemetry.QueryEvent{
		Query:       q.QueryText,
		QueryType:   queryType(q),
		ResultCount: len(result.Symbols),
		Latency:     time.Since(start),
		Timestamp:   start,
	})
	if len(q.Embedding) > 0 {
		e.metrics.RecordQueryEmbedding(q.Embedding)
	}

	return result, nil
}

// queryType classifies a query by which retrieval sources it feeds.
func queryType(q retrieval.Query) telemetry.QueryType {
	switch {
	case q.QueryText != "" && len(q.Embedding) > 0:
		return telemetry.QueryTypeMixed
	case len(q.Embedding) > 0:
		return telemetry.QueryTypeSemantic
	default:
		return telemetry.QueryTypeLexical
	}
}

// Metrics returns a snapshot of locally-collected query telemetry: query
// type distribution, top search terms, zero-result queries, and latency
// buckets, all since the engine was opened.
func (e *Engine) Metrics() *telemetry.QueryMetricsSnapshot {
	return e.metrics.Snapshot()
}

// FindSimilar runs retrieval.find_similar(): embeds code and returns the
// k nearest symbols by vector distance, hydrated into full records.
func (e *Engine) FindSimilar(ctx context.Context, code string, branch string, k int) ([]*store.Symbol, error) {
	if branch == "" {
		branch = e.branch
	}
	if k <= 0 {
		k = 10
	}

	vector, err := e.embedder.Embed(ctx, code)
	if err != nil {
		return nil, engineerrors.New(engineerrors.ErrCodeEmbedBatch, "failed to embed find_similar input", err)
	}

	result, err := e.search.Search(ctx, retrieval.Query{
		Embedding:  vector,
		Branch:     branch,
		GraphDepth: retrieval.GraphDepthUnset,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Symbols) > k {
		result.Symbols = result.Symbols[:k]
	}
	return result.Symbols, nil
}

// Impact runs analysis.impact().
func (e *Engine) Impact(ctx context.Context, symbolID string, branch string, opts analysis.ImpactOptions) (*analysis.ImpactReport, error) {
	if branch == "" {
		branch = e.branch
	}
	return e.analyzer.Impact(ctx, symbolID, branch, opts)
}

// Diff runs analysis.diff().
func (e *Engine) Diff(ctx context.Context, sourceBranch, targetBranch string) (*analysis.BranchDiffResult, error) {
	return e.analyzer.Diff(ctx, sourceBranch, targetBranch)
}

func dbFileSize(dbPath, rootDir string) (int64, error) {
	path := dbPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat db file: %w", err)
	}
	return info.Size(), nil
}
