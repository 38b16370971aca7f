package codeintel

import (
	"context"

	"github.com/codeintel/engine/internal/analysis"
	"github.com/codeintel/engine/internal/config"
	"github.com/codeintel/engine/internal/embed"
	"github.com/codeintel/engine/internal/engine"
	"github.com/codeintel/engine/internal/index"
	"github.com/codeintel/engine/internal/retrieval"
	"github.com/codeintel/engine/internal/store"
	"github.com/codeintel/engine/internal/telemetry"
	"github.com/codeintel/engine/internal/watch"
)

// Re-exported types so a caller never needs to import an internal
// package to use Engine's query API.
type (
	Query            = retrieval.Query
	Result           = retrieval.Result
	Confidence       = retrieval.Confidence
	ImpactOptions    = analysis.ImpactOptions
	ImpactReport     = analysis.ImpactReport
	BranchDiffResult = analysis.BranchDiffResult
	StatusReport     = engine.StatusReport
	Summary          = index.Summary
	Embedder         = embed.Embedder
	Config           = config.Config
	Symbol           = store.Symbol
	MetricsSnapshot  = telemetry.QueryMetricsSnapshot
	FileEvent        = watch.FileEvent
)

// GraphDepthUnset is Query.GraphDepth's sentinel for "use the configured
// default"; an explicit 0 returns the seed set untraversed.
const GraphDepthUnset = retrieval.GraphDepthUnset

// NewConfig returns a Config populated with the engine's defaults.
func NewConfig() *Config {
	return config.NewConfig()
}

// Options configures Open.
type Options struct {
	// RootDir is the project root to index and search.
	RootDir string
	// Branch scopes every read and write the Engine performs. Defaults
	// to "main" when empty.
	Branch string
	// Config overrides the engine's default configuration. Nil uses
	// NewConfig().
	Config *Config
	// Embedder produces the vectors retrieval and indexing rely on.
	Embedder Embedder
}

// Engine is the semantic code intelligence engine's single entry point.
// Its method set is the whole of the query API: index.update/rebuild/
// status, retrieval.search/find_similar, analysis.impact/diff.
type Engine struct {
	inner *engine.Engine
}

// Open wires an Engine over opts.RootDir.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	inner, err := engine.Open(ctx, opts.RootDir, opts.Branch, cfg, opts.Embedder)
	if err != nil {
		return nil, err
	}
	return &Engine{inner: inner}, nil
}

// Close releases the store and every resource the engine owns.
func (e *Engine) Close() error {
	return e.inner.Close()
}

// ProgressHandler receives phase-by-phase progress reports during
// Update and Rebuild.
type ProgressHandler = index.ProgressFunc

// Progress is one phase-by-phase report passed to a ProgressHandler.
type Progress = index.Progress

// SetProgressHandler installs fn to receive progress reports during the
// next Update or Rebuild call.
func (e *Engine) SetProgressHandler(fn ProgressHandler) {
	e.inner.SetProgressHandler(fn)
}

// Update runs an incremental, Merkle-guided re-index of what changed on
// disk since the last run.
func (e *Engine) Update(ctx context.Context) (*Summary, error) {
	return e.inner.Update(ctx)
}

// Rebuild runs a full re-index from a truncated store.
func (e *Engine) Rebuild(ctx context.Context) (*Summary, error) {
	return e.inner.Rebuild(ctx)
}

// EnsureFresh triggers an auto-refresh update if the configured cooldown
// and file-count ceiling allow it.
func (e *Engine) EnsureFresh(ctx context.Context) {
	e.inner.EnsureFresh(ctx)
}

// Watch starts a file watcher over the project root and triggers
// EnsureFresh on every debounced batch of changes, blocking until ctx is
// cancelled. onEvent, if non-nil, receives every raw batch before the
// refresh it triggers. Auto-refresh must be enabled in the engine's
// configuration for watched changes to actually re-index; otherwise
// Watch only reports events.
func (e *Engine) Watch(ctx context.Context, onEvent func([]FileEvent)) error {
	return e.inner.Watch(ctx, onEvent)
}

// Status reports the current index's file and symbol counts, the most
// recent indexing timestamp, whether an update is in flight, and the
// store's on-disk size.
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	return e.inner.Status(ctx)
}

// Search runs the hybrid retrieval pipeline: parallel vector and keyword
// search, reciprocal rank fusion, call-graph expansion, and token-budgeted
// context packing.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	return e.inner.Search(ctx, q)
}

// FindSimilar embeds code and returns the k nearest symbols by vector
// distance.
func (e *Engine) FindSimilar(ctx context.Context, code string, branch string, k int) ([]*Symbol, error) {
	return e.inner.FindSimilar(ctx, code, branch, k)
}

// Impact reports what depends on symbolID: a callers-only blast-radius
// walk with a risk classification and a confidence verdict.
func (e *Engine) Impact(ctx context.Context, symbolID string, branch string, opts ImpactOptions) (*ImpactReport, error) {
	return e.inner.Impact(ctx, symbolID, branch, opts)
}

// Diff structurally compares two branches' symbol and edge sets.
func (e *Engine) Diff(ctx context.Context, sourceBranch, targetBranch string) (*BranchDiffResult, error) {
	return e.inner.Diff(ctx, sourceBranch, targetBranch)
}

// Metrics returns a snapshot of locally-collected search telemetry:
// query type distribution, top terms, zero-result queries, and latency
// buckets, all since the engine was opened.
func (e *Engine) Metrics() *MetricsSnapshot {
	return e.inner.Metrics()
}
