// Package index implements the index manager: discovery, Merkle-based
// change detection, per-file extraction and embedding, and the transactional
// persistence of symbols, edges, and vectors that keeps a branch's store in
// sync with its working tree.
package index

import "time"

// Phase identifies a stage of an update() or rebuild() run, reported through
// a ProgressFunc so a caller can render a progress bar or log structured
// milestones.
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseHashing  Phase = "hashing"
	PhaseEmbedding Phase = "embedding"
	PhaseStoring  Phase = "storing"
	PhaseComplete Phase = "complete"
)

// Progress reports incremental status during an update() or rebuild() run.
type Progress struct {
	Phase          Phase
	FilesTotal     int
	FilesProcessed int
	CurrentFile    string
}

// ProgressFunc receives Progress reports. Implementations must return
// quickly; the manager calls it synchronously from the indexing goroutines.
type ProgressFunc func(Progress)

// Summary is the result of a completed update() or rebuild() run.
type Summary struct {
	FilesIndexed int
	FilesDeleted int
	FilesFailed  int
	ChunksAdded  int
	EdgesAdded   int
	Duration     time.Duration
}

// Options configures a Manager.
type Options struct {
	// RootDir is the project root to scan and index.
	RootDir string
	// Branch partitions every read and write the manager performs.
	Branch string
	// Parallelism bounds concurrent file-indexing tasks. Defaults to 10
	// when zero.
	Parallelism int
	// EmbeddingBatchSize is the number of symbol contents embedded per
	// EmbedBatch call. Defaults to 100 when zero.
	EmbeddingBatchSize int
	// MaxChunkLines bounds the source lines a single symbol body may span
	// before being truncated for embedding purposes.
	MaxChunkLines int
	// ChunkOverlap is the number of trailing lines of an oversized symbol
	// body kept after its first MaxChunkLines-ChunkOverlap lines when it is
	// truncated for embedding.
	ChunkOverlap int
	// AutoRefresh enables EnsureFresh to trigger an incremental update.
	AutoRefresh bool
	// AutoRefreshCooldown is the minimum time between automatic refreshes.
	AutoRefreshCooldown time.Duration
	// AutoRefreshMaxFiles is a file-count ceiling: EnsureFresh skips the
	// refresh entirely when the Merkle cache tracks more files than this.
	AutoRefreshMaxFiles int
	// IncludePatterns and ExcludePatterns configure discovery.
	IncludePatterns []string
	ExcludePatterns []string
	// MaxFileSize skips files larger than this during discovery.
	MaxFileSize int64
	// CachePath is where the Merkle fingerprint cache is persisted.
	CachePath string
	// OnProgress, when non-nil, receives progress reports during Update and
	// Rebuild.
	OnProgress ProgressFunc
}

// withDefaults fills zero-valued fields with sensible defaults.
func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = 10
	}
	if o.EmbeddingBatchSize <= 0 {
		o.EmbeddingBatchSize = 100
	}
	if o.MaxChunkLines <= 0 {
		o.MaxChunkLines = 200
	}
	if o.AutoRefreshCooldown <= 0 {
		o.AutoRefreshCooldown = 30 * time.Second
	}
	if o.AutoRefreshMaxFiles <= 0 {
		o.AutoRefreshMaxFiles = 10000
	}
	if o.Branch == "" {
		o.Branch = "main"
	}
	return o
}

func (o Options) report(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}
