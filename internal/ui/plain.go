package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/codeintel/engine/internal/index"
)

// ProgressPrinter renders index.Progress reports as one line per
// meaningful update: a line when the phase changes, and periodic
// lines as files within a phase are processed.
type ProgressPrinter struct {
	mu        sync.Mutex
	out       io.Writer
	lastPhase index.Phase
}

// NewProgressPrinter returns a ProgressPrinter writing to out.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out}
}

// Report implements index.ProgressFunc.
func (p *ProgressPrinter) Report(progress index.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if progress.Phase != p.lastPhase {
		p.lastPhase = progress.Phase
		_, _ = fmt.Fprintf(p.out, "[%s] %s\n", StageIcon(progress.Phase), StageLabel(progress.Phase))
	}

	switch {
	case progress.CurrentFile != "":
		_, _ = fmt.Fprintf(p.out, "[%s] %d/%d %s\n", StageIcon(progress.Phase),
			progress.FilesProcessed, progress.FilesTotal, progress.CurrentFile)
	case progress.FilesTotal > 0:
		_, _ = fmt.Fprintf(p.out, "[%s] %d/%d\n", StageIcon(progress.Phase),
			progress.FilesProcessed, progress.FilesTotal)
	}
}

// Complete prints a final summary line for a finished Update or
// Rebuild run.
func (p *ProgressPrinter) Complete(stats CompletionStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.out, "Complete: %d indexed, %d deleted, %d failed, %d edges in %s\n",
		stats.FilesIndexed, stats.FilesDeleted, stats.FilesFailed, stats.EdgesAdded,
		stats.Duration.Round(1e6))
}
