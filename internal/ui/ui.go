// Package ui renders index.update() and index.rebuild() progress to a
// plain-text stream: one line per phase transition, plus a final
// completion summary. There is no interactive terminal mode; every
// codeintel build runs as a one-shot CLI command, so a scrolling log is
// the right shape rather than a redrawing dashboard.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/codeintel/engine/internal/index"
)

// StageLabel returns the human-readable name for an indexing phase.
func StageLabel(p index.Phase) string {
	switch p {
	case index.PhaseScanning:
		return "Scanning"
	case index.PhaseHashing:
		return "Hashing"
	case index.PhaseEmbedding:
		return "Embedding"
	case index.PhaseStoring:
		return "Storing"
	case index.PhaseComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// StageIcon returns the short phase tag used in plain text output.
func StageIcon(p index.Phase) string {
	switch p {
	case index.PhaseScanning:
		return "SCAN"
	case index.PhaseHashing:
		return "HASH"
	case index.PhaseEmbedding:
		return "EMBED"
	case index.PhaseStoring:
		return "STORE"
	case index.PhaseComplete:
		return "DONE"
	default:
		return "????"
	}
}

// CompletionStats summarizes a finished Update or Rebuild run for
// display.
type CompletionStats struct {
	FilesIndexed int
	FilesDeleted int
	FilesFailed  int
	EdgesAdded   int
	Duration     time.Duration
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether the process appears to be running under a CI
// system.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
