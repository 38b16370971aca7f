package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeintel/engine/internal/index"
)

func TestProgressPrinter_Report_PrintsPhaseTransition(t *testing.T) {
	// Given: a printer with no prior phase
	buf := &bytes.Buffer{}
	p := NewProgressPrinter(buf)

	// When: reporting the scanning phase
	p.Report(index.Progress{Phase: index.PhaseScanning})

	// Then: the phase transition is printed
	assert.Contains(t, buf.String(), "[SCAN] Scanning")
}

func TestProgressPrinter_Report_SuppressesRepeatedPhaseHeader(t *testing.T) {
	// Given: a printer that already reported the scanning phase
	buf := &bytes.Buffer{}
	p := NewProgressPrinter(buf)
	p.Report(index.Progress{Phase: index.PhaseScanning})
	buf.Reset()

	// When: reporting another event in the same phase
	p.Report(index.Progress{Phase: index.PhaseScanning, FilesTotal: 10, FilesProcessed: 3})

	// Then: only the progress line is printed, not another header
	assert.NotContains(t, buf.String(), "Scanning\n")
	assert.Contains(t, buf.String(), "3/10")
}

func TestProgressPrinter_Report_IncludesCurrentFile(t *testing.T) {
	// Given: a printer
	buf := &bytes.Buffer{}
	p := NewProgressPrinter(buf)

	// When: reporting progress with a current file
	p.Report(index.Progress{Phase: index.PhaseEmbedding, FilesTotal: 5, FilesProcessed: 2, CurrentFile: "main.go"})

	// Then: the file name appears
	assert.Contains(t, buf.String(), "main.go")
}

func TestProgressPrinter_Complete_PrintsSummary(t *testing.T) {
	// Given: a printer
	buf := &bytes.Buffer{}
	p := NewProgressPrinter(buf)

	// When: reporting completion
	p.Complete(CompletionStats{FilesIndexed: 4, FilesDeleted: 1, EdgesAdded: 7, Duration: 2 * time.Second})

	// Then: the summary reflects all the counts
	out := buf.String()
	assert.Contains(t, out, "4 indexed")
	assert.Contains(t, out, "1 deleted")
	assert.Contains(t, out, "7 edges")
}
