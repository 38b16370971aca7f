package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withProjectDir chdirs into a fresh temp directory for the duration of
// the test, restoring the original working directory on cleanup.
func withProjectDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	return dir
}

func TestIndexUpdateCmd_RunsOverEmptyProject(t *testing.T) {
	// Given: an empty project directory
	withProjectDir(t)

	// When: running "index update"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"index", "update"})

	err := root.Execute()

	// Then: it completes without error
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "files indexed")
}

func TestIndexUpdateCmd_Verbose_PrintsPhaseProgress(t *testing.T) {
	// Given: an empty project directory
	withProjectDir(t)

	// When: running "index update --verbose"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"index", "update", "--verbose"})

	err := root.Execute()

	// Then: phase progress lines appear alongside the summary
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[SCAN]")
}

func TestIndexStatusCmd_ReportsEmptyIndex(t *testing.T) {
	// Given: an empty project directory
	withProjectDir(t)

	// When: running "index status"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"index", "status"})

	err := root.Execute()

	// Then: it reports zero files without error
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "files:   0")
}

func TestIndexStatusCmd_JSONOutput(t *testing.T) {
	// Given: an empty project directory
	withProjectDir(t)

	// When: running "index status --json"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"index", "status", "--json"})

	err := root.Execute()

	// Then: the output is JSON
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"FileCount"`)
}
