package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeintel/engine/pkg/version"
)

func TestVersionCmd_PrintsFullString(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	err := root.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "codeintel")
	assert.Contains(t, buf.String(), version.Version)
}

func TestVersionCmd_ShortFlagPrintsOnlyTheVersion(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version", "--short"})

	err := root.Execute()

	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", buf.String())
}

func TestVersionCmd_JSONFlagPrintsBuildInfo(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version", "--json"})

	err := root.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"version"`)
	assert.Contains(t, buf.String(), `"go_version"`)
}
