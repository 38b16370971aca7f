package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactCmd_RequiresExactlyOneArgument(t *testing.T) {
	// Given: an empty project directory
	withProjectDir(t)

	// When: running "impact" with no symbol id
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"impact"})

	err := root.Execute()

	// Then: cobra rejects the missing argument
	require.Error(t, err)
}

func TestImpactCmd_UnknownSymbolReturnsError(t *testing.T) {
	// Given: an empty project directory with no indexed symbols
	withProjectDir(t)

	// When: asking for the impact of a symbol that was never indexed
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"impact", "does-not-exist"})

	err := root.Execute()

	// Then: it fails with a descriptive error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "impact analysis failed")
}
