package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCmd_ReportsZeroQueriesBeforeAnySearch(t *testing.T) {
	// Given: a fresh project with no prior searches
	withProjectDir(t)

	// When: running "metrics"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"metrics"})

	err := root.Execute()

	// Then: it reports zero queries
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "total queries: 0")
}

func TestMetricsCmd_JSONOutput(t *testing.T) {
	// Given: a fresh project
	withProjectDir(t)

	// When: running "metrics --json"
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"metrics", "--json"})

	err := root.Execute()

	// Then: the output is JSON
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"total_queries"`)
}
