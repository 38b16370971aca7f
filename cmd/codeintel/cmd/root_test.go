package cmd

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"index", "search", "impact", "diff", "watch", "doctor", "metrics", "version"} {
		assert.True(t, names[want], "expected %q subcommand to be registered", want)
	}
}

func TestRootCmd_ProfileCPUWritesAFile(t *testing.T) {
	dir := withProjectDir(t)

	cpuProfile := dir + "/cpu.pprof"
	root := NewRootCmd()
	root.SetArgs([]string{"index", "status", "--profile-cpu", cpuProfile})

	err := root.Execute()
	require.NoError(t, err)

	info, err := os.Stat(cpuProfile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestProjectRoot_FallsBackToWorkingDirectory(t *testing.T) {
	dir := withProjectDir(t)

	root := projectRoot()

	resolved, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, resolved, root)
	assert.Equal(t, dir, root)
}

func TestOpenEngine_OpensAgainstAFreshProject(t *testing.T) {
	withProjectDir(t)

	eng, root, err := openEngine(context.Background(), "main")
	require.NoError(t, err)
	require.NotNil(t, eng)
	defer func() { _ = eng.Close() }()

	assert.NotEmpty(t, root)
}
