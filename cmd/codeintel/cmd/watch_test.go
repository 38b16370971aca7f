package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchCmd_StopsOnContextCancel(t *testing.T) {
	// Given: a fresh project directory and a context that cancels shortly
	dir := withProjectDir(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"watch"})

	// When: a file changes shortly after watch starts, then the context expires
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "new.go"), []byte("package pkg\n"), 0o644)
	}()

	err := root.ExecuteContext(ctx)

	// Then: watch returns cleanly once the context is cancelled
	require.NoError(t, err)
	require.Contains(t, buf.String(), "watching")
}
