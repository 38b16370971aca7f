package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterRegistry_ForPath_SelectsGoAdapter(t *testing.T) {
	registry := NewAdapterRegistry()
	defer registry.Close()

	adapter := registry.ForPath("pkg/foo.go")
	assert.Equal(t, "go", adapter.Language())
}

func TestAdapterRegistry_ForPath_UnknownExtensionReturnsNoOp(t *testing.T) {
	registry := NewAdapterRegistry()
	defer registry.Close()

	adapter := registry.ForPath("README.md")
	result := adapter.Extract("README.md", []byte("# hello"))
	require.NoError(t, result.Err)
	assert.Empty(t, result.Symbols)
	assert.Empty(t, result.Edges)
}

func TestAdapterRegistry_ForPath_ReusesAdapterPerLanguage(t *testing.T) {
	registry := NewAdapterRegistry()
	defer registry.Close()

	a1 := registry.ForPath("a.go")
	a2 := registry.ForPath("b.go")
	assert.Same(t, a1, a2)
}

func TestTreeSitterAdapter_Extract_ReturnsSymbolsAndEdges(t *testing.T) {
	registry := NewAdapterRegistry()
	defer registry.Close()

	source := []byte(`package main

import "fmt"

func greet() {
	fmt.Println("hi")
}
`)
	result := registry.ForPath("main.go").Extract("main.go", source)
	require.NoError(t, result.Err)
	require.Len(t, result.Symbols, 1)
	assert.Equal(t, "greet", result.Symbols[0].Name)

	var sawImport bool
	for _, e := range result.Edges {
		if e.TargetName == "fmt" {
			sawImport = true
		}
	}
	assert.True(t, sawImport)
}

func TestTreeSitterAdapter_Extract_MalformedSourceStillReturnsEmptySymbols(t *testing.T) {
	registry := NewAdapterRegistry()
	defer registry.Close()

	result := registry.ForPath("broken.go").Extract("broken.go", []byte("func ((("))
	require.NoError(t, result.Err)
	assert.NotNil(t, result.Symbols)
}
