package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseGoFile_ReturnsAST(t *testing.T) {
	source := []byte(`package main

func hello() {
	println("hi")
}
`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "go", tree.Language)
	assert.Len(t, tree.Root.FindAllByType("function_declaration"), 1)
}

func TestParser_ParseTypeScriptFile_ReturnsAST(t *testing.T) {
	source := []byte(`interface User {
	name: string;
}

function greet(u: User): string {
	return u.name;
}
`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "typescript")
	require.NoError(t, err)
	assert.Len(t, tree.Root.FindAllByType("interface_declaration"), 1)
	assert.Len(t, tree.Root.FindAllByType("function_declaration"), 1)
}

func TestParser_UnsupportedLanguage_ReturnsError(t *testing.T) {
	parser := NewParser()
	defer parser.Close()

	_, err := parser.Parse(context.Background(), []byte("x"), "cobol")
	assert.Error(t, err)
}

func TestNode_Content_ReturnsSourceSlice(t *testing.T) {
	source := []byte("package main")
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)
	assert.Equal(t, "package main", tree.Root.Content(source))
}
