package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeCode_SplitsCamelCase(t *testing.T) {
	tokens := TokenizeCode("getUserById")
	assert.Equal(t, []string{"get", "user", "by", "id"}, tokens)
}

func TestTokenizeCode_SplitsSnakeCase(t *testing.T) {
	tokens := TokenizeCode("parse_http_request")
	assert.Equal(t, []string{"parse", "http", "request"}, tokens)
}

func TestTokenizeCode_FiltersShortTokens(t *testing.T) {
	tokens := TokenizeCode("a b getX")
	assert.NotContains(t, tokens, "a")
	assert.NotContains(t, tokens, "b")
}

func TestSplitCamelCase_HandlesAcronyms(t *testing.T) {
	assert.Equal(t, []string{"HTTP", "Handler"}, SplitCamelCase("HTTPHandler"))
	assert.Equal(t, []string{"parse", "HTTP", "Request"}, SplitCamelCase("parseHTTPRequest"))
}

func TestSplitCamelCase_EmptyString(t *testing.T) {
	assert.Equal(t, []string{}, SplitCamelCase(""))
}

func TestFilterStopWords_RemovesKnownStopWords(t *testing.T) {
	stopWords := BuildStopWordMap([]string{"return", "func"})
	filtered := FilterStopWords([]string{"return", "parse", "func", "config"}, stopWords)
	assert.Equal(t, []string{"parse", "config"}, filtered)
}

func TestBuildStopWordMap_Lowercases(t *testing.T) {
	m := BuildStopWordMap([]string{"RETURN"})
	_, ok := m["return"]
	assert.True(t, ok)
}
