package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchIncludesNeighborLines(t *testing.T) {
	results := Search("alpha\nbeta\ngamma", "beta")
	require.Len(t, results, 1)
	assert.Equal(t, Result{Match: "beta", Context: "alpha\nbeta\ngamma", Line: 1}, results[0])
}

func TestSearchClipsContextAtEdges(t *testing.T) {
	text := "Agentic systems\nmiddle line\nclosing AGENTIC note"
	results := Search(text, "agentic")
	require.Len(t, results, 2)
	assert.Equal(t, "Agentic systems\nmiddle line", results[0].Context)
	assert.Equal(t, "middle line\nclosing AGENTIC note", results[1].Context)
	assert.Equal(t, 2, results[1].Line)
}

func TestSearchBlankQueryYieldsNothing(t *testing.T) {
	for _, query := range []string{"", "   ", "\t"} {
		assert.Empty(t, Search("alpha\nbeta", query), "query %q", query)
	}
}

func TestSearchNoMatches(t *testing.T) {
	assert.Empty(t, Search("alpha\nbeta", "delta"))
	assert.Empty(t, Search("", "alpha"))
}

func TestSearchSingleLineDocument(t *testing.T) {
	results := Search("only line", "LINE")
	require.Len(t, results, 1)
	assert.Equal(t, "only line", results[0].Context)
}

func TestFirstStopsEarly(t *testing.T) {
	text := "a1\na2\na3\na4"
	results := First(text, "a", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "a2", results[1].Match)
	assert.Nil(t, First(text, "a", 0))
}

func TestMatchesIsLazy(t *testing.T) {
	seen := 0
	for range Matches("x\nx\nx", "x") {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}
